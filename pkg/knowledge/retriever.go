// Package knowledge provides educational fact retrieval.
//
// Facts come from an MCP (Model Context Protocol) knowledge server
// when one is configured, with a built-in local fact store used
// standalone or as fallback.
package knowledge

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/edumentor-ai/edumentor/pkg/config"
	"github.com/edumentor-ai/edumentor/pkg/observability"
)

// Fact is one retrieved knowledge item.
type Fact struct {
	Topic   string `json:"topic,omitempty"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Retriever fetches facts relevant to a query.
type Retriever interface {
	// Retrieve returns at most limit facts for the query.
	Retrieve(ctx context.Context, query string, limit int) ([]Fact, error)

	// Name identifies the retriever for logging and metrics.
	Name() string

	// Close releases retriever resources.
	Close() error
}

// NewRetriever builds the retriever selected by config: MCP chained
// with local fallback when both are enabled.
func NewRetriever(cfg config.KnowledgeConfig) (Retriever, error) {
	var retrievers []Retriever

	if cfg.MCP.Enabled {
		mcpRetriever, err := NewMCPRetriever(cfg.MCP)
		if err != nil {
			return nil, err
		}
		retrievers = append(retrievers, mcpRetriever)
	}
	if cfg.LocalEnabled() {
		retrievers = append(retrievers, NewLocalRetriever())
	}

	if len(retrievers) == 1 {
		return instrumented(retrievers[0]), nil
	}
	return instrumented(NewChain(retrievers...)), nil
}

// Chain tries retrievers in order, falling through on error or empty
// results.
type Chain struct {
	retrievers []Retriever
}

func NewChain(retrievers ...Retriever) *Chain {
	return &Chain{retrievers: retrievers}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Retrieve(ctx context.Context, query string, limit int) ([]Fact, error) {
	var lastErr error
	for _, r := range c.retrievers {
		facts, err := r.Retrieve(ctx, query, limit)
		if err != nil {
			slog.Debug("Retriever failed, trying next",
				"retriever", r.Name(), "error", err)
			lastErr = err
			continue
		}
		if len(facts) > 0 {
			return facts, nil
		}
	}
	return nil, lastErr
}

func (c *Chain) Close() error {
	var firstErr error
	for _, r := range c.retrievers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// instrumentedRetriever wraps a retriever with a span and metrics.
type instrumentedRetriever struct {
	inner Retriever
}

func instrumented(r Retriever) Retriever {
	return &instrumentedRetriever{inner: r}
}

func (i *instrumentedRetriever) Name() string { return i.inner.Name() }

func (i *instrumentedRetriever) Retrieve(ctx context.Context, query string, limit int) ([]Fact, error) {
	tracer := observability.GetTracer("edumentor.knowledge")
	ctx, span := tracer.Start(ctx, observability.SpanRetrieval)
	span.SetAttributes(attribute.String(observability.AttrRetrievalSource, i.inner.Name()))
	defer span.End()

	start := time.Now()
	facts, err := i.inner.Retrieve(ctx, query, limit)
	observability.GetGlobalMetrics().RecordRetrieval(ctx, i.inner.Name(), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("facts", len(facts)))
	return facts, nil
}

func (i *instrumentedRetriever) Close() error {
	return i.inner.Close()
}
