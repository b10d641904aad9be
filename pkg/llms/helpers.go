package llms

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/edumentor-ai/edumentor/pkg/config"
	"github.com/edumentor-ai/edumentor/pkg/httpclient"
	"github.com/edumentor-ai/edumentor/pkg/observability"
)

func createHTTPClient(cfg config.LLMConfig, parser httpclient.RateLimitHeaderParser) *httpclient.Client {
	return httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout.Duration(),
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(parser),
	)
}

// startLLMSpan opens a request span shared by all providers.
func startLLMSpan(ctx context.Context, provider, model string, structured bool) (context.Context, trace.Span) {
	tracer := observability.GetTracer("edumentor.llm")
	return tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, model),
			attribute.String("provider", provider),
			attribute.Bool("structured", structured),
		),
	)
}

// finishLLMSpan records the outcome on span and metrics.
func finishLLMSpan(ctx context.Context, span trace.Span, model string, start time.Time, inputTokens, outputTokens int, err error) {
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int(observability.AttrLLMTokensInput, inputTokens),
			attribute.Int(observability.AttrLLMTokensOutput, outputTokens),
		)
		span.SetStatus(codes.Ok, "success")
	}

	observability.GetGlobalMetrics().RecordLLMCall(ctx, model, duration, inputTokens, outputTokens, err)
	span.End()
}
