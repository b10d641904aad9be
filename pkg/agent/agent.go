// Package agent implements the tutoring agents and the orchestrator
// that coordinates them. Each agent wraps an LLM provider with a role
// prompt from pkg/prompts and records spans and metrics per call.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/edumentor-ai/edumentor/pkg/llms"
	"github.com/edumentor-ai/edumentor/pkg/observability"
)

func truncatePreview(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func startAgentSpan(ctx context.Context, agentName, model, input string) (context.Context, trace.Span) {
	tracer := observability.GetTracer("edumentor.agent")

	return tracer.Start(ctx, observability.SpanAgentCall,
		trace.WithAttributes(
			attribute.String(observability.AttrAgentName, agentName),
			attribute.String(observability.AttrLLMModel, model),
			attribute.String("input_preview", truncatePreview(input, 100)),
		),
	)
}

func finishAgentSpan(ctx context.Context, span trace.Span, agentName string, start time.Time, tokens int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("tokens", tokens))
	}
	span.End()

	observability.GetGlobalMetrics().RecordAgentCall(ctx, agentName, time.Since(start), tokens, err)
}

// generate runs an instrumented non-streaming call for an agent.
func generate(ctx context.Context, llm llms.LLMProvider, agentName string, messages []llms.Message) (string, error) {
	input := ""
	if len(messages) > 0 {
		input = messages[len(messages)-1].Content
	}

	ctx, span := startAgentSpan(ctx, agentName, llm.GetModelName(), input)
	start := time.Now()

	text, tokens, err := llm.Generate(ctx, messages)
	finishAgentSpan(ctx, span, agentName, start, tokens, err)
	if err != nil {
		return "", fmt.Errorf("%s: %w", agentName, err)
	}
	return text, nil
}

// generateInto runs an instrumented structured call and decodes the
// JSON response into out. Providers without structured output get the
// schema embedded as a system instruction instead.
func generateInto(ctx context.Context, llm llms.LLMProvider, agentName string, messages []llms.Message, cfg *llms.StructuredOutputConfig, out any) error {
	input := ""
	if len(messages) > 0 {
		input = messages[len(messages)-1].Content
	}

	ctx, span := startAgentSpan(ctx, agentName, llm.GetModelName(), input)
	start := time.Now()

	var (
		text   string
		tokens int
		err    error
	)
	if sp, ok := llm.(llms.StructuredOutputProvider); ok && sp.SupportsStructuredOutput() {
		text, tokens, err = sp.GenerateStructured(ctx, messages, cfg)
	} else {
		withHint := append([]llms.Message{llms.System(structuredHint(cfg))}, messages...)
		text, tokens, err = llm.Generate(ctx, withHint)
	}
	finishAgentSpan(ctx, span, agentName, start, tokens, err)
	if err != nil {
		return fmt.Errorf("%s: %w", agentName, err)
	}

	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return fmt.Errorf("%s: malformed structured response: %w", agentName, err)
	}
	return nil
}

// structuredHint renders a schema constraint as plain instructions for
// providers that cannot enforce it natively.
func structuredHint(cfg *llms.StructuredOutputConfig) string {
	if cfg != nil && cfg.Format == "enum" && len(cfg.Enum) > 0 {
		return "Respond with exactly one of the following values and nothing else: " + strings.Join(cfg.Enum, ", ")
	}

	hint := "Respond with valid JSON only, no surrounding prose or code fences."
	if cfg != nil && cfg.Schema != nil {
		if data, err := json.Marshal(cfg.Schema); err == nil {
			hint += " The response must match this JSON schema: " + string(data)
		}
	}
	return hint
}

// stripFences removes a Markdown code fence wrapper if present.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
