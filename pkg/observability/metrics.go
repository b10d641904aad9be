package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics sets up the OpenTelemetry meter with a Prometheus reader
// and creates the service instruments. Returns an inert PrometheusMetrics
// when metrics are disabled.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("edumentor")

	agentDuration, err := meter.Float64Histogram(
		"edumentor_agent_call_duration_seconds",
		metric.WithDescription("Agent call duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent duration histogram: %w", err)
	}

	agentCalls, err := meter.Int64Counter(
		"edumentor_agent_calls_total",
		metric.WithDescription("Total agent calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent calls counter: %w", err)
	}

	agentErrors, err := meter.Int64Counter(
		"edumentor_agent_errors_total",
		metric.WithDescription("Total agent errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent errors counter: %w", err)
	}

	agentTokens, err := meter.Int64Counter(
		"edumentor_agent_tokens_used_total",
		metric.WithDescription("Total tokens used by agents"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent tokens counter: %w", err)
	}

	llmDuration, err := meter.Float64Histogram(
		"edumentor_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	llmInputTokens, err := meter.Int64Counter(
		"edumentor_llm_tokens_input_total",
		metric.WithDescription("Total input tokens sent to LLM"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	llmOutputTokens, err := meter.Int64Counter(
		"edumentor_llm_tokens_output_total",
		metric.WithDescription("Total output tokens from LLM"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	llmErrors, err := meter.Int64Counter(
		"edumentor_llm_errors_total",
		metric.WithDescription("Total LLM errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	retrievalDuration, err := meter.Float64Histogram(
		"edumentor_retrieval_duration_seconds",
		metric.WithDescription("Knowledge retrieval duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval duration histogram: %w", err)
	}

	retrievalCalls, err := meter.Int64Counter(
		"edumentor_retrieval_calls_total",
		metric.WithDescription("Total knowledge retrievals"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval calls counter: %w", err)
	}

	retrievalErrors, err := meter.Int64Counter(
		"edumentor_retrieval_errors_total",
		metric.WithDescription("Total knowledge retrieval errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval errors counter: %w", err)
	}

	httpDuration, err := meter.Float64Histogram(
		"edumentor_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	httpRequests, err := meter.Int64Counter(
		"edumentor_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	return &PrometheusMetrics{
		agentDuration:     agentDuration,
		agentCallsTotal:   agentCalls,
		agentErrorsTotal:  agentErrors,
		agentTokensTotal:  agentTokens,
		llmDuration:       llmDuration,
		llmInputTokens:    llmInputTokens,
		llmOutputTokens:   llmOutputTokens,
		llmErrorsTotal:    llmErrors,
		retrievalDuration: retrievalDuration,
		retrievalCalls:    retrievalCalls,
		retrievalErrors:   retrievalErrors,
		httpDuration:      httpDuration,
		httpRequests:      httpRequests,
	}, nil
}
