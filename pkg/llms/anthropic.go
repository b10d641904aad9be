package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/config"
	"github.com/edumentor-ai/edumentor/pkg/httpclient"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicProvider implements LLMProvider against the messages API.
type AnthropicProvider struct {
	config     config.LLMConfig
	baseURL    string
	httpClient *httpclient.Client
}

type AnthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []AnthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Stream      bool               `json:"stream,omitempty"`
}

type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnthropicResponse struct {
	Content    []AnthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      AnthropicUsage     `json:"usage"`
	Error      *AnthropicError    `json:"error,omitempty"`
}

type AnthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type AnthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type AnthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage *AnthropicUsage `json:"usage,omitempty"`
	Error *AnthropicError `json:"error,omitempty"`
}

// NewAnthropicProvider creates a new Anthropic provider from configuration.
func NewAnthropicProvider(cfg config.LLMConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	return &AnthropicProvider{
		config:     cfg,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: createHTTPClient(cfg, httpclient.ParseAnthropicHeaders),
	}, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, messages []Message) (string, int, error) {
	return p.generate(ctx, messages, nil)
}

// GenerateStructured constrains the output through an appended
// instruction. The messages API has no response-schema parameter.
func (p *AnthropicProvider) GenerateStructured(ctx context.Context, messages []Message, structConfig *StructuredOutputConfig) (string, int, error) {
	return p.generate(ctx, messages, structConfig)
}

func (p *AnthropicProvider) generate(ctx context.Context, messages []Message, structConfig *StructuredOutputConfig) (string, int, error) {
	start := time.Now()
	ctx, span := startLLMSpan(ctx, "anthropic", p.config.Model, structConfig != nil)

	req := p.buildRequest(messages, false, structConfig)

	response, err := p.makeRequest(ctx, req)
	if err != nil {
		finishLLMSpan(ctx, span, p.config.Model, start, 0, 0, err)
		return "", 0, err
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	finishLLMSpan(ctx, span, p.config.Model, start,
		response.Usage.InputTokens, response.Usage.OutputTokens, nil)

	totalTokens := response.Usage.InputTokens + response.Usage.OutputTokens
	out := text.String()
	if structConfig != nil {
		out = stripCodeFences(out)
	}
	return out, totalTokens, nil
}

func (p *AnthropicProvider) GenerateStreaming(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	req := p.buildRequest(messages, true, nil)

	chunks := make(chan StreamChunk, 10)

	go func() {
		defer close(chunks)

		reqBody, _ := json.Marshal(req)
		httpReq, err := p.newRequest(ctx, reqBody)
		if err != nil {
			chunks <- StreamChunk{Type: "error", Error: err}
			return
		}

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			chunks <- StreamChunk{Type: "error", Error: wrapTransportError("anthropic", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			chunks <- StreamChunk{Type: "error",
				Error: fmt.Errorf("Anthropic API error (HTTP %d): %s", resp.StatusCode, string(bodyBytes))}
			return
		}

		p.parseStreamingResponse(resp.Body, chunks)
	}()

	return chunks, nil
}

func (p *AnthropicProvider) SupportsStructuredOutput() bool {
	return true
}

func (p *AnthropicProvider) GetModelName() string {
	return p.config.Model
}

func (p *AnthropicProvider) GetMaxTokens() int {
	return p.config.MaxTokens
}

func (p *AnthropicProvider) GetTemperature() float64 {
	if p.config.Temperature == nil {
		return 0.7
	}
	return *p.config.Temperature
}

func (p *AnthropicProvider) Close() error {
	return nil
}

func (p *AnthropicProvider) buildRequest(messages []Message, stream bool, structConfig *StructuredOutputConfig) *AnthropicRequest {
	system, rest := splitSystem(messages)

	converted := make([]AnthropicMessage, 0, len(rest))
	for _, msg := range rest {
		converted = append(converted, AnthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	maxTokens := p.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	if structConfig != nil {
		instruction := p.structuredInstruction(structConfig)
		if instruction != "" {
			if system != "" {
				system += "\n\n"
			}
			system += instruction
		}
	}

	return &AnthropicRequest{
		Model:       p.config.Model,
		Messages:    converted,
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: p.GetTemperature(),
		Stream:      stream,
	}
}

func (p *AnthropicProvider) structuredInstruction(structConfig *StructuredOutputConfig) string {
	switch structConfig.Format {
	case "enum":
		return fmt.Sprintf("Respond with exactly one of the following values and nothing else: %s",
			strings.Join(structConfig.Enum, ", "))
	case "json":
		if structConfig.Schema != nil {
			schemaJSON, err := json.Marshal(structConfig.Schema)
			if err == nil {
				return fmt.Sprintf("Respond with a single JSON object matching this schema, with no surrounding prose or code fences:\n%s",
					string(schemaJSON))
			}
		}
		return "Respond with a single JSON object, with no surrounding prose or code fences."
	}
	return ""
}

func (p *AnthropicProvider) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	return httpReq, nil
}

func (p *AnthropicProvider) makeRequest(ctx context.Context, req *AnthropicRequest) (*AnthropicResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := p.newRequest(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError("anthropic", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse Anthropic response: %w", err)
	}

	if anthropicResp.Error != nil {
		if anthropicResp.Error.Type == "rate_limit_error" || anthropicResp.Error.Type == "overloaded_error" {
			return nil, &RateLimitError{
				Provider: "anthropic",
				Err:      fmt.Errorf("Anthropic API error: %s", anthropicResp.Error.Message),
			}
		}
		return nil, fmt.Errorf("Anthropic API error: %s", anthropicResp.Error.Message)
	}

	return &anthropicResp, nil
}

func (p *AnthropicProvider) parseStreamingResponse(body io.Reader, chunks chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	totalTokens := 0

	for scanner.Scan() {
		line := scanner.Text()

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var event AnthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				chunks <- StreamChunk{Type: "text", Text: event.Delta.Text}
			}
		case "message_delta":
			if event.Usage != nil {
				totalTokens += event.Usage.OutputTokens
			}
		case "message_start":
			if event.Usage != nil {
				totalTokens += event.Usage.InputTokens
			}
		case "error":
			if event.Error != nil {
				chunks <- StreamChunk{Type: "error", Error: fmt.Errorf("%s", event.Error.Message)}
				return
			}
		case "message_stop":
			chunks <- StreamChunk{Type: "done", Tokens: totalTokens}
			return
		}
	}

	chunks <- StreamChunk{Type: "done", Tokens: totalTokens}
}

// stripCodeFences removes a markdown code fence wrapper if the model
// ignored the no-fences instruction.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var (
	_ LLMProvider              = (*AnthropicProvider)(nil)
	_ StructuredOutputProvider = (*AnthropicProvider)(nil)
)
