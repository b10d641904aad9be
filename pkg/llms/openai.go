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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements LLMProvider against the chat completions API.
type OpenAIProvider struct {
	config     config.LLMConfig
	baseURL    string
	httpClient *httpclient.Client
}

type OpenAIRequest struct {
	Model          string                `json:"model"`
	Messages       []OpenAIMessage       `json:"messages"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	Stream         bool                  `json:"stream"`
	ResponseFormat *OpenAIResponseFormat `json:"response_format,omitempty"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIResponse struct {
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
	Error   *OpenAIError   `json:"error,omitempty"`
}

type OpenAIStreamResponse struct {
	Choices []OpenAIStreamChoice `json:"choices"`
	Usage   *OpenAIUsage         `json:"usage,omitempty"`
	Error   *OpenAIError         `json:"error,omitempty"`
}

type OpenAIChoice struct {
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIStreamChoice struct {
	Delta        OpenAIDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type OpenAIDelta struct {
	Content string `json:"content,omitempty"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type OpenAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type OpenAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *OpenAIJSONSchema `json:"json_schema,omitempty"`
}

type OpenAIJSONSchema struct {
	Name   string                 `json:"name"`
	Schema map[string]interface{} `json:"schema"`
	Strict bool                   `json:"strict,omitempty"`
}

// NewOpenAIProvider creates a new OpenAI provider from configuration.
func NewOpenAIProvider(cfg config.LLMConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &OpenAIProvider{
		config:     cfg,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: createHTTPClient(cfg, httpclient.ParseOpenAIHeaders),
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message) (string, int, error) {
	return p.generate(ctx, messages, nil)
}

func (p *OpenAIProvider) GenerateStructured(ctx context.Context, messages []Message, structConfig *StructuredOutputConfig) (string, int, error) {
	return p.generate(ctx, messages, structConfig)
}

func (p *OpenAIProvider) generate(ctx context.Context, messages []Message, structConfig *StructuredOutputConfig) (string, int, error) {
	start := time.Now()
	ctx, span := startLLMSpan(ctx, "openai", p.config.Model, structConfig != nil)

	req := p.buildRequest(messages, false, structConfig)

	response, err := p.makeRequest(ctx, req)
	if err != nil {
		finishLLMSpan(ctx, span, p.config.Model, start, 0, 0, err)
		return "", 0, err
	}

	if len(response.Choices) == 0 {
		noChoiceErr := fmt.Errorf("no response choices returned")
		finishLLMSpan(ctx, span, p.config.Model, start, 0, 0, noChoiceErr)
		return "", 0, noChoiceErr
	}

	finishLLMSpan(ctx, span, p.config.Model, start,
		response.Usage.PromptTokens, response.Usage.CompletionTokens, nil)

	return response.Choices[0].Message.Content, response.Usage.TotalTokens, nil
}

func (p *OpenAIProvider) GenerateStreaming(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
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
			chunks <- StreamChunk{Type: "error", Error: wrapTransportError("openai", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			chunks <- StreamChunk{Type: "error",
				Error: fmt.Errorf("OpenAI API error (HTTP %d): %s", resp.StatusCode, string(bodyBytes))}
			return
		}

		p.parseStreamingResponse(resp.Body, chunks)
	}()

	return chunks, nil
}

func (p *OpenAIProvider) SupportsStructuredOutput() bool {
	return true
}

func (p *OpenAIProvider) GetModelName() string {
	return p.config.Model
}

func (p *OpenAIProvider) GetMaxTokens() int {
	return p.config.MaxTokens
}

func (p *OpenAIProvider) GetTemperature() float64 {
	if p.config.Temperature == nil {
		return 0.7
	}
	return *p.config.Temperature
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) buildRequest(messages []Message, stream bool, structConfig *StructuredOutputConfig) *OpenAIRequest {
	converted := make([]OpenAIMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, OpenAIMessage{Role: msg.Role, Content: msg.Content})
	}

	req := &OpenAIRequest{
		Model:       p.config.Model,
		Messages:    converted,
		Temperature: p.GetTemperature(),
		Stream:      stream,
	}

	if p.config.MaxTokens > 0 {
		maxTokens := p.config.MaxTokens
		req.MaxTokens = &maxTokens
	}

	if structConfig != nil {
		switch structConfig.Format {
		case "json":
			if schema, ok := structConfig.Schema.(map[string]interface{}); ok {
				req.ResponseFormat = &OpenAIResponseFormat{
					Type: "json_schema",
					JSONSchema: &OpenAIJSONSchema{
						Name:   "response",
						Schema: schema,
						Strict: true,
					},
				}
			} else {
				req.ResponseFormat = &OpenAIResponseFormat{Type: "json_object"}
			}
		case "enum":
			// No native enum mode; constrain via an added instruction.
			req.Messages = append(req.Messages, OpenAIMessage{
				Role: "system",
				Content: fmt.Sprintf("Respond with exactly one of the following values and nothing else: %s",
					strings.Join(structConfig.Enum, ", ")),
			})
		}
	}

	return req
}

func (p *OpenAIProvider) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	return httpReq, nil
}

func (p *OpenAIProvider) makeRequest(ctx context.Context, req *OpenAIRequest) (*OpenAIResponse, error) {
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
		return nil, wrapTransportError("openai", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var openaiResp OpenAIResponse
	if err := json.Unmarshal(respBody, &openaiResp); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	if openaiResp.Error != nil {
		if openaiResp.Error.Type == "insufficient_quota" || openaiResp.Error.Code == "rate_limit_exceeded" {
			return nil, &RateLimitError{
				Provider: "openai",
				Err:      fmt.Errorf("OpenAI API error: %s", openaiResp.Error.Message),
			}
		}
		return nil, fmt.Errorf("OpenAI API error: %s", openaiResp.Error.Message)
	}

	return &openaiResp, nil
}

func (p *OpenAIProvider) parseStreamingResponse(body io.Reader, chunks chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	totalTokens := 0

	for scanner.Scan() {
		line := scanner.Text()

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			break
		}

		var resp OpenAIStreamResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			continue
		}

		if resp.Error != nil {
			chunks <- StreamChunk{Type: "error", Error: fmt.Errorf("%s", resp.Error.Message)}
			return
		}

		if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
			chunks <- StreamChunk{Type: "text", Text: resp.Choices[0].Delta.Content}
		}

		if resp.Usage != nil {
			totalTokens = resp.Usage.TotalTokens
		}
	}

	chunks <- StreamChunk{Type: "done", Tokens: totalTokens}
}

var (
	_ LLMProvider              = (*OpenAIProvider)(nil)
	_ StructuredOutputProvider = (*OpenAIProvider)(nil)
)
