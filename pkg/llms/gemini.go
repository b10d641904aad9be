package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/config"
	"github.com/edumentor-ai/edumentor/pkg/httpclient"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider implements LLMProvider against the Gemini REST API.
// Reference: https://ai.google.dev/gemini-api/docs/structured-output
type GeminiProvider struct {
	config     config.LLMConfig
	baseURL    string
	httpClient *httpclient.Client
}

// GeminiRequest represents the request payload for the Gemini API.
type GeminiRequest struct {
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiGenerationConfig configures generation parameters.
type GeminiGenerationConfig struct {
	Temperature      *float64               `json:"temperature,omitempty"`
	MaxOutputTokens  int                    `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string                 `json:"responseMimeType,omitempty"` // "application/json" or "text/x.enum"
	ResponseSchema   map[string]interface{} `json:"responseSchema,omitempty"`
}

// GeminiContent represents content in a message.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart is one part of content.
type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

// GeminiResponse represents the response from the Gemini API.
type GeminiResponse struct {
	Candidates    []GeminiCandidate    `json:"candidates"`
	UsageMetadata *GeminiUsageMetadata `json:"usageMetadata,omitempty"`
	Error         *GeminiError         `json:"error,omitempty"`
}

// GeminiCandidate represents a candidate response.
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// GeminiUsageMetadata represents token usage information.
type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GeminiError represents an API error.
type GeminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewGeminiProvider creates a new Gemini provider from configuration.
func NewGeminiProvider(cfg config.LLMConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &GeminiProvider{
		config:     cfg,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: createHTTPClient(cfg, httpclient.ParseGeminiHeaders),
	}, nil
}

// Generate generates a non-streaming response.
func (p *GeminiProvider) Generate(ctx context.Context, messages []Message) (string, int, error) {
	return p.generate(ctx, messages, nil)
}

// GenerateStructured generates a response constrained to a schema or enum.
func (p *GeminiProvider) GenerateStructured(ctx context.Context, messages []Message, structConfig *StructuredOutputConfig) (string, int, error) {
	return p.generate(ctx, messages, structConfig)
}

func (p *GeminiProvider) generate(ctx context.Context, messages []Message, structConfig *StructuredOutputConfig) (string, int, error) {
	start := time.Now()
	ctx, span := startLLMSpan(ctx, "gemini", p.config.Model, structConfig != nil)

	req := p.buildRequest(messages, structConfig)

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		p.baseURL, p.config.Model, p.config.APIKey)

	geminiResp, err := p.makeRequest(ctx, url, req)
	if err != nil {
		finishLLMSpan(ctx, span, p.config.Model, start, 0, 0, err)
		return "", 0, err
	}

	text, tokens, err := p.parseResponse(geminiResp)

	inTokens, outTokens := 0, 0
	if geminiResp.UsageMetadata != nil {
		inTokens = geminiResp.UsageMetadata.PromptTokenCount
		outTokens = geminiResp.UsageMetadata.CandidatesTokenCount
	}
	finishLLMSpan(ctx, span, p.config.Model, start, inTokens, outTokens, err)

	return text, tokens, err
}

// GenerateStreaming generates a streaming response over SSE.
func (p *GeminiProvider) GenerateStreaming(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	req := p.buildRequest(messages, nil)

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?key=%s&alt=sse",
		p.baseURL, p.config.Model, p.config.APIKey)

	chunks := make(chan StreamChunk, 10)

	go func() {
		defer close(chunks)

		reqBody, _ := json.Marshal(req)
		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
		if err != nil {
			chunks <- StreamChunk{Type: "error", Error: err}
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			chunks <- StreamChunk{Type: "error", Error: wrapTransportError("gemini", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("Gemini API error (HTTP %d): %s", resp.StatusCode, string(bodyBytes))
			chunks <- StreamChunk{Type: "error", Error: err}
			return
		}

		p.parseStreamingResponse(resp.Body, chunks)
	}()

	return chunks, nil
}

// SupportsStructuredOutput returns true; Gemini supports schema and
// enum constrained output natively.
func (p *GeminiProvider) SupportsStructuredOutput() bool {
	return true
}

func (p *GeminiProvider) GetModelName() string {
	return p.config.Model
}

func (p *GeminiProvider) GetMaxTokens() int {
	return p.config.MaxTokens
}

func (p *GeminiProvider) GetTemperature() float64 {
	if p.config.Temperature == nil {
		return 0.7
	}
	return *p.config.Temperature
}

func (p *GeminiProvider) Close() error {
	return nil
}

func (p *GeminiProvider) makeRequest(ctx context.Context, url string, req *GeminiRequest) (*GeminiResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError("gemini", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	if geminiResp.Error != nil {
		if geminiResp.Error.Code == http.StatusTooManyRequests || isQuotaStatus(geminiResp.Error.Status) {
			return nil, &RateLimitError{
				Provider: "gemini",
				Err:      fmt.Errorf("Gemini API error: %s", geminiResp.Error.Message),
			}
		}
		return nil, fmt.Errorf("Gemini API error: %s", geminiResp.Error.Message)
	}

	return &geminiResp, nil
}

// buildRequest builds a Gemini API request. System messages become the
// systemInstruction; assistant messages map to the "model" role.
func (p *GeminiProvider) buildRequest(messages []Message, structConfig *StructuredOutputConfig) *GeminiRequest {
	system, rest := splitSystem(messages)

	req := &GeminiRequest{
		Contents:         p.convertMessages(rest),
		GenerationConfig: p.buildGenerationConfig(structConfig),
	}

	if system != "" {
		req.SystemInstruction = &GeminiContent{
			Parts: []GeminiPart{{Text: system}},
		}
	}

	return req
}

func (p *GeminiProvider) buildGenerationConfig(structConfig *StructuredOutputConfig) *GeminiGenerationConfig {
	genConfig := &GeminiGenerationConfig{
		MaxOutputTokens: p.config.MaxTokens,
	}

	// Gemini uses its own default when temperature is omitted
	if p.config.Temperature != nil && *p.config.Temperature > 0 {
		temp := *p.config.Temperature
		genConfig.Temperature = &temp
	}

	if structConfig != nil {
		switch structConfig.Format {
		case "json":
			genConfig.ResponseMimeType = "application/json"
			if structConfig.Schema != nil {
				genConfig.ResponseSchema = p.convertSchema(structConfig.Schema, structConfig.PropertyOrdering)
			}
		case "enum":
			genConfig.ResponseMimeType = "text/x.enum"
			if len(structConfig.Enum) > 0 {
				genConfig.ResponseSchema = map[string]interface{}{
					"type": "string",
					"enum": structConfig.Enum,
				}
			}
		}
	}

	return genConfig
}

// convertSchema attaches property ordering to a schema map when given.
func (p *GeminiProvider) convertSchema(schema interface{}, propertyOrdering []string) map[string]interface{} {
	schemaMap, ok := schema.(map[string]interface{})
	if !ok {
		return nil
	}

	if len(propertyOrdering) > 0 {
		schemaMap["propertyOrdering"] = propertyOrdering
	}

	return schemaMap
}

func (p *GeminiProvider) convertMessages(messages []Message) []GeminiContent {
	var contents []GeminiContent

	for _, msg := range messages {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}

		if msg.Content == "" {
			continue
		}

		contents = append(contents, GeminiContent{
			Role:  role,
			Parts: []GeminiPart{{Text: msg.Content}},
		})
	}

	return contents
}

func (p *GeminiProvider) parseResponse(resp *GeminiResponse) (string, int, error) {
	if len(resp.Candidates) == 0 {
		return "", 0, fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	var textParts []string

	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = resp.UsageMetadata.TotalTokenCount
	}

	return strings.Join(textParts, ""), tokens, nil
}

// parseStreamingResponse reads SSE lines and forwards text deltas.
func (p *GeminiProvider) parseStreamingResponse(body io.Reader, chunks chan<- StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	totalTokens := 0

	for scanner.Scan() {
		line := scanner.Text()

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var resp GeminiResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			slog.Debug("Skipping malformed SSE chunk", "error", err)
			continue
		}

		if resp.Error != nil {
			chunks <- StreamChunk{Type: "error", Error: fmt.Errorf("%s", resp.Error.Message)}
			return
		}

		if len(resp.Candidates) > 0 {
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					chunks <- StreamChunk{Type: "text", Text: part.Text}
				}
			}
		}

		if resp.UsageMetadata != nil {
			totalTokens = resp.UsageMetadata.TotalTokenCount
		}
	}

	chunks <- StreamChunk{Type: "done", Tokens: totalTokens}
}

var (
	_ LLMProvider              = (*GeminiProvider)(nil)
	_ StructuredOutputProvider = (*GeminiProvider)(nil)
)
