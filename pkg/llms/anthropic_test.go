package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

func anthropicTestConfig(baseURL string) config.LLMConfig {
	temp := 0.7
	return config.LLMConfig{
		Provider:    config.LLMProviderAnthropic,
		Model:       "claude-sonnet-4-20250514",
		APIKey:      "test-api-key",
		BaseURL:     baseURL,
		Temperature: &temp,
		MaxTokens:   2048,
		Timeout:     config.Duration(10 * time.Second),
		MaxRetries:  0,
	}
}

func TestNewAnthropicProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LLMConfig
		wantErr bool
	}{
		{
			name:    "valid configuration",
			config:  anthropicTestConfig(""),
			wantErr: false,
		},
		{
			name: "missing API key",
			config: config.LLMConfig{
				Provider: config.LLMProviderAnthropic,
				Model:    "claude-sonnet-4-20250514",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewAnthropicProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAnthropicProvider() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && provider == nil {
				t.Error("Expected provider to be created, got nil")
			}
		})
	}
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var gotKey, gotVersion string
	var gotReq AnthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		resp := AnthropicResponse{
			Content: []AnthropicContent{
				{Type: "text", Text: "Good question. What do you already know?"},
			},
			StopReason: "end_turn",
			Usage:      AnthropicUsage{InputTokens: 14, OutputTokens: 9},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(anthropicTestConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	text, tokens, err := provider.Generate(context.Background(), []Message{
		System("You are a Socratic tutor."),
		User("Why does ice float?"),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Good question. What do you already know?" {
		t.Errorf("Generate() text = %q", text)
	}
	if tokens != 23 {
		t.Errorf("Generate() tokens = %d, want 23", tokens)
	}

	if gotKey != "test-api-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != anthropicAPIVersion {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if gotReq.System != "You are a Socratic tutor." {
		t.Errorf("System = %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("Messages = %+v, want single user message", gotReq.Messages)
	}
}

func TestAnthropicProvider_GenerateStructured_StripsFences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := AnthropicResponse{
			Content: []AnthropicContent{
				{Type: "text", Text: "```json\n{\"answer\":\"4\"}\n```"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(anthropicTestConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	text, _, err := provider.GenerateStructured(context.Background(),
		[]Message{User("2+2?")}, &StructuredOutputConfig{Format: "json"})
	if err != nil {
		t.Fatalf("GenerateStructured() error = %v", err)
	}
	if text != `{"answer":"4"}` {
		t.Errorf("GenerateStructured() = %q", text)
	}
}

func TestAnthropicProvider_Generate_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := AnthropicResponse{
			Error: &AnthropicError{
				Type:    "rate_limit_error",
				Message: "Number of requests has exceeded your rate limit",
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(anthropicTestConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, _, err = provider.Generate(context.Background(), []Message{User("hi")})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !IsRateLimited(err) {
		t.Errorf("Expected rate-limit error, got %v", err)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no fences",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "json fence",
			in:   "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "bare fence",
			in:   "```\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.in); got != tt.want {
				t.Errorf("stripCodeFences() = %q, want %q", got, tt.want)
			}
		})
	}
}
