package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

func openaiTestConfig(baseURL string) config.LLMConfig {
	temp := 0.7
	return config.LLMConfig{
		Provider:    config.LLMProviderOpenAI,
		Model:       "gpt-4o",
		APIKey:      "test-api-key",
		BaseURL:     baseURL,
		Temperature: &temp,
		MaxTokens:   2048,
		Timeout:     config.Duration(10 * time.Second),
		MaxRetries:  0,
	}
}

func TestNewOpenAIProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LLMConfig
		wantErr bool
	}{
		{
			name:    "valid configuration",
			config:  openaiTestConfig(""),
			wantErr: false,
		},
		{
			name: "missing API key",
			config: config.LLMConfig{
				Provider: config.LLMProviderOpenAI,
				Model:    "gpt-4o",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewOpenAIProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewOpenAIProvider() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && provider == nil {
				t.Error("Expected provider to be created, got nil")
			}
		})
	}
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var gotAuth string
	var gotReq OpenAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		resp := OpenAIResponse{
			Choices: []OpenAIChoice{
				{Message: OpenAIMessage{Role: "assistant", Content: "A fraction is a part of a whole."}},
			},
			Usage: OpenAIUsage{PromptTokens: 10, CompletionTokens: 8, TotalTokens: 18},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(openaiTestConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	text, tokens, err := provider.Generate(context.Background(), []Message{
		System("You are a tutor."),
		User("What is a fraction?"),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "A fraction is a part of a whole." {
		t.Errorf("Generate() text = %q", text)
	}
	if tokens != 18 {
		t.Errorf("Generate() tokens = %d, want 18", tokens)
	}

	if gotAuth != "Bearer test-api-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("Messages = %+v, want system then user", gotReq.Messages)
	}
}

func TestOpenAIProvider_GenerateStructured_JSONSchema(t *testing.T) {
	var gotReq OpenAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		resp := OpenAIResponse{
			Choices: []OpenAIChoice{
				{Message: OpenAIMessage{Role: "assistant", Content: `{"answer":"4"}`}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(openaiTestConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	structConfig := &StructuredOutputConfig{
		Format: "json",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"answer": map[string]interface{}{"type": "string"},
			},
		},
	}

	text, _, err := provider.GenerateStructured(context.Background(),
		[]Message{User("2+2?")}, structConfig)
	if err != nil {
		t.Fatalf("GenerateStructured() error = %v", err)
	}
	if text != `{"answer":"4"}` {
		t.Errorf("GenerateStructured() = %q", text)
	}

	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_schema" {
		t.Fatalf("ResponseFormat = %+v, want json_schema", gotReq.ResponseFormat)
	}
	if !gotReq.ResponseFormat.JSONSchema.Strict {
		t.Error("Expected strict schema mode")
	}
}

func TestOpenAIProvider_GenerateStructured_Enum(t *testing.T) {
	var gotReq OpenAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		resp := OpenAIResponse{
			Choices: []OpenAIChoice{
				{Message: OpenAIMessage{Role: "assistant", Content: "progress"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(openaiTestConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	structConfig := &StructuredOutputConfig{
		Format: "enum",
		Enum:   []string{"explanation", "practice", "progress"},
	}

	text, _, err := provider.GenerateStructured(context.Background(),
		[]Message{User("How am I doing?")}, structConfig)
	if err != nil {
		t.Fatalf("GenerateStructured() error = %v", err)
	}
	if text != "progress" {
		t.Errorf("GenerateStructured() = %q, want progress", text)
	}

	last := gotReq.Messages[len(gotReq.Messages)-1]
	if last.Role != "system" {
		t.Errorf("Expected trailing system constraint message, got role %q", last.Role)
	}
}

func TestOpenAIProvider_Generate_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := OpenAIResponse{
			Error: &OpenAIError{
				Message: "You exceeded your current quota",
				Type:    "insufficient_quota",
				Code:    "insufficient_quota",
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(openaiTestConfig(server.URL))
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

func TestOpenAIProvider_GenerateStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []OpenAIStreamResponse{
			{Choices: []OpenAIStreamChoice{{Delta: OpenAIDelta{Content: "Let's "}}}},
			{Choices: []OpenAIStreamChoice{{Delta: OpenAIDelta{Content: "begin"}}}},
			{Usage: &OpenAIUsage{TotalTokens: 11}},
		}
		for _, e := range events {
			data, _ := json.Marshal(e)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(openaiTestConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	chunks, err := provider.GenerateStreaming(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("GenerateStreaming() error = %v", err)
	}

	var text string
	var doneTokens int
	for chunk := range chunks {
		switch chunk.Type {
		case "text":
			text += chunk.Text
		case "done":
			doneTokens = chunk.Tokens
		case "error":
			t.Fatalf("Unexpected error chunk: %v", chunk.Error)
		}
	}

	if text != "Let's begin" {
		t.Errorf("Streamed text = %q", text)
	}
	if doneTokens != 11 {
		t.Errorf("Done tokens = %d, want 11", doneTokens)
	}
}
