package llms

import (
	"testing"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

func TestNewProvider(t *testing.T) {
	temp := 0.5
	base := config.LLMConfig{
		Model:       "test-model",
		APIKey:      "test-key",
		Temperature: &temp,
		MaxTokens:   1024,
		Timeout:     config.Duration(10 * time.Second),
	}

	tests := []struct {
		name     string
		provider config.LLMProvider
		wantErr  bool
	}{
		{name: "gemini", provider: config.LLMProviderGemini},
		{name: "openai", provider: config.LLMProviderOpenAI},
		{name: "anthropic", provider: config.LLMProviderAnthropic},
		{name: "unknown", provider: "mistral", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Provider = tt.provider
			provider, err := NewProvider(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if provider == nil {
					t.Fatal("Expected provider, got nil")
				}
				if provider.GetModelName() != "test-model" {
					t.Errorf("GetModelName() = %v", provider.GetModelName())
				}
			}
		})
	}
}

func TestLLMRegistry(t *testing.T) {
	reg := NewLLMRegistry()

	cfg := config.LLMConfig{
		Provider: config.LLMProviderGemini,
		Model:    "gemini-2.0-flash",
		APIKey:   "test-key",
	}

	provider, err := reg.CreateFromConfig("default", cfg)
	if err != nil {
		t.Fatalf("CreateFromConfig() error = %v", err)
	}
	if provider == nil {
		t.Fatal("Expected provider, got nil")
	}

	got, err := reg.GetLLM("default")
	if err != nil {
		t.Fatalf("GetLLM() error = %v", err)
	}
	if got != provider {
		t.Error("GetLLM() returned a different provider")
	}

	if _, err := reg.GetLLM("missing"); err == nil {
		t.Error("Expected error for missing provider")
	}

	if err := reg.RegisterLLM("", provider); err == nil {
		t.Error("Expected error for empty name")
	}
	if err := reg.RegisterLLM("other", nil); err == nil {
		t.Error("Expected error for nil provider")
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		System("first"),
		User("question"),
		System("second"),
		Assistant("answer"),
	})

	if system != "first\n\nsecond" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 2 || rest[0].Role != "user" || rest[1].Role != "assistant" {
		t.Errorf("rest = %+v", rest)
	}
}
