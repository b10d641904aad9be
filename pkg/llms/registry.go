package llms

import (
	"context"
	"fmt"

	"github.com/edumentor-ai/edumentor/pkg/config"
	"github.com/edumentor-ai/edumentor/pkg/registry"
)

// LLMProvider is the generation interface shared by all providers.
type LLMProvider interface {
	// Generate performs a non-streaming request.
	// Returns the response text and total tokens used.
	Generate(ctx context.Context, messages []Message) (text string, tokens int, err error)

	// GenerateStreaming performs a streaming request. The returned
	// channel is closed after the "done" or "error" chunk.
	GenerateStreaming(ctx context.Context, messages []Message) (<-chan StreamChunk, error)

	GetModelName() string

	GetMaxTokens() int

	GetTemperature() float64

	Close() error
}

// StructuredOutputProvider is implemented by providers that can
// constrain output to a JSON schema or enum.
type StructuredOutputProvider interface {
	LLMProvider

	GenerateStructured(ctx context.Context, messages []Message, config *StructuredOutputConfig) (text string, tokens int, err error)

	SupportsStructuredOutput() bool
}

// LLMRegistry holds named providers.
type LLMRegistry struct {
	*registry.BaseRegistry[LLMProvider]
}

func NewLLMRegistry() *LLMRegistry {
	return &LLMRegistry{
		BaseRegistry: registry.NewBaseRegistry[LLMProvider](),
	}
}

func (r *LLMRegistry) RegisterLLM(name string, provider LLMProvider) error {
	if name == "" {
		return fmt.Errorf("LLM name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("LLM provider cannot be nil")
	}
	return r.Register(name, provider)
}

// CreateFromConfig builds a provider from config and registers it.
func (r *LLMRegistry) CreateFromConfig(name string, cfg config.LLMConfig) (LLMProvider, error) {
	if name == "" {
		return nil, fmt.Errorf("LLM name cannot be empty")
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	if err := r.RegisterLLM(name, provider); err != nil {
		return nil, fmt.Errorf("failed to register LLM: %w", err)
	}

	return provider, nil
}

// GetLLM returns a registered provider by name.
func (r *LLMRegistry) GetLLM(name string) (LLMProvider, error) {
	provider, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("LLM provider '%s' not found", name)
	}
	return provider, nil
}

// NewProvider builds a provider from config without registering it.
func NewProvider(cfg config.LLMConfig) (LLMProvider, error) {
	switch cfg.Provider {
	case config.LLMProviderGemini:
		return NewGeminiProvider(cfg)
	case config.LLMProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case config.LLMProviderAnthropic:
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: gemini, openai, anthropic)", cfg.Provider)
	}
}
