package config

import "fmt"

// AgentConfig holds per-agent overrides on top of the base LLM config.
// Unset fields inherit from the llm section.
type AgentConfig struct {
	// Model overrides the LLM model for this agent.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model override for this agent"`

	// Temperature overrides the sampling temperature.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature,description=Temperature override,minimum=0,maximum=2"`

	// MaxTokens overrides the response length limit.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"title=Max Tokens,description=Max tokens override,minimum=1"`
}

// Validate checks the agent overrides.
func (c *AgentConfig) Validate() error {
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	return nil
}

// AgentsConfig configures the tutoring agents.
type AgentsConfig struct {
	// Tutor is the Socratic teaching agent.
	Tutor AgentConfig `yaml:"tutor,omitempty" json:"tutor,omitempty"`

	// Quiz is the practice question generator.
	Quiz AgentConfig `yaml:"quiz,omitempty" json:"quiz,omitempty"`

	// Tracker is the progress analysis agent.
	Tracker AgentConfig `yaml:"tracker,omitempty" json:"tracker,omitempty"`

	// Explainer is the concept explanation agent.
	Explainer AgentConfig `yaml:"explainer,omitempty" json:"explainer,omitempty"`

	// QuizQuestions is the default number of questions per quiz.
	QuizQuestions int `yaml:"quiz_questions,omitempty" json:"quiz_questions,omitempty" jsonschema:"title=Quiz Questions,description=Default number of questions per quiz,minimum=1,default=5"`

	// ExplainerDetail is the default explanation depth (simple, medium, detailed).
	ExplainerDetail string `yaml:"explainer_detail,omitempty" json:"explainer_detail,omitempty" jsonschema:"title=Explainer Detail,description=Default explanation depth,enum=simple,enum=medium,enum=detailed,default=medium"`
}

// SetDefaults applies default values.
func (c *AgentsConfig) SetDefaults() {
	if c.QuizQuestions == 0 {
		c.QuizQuestions = 5
	}
	if c.ExplainerDetail == "" {
		c.ExplainerDetail = "medium"
	}
	// The quiz agent needs deterministic structured output; keep it cool
	// unless explicitly overridden.
	if c.Quiz.Temperature == nil {
		c.Quiz.Temperature = FloatPtr(0.3)
	}
}

// Validate checks all agent overrides.
func (c *AgentsConfig) Validate() error {
	agents := map[string]*AgentConfig{
		"tutor":     &c.Tutor,
		"quiz":      &c.Quiz,
		"tracker":   &c.Tracker,
		"explainer": &c.Explainer,
	}
	for name, agent := range agents {
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("agents.%s: %w", name, err)
		}
	}

	switch c.ExplainerDetail {
	case "", "simple", "medium", "detailed":
	default:
		return fmt.Errorf("invalid explainer_detail %q (valid: simple, medium, detailed)", c.ExplainerDetail)
	}

	if c.QuizQuestions < 0 {
		return fmt.Errorf("quiz_questions must be non-negative")
	}

	return nil
}

// Resolve merges the base LLM config with an agent's overrides.
func (c *AgentConfig) Resolve(base LLMConfig) LLMConfig {
	resolved := base
	if c.Model != "" {
		resolved.Model = c.Model
	}
	if c.Temperature != nil {
		resolved.Temperature = c.Temperature
	}
	if c.MaxTokens > 0 {
		resolved.MaxTokens = c.MaxTokens
	}
	return resolved
}
