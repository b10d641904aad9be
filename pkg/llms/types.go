// Package llms provides the LLM provider abstraction and raw HTTP
// implementations for Gemini, OpenAI, and Anthropic.
package llms

// Message is a single chat message sent to a provider.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// System, User, and Assistant build messages with the matching role.
func System(content string) Message {
	return Message{Role: "system", Content: content}
}

func User(content string) Message {
	return Message{Role: "user", Content: content}
}

func Assistant(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// StreamChunk is one unit of a streaming response.
type StreamChunk struct {
	// Type is "text", "done", or "error".
	Type string

	// Text carries the delta for "text" chunks.
	Text string

	// Tokens carries the total token count on the "done" chunk.
	Tokens int

	// Error carries the failure for "error" chunks.
	Error error
}

// StructuredOutputConfig constrains provider output shape.
type StructuredOutputConfig struct {
	// Format is "json" or "enum".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Schema is a JSON Schema (as a map) applied when Format is "json".
	Schema interface{} `json:"schema,omitempty" yaml:"schema,omitempty"`

	// Enum lists the allowed values when Format is "enum".
	Enum []string `json:"enum,omitempty" yaml:"enum,omitempty"`

	// PropertyOrdering hints the key order for providers that support it.
	PropertyOrdering []string `json:"property_ordering,omitempty" yaml:"property_ordering,omitempty"`
}

// JSONSchema is a minimal JSON Schema representation for structured
// output requests.
type JSONSchema struct {
	Type                 string                `json:"type"`
	Properties           map[string]JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema           `json:"items,omitempty"`
	Required             []string              `json:"required,omitempty"`
	Enum                 []string              `json:"enum,omitempty"`
	Description          string                `json:"description,omitempty"`
	PropertyOrdering     []string              `json:"propertyOrdering,omitempty"`
	AdditionalProperties *bool                 `json:"additionalProperties,omitempty"`
}

// splitSystem separates system messages from the conversation, joining
// multiple system messages with blank lines.
func splitSystem(messages []Message) (system string, rest []Message) {
	for _, msg := range messages {
		if msg.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
