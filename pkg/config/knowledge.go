package config

import (
	"fmt"
	"time"
)

// MCPTransport identifies how to reach an MCP server.
type MCPTransport string

const (
	MCPTransportStdio MCPTransport = "stdio"
	MCPTransportHTTP  MCPTransport = "http"
)

// MCPConfig configures a Model Context Protocol knowledge source.
type MCPConfig struct {
	// Enabled turns the MCP retriever on.
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Enable the MCP knowledge retriever,default=false"`

	// Transport selects stdio (spawned process) or http.
	Transport MCPTransport `yaml:"transport,omitempty" json:"transport,omitempty" jsonschema:"title=Transport,description=MCP transport,enum=stdio,enum=http,default=http"`

	// URL of the MCP server (http transport).
	URL string `yaml:"url,omitempty" json:"url,omitempty" jsonschema:"title=URL,description=MCP server URL (http transport)"`

	// Command to spawn the MCP server (stdio transport).
	Command string `yaml:"command,omitempty" json:"command,omitempty" jsonschema:"title=Command,description=Command to spawn MCP server (stdio transport)"`

	// Args passed to the spawned command.
	Args []string `yaml:"args,omitempty" json:"args,omitempty" jsonschema:"title=Args,description=Arguments for the spawned command"`

	// Tool is the MCP tool name used for knowledge search.
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty" jsonschema:"title=Tool,description=MCP tool name for knowledge search,default=search"`

	// Timeout for a single tool call.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Tool call timeout,default=30s"`
}

// KnowledgeConfig configures knowledge retrieval.
type KnowledgeConfig struct {
	// MCP configures the external knowledge source.
	MCP MCPConfig `yaml:"mcp,omitempty" json:"mcp,omitempty"`

	// Local enables the built-in fact store, used standalone or as
	// fallback when MCP or the model API is unavailable.
	Local *bool `yaml:"local,omitempty" json:"local,omitempty" jsonschema:"title=Local,description=Enable the built-in fact store,default=true"`

	// MaxFacts caps how many facts a retrieval returns.
	MaxFacts int `yaml:"max_facts,omitempty" json:"max_facts,omitempty" jsonschema:"title=Max Facts,description=Maximum facts per retrieval,minimum=1,default=3"`
}

// SetDefaults applies default values.
func (c *KnowledgeConfig) SetDefaults() {
	if c.MCP.Transport == "" {
		c.MCP.Transport = MCPTransportHTTP
	}
	if c.MCP.Tool == "" {
		c.MCP.Tool = "search"
	}
	if c.MCP.Timeout == 0 {
		c.MCP.Timeout = Duration(30 * time.Second)
	}
	if c.Local == nil {
		c.Local = BoolPtr(true)
	}
	if c.MaxFacts == 0 {
		c.MaxFacts = 3
	}
}

// LocalEnabled reports whether the built-in fact store is enabled.
func (c *KnowledgeConfig) LocalEnabled() bool {
	return BoolValue(c.Local, true)
}

// Validate checks the knowledge configuration.
func (c *KnowledgeConfig) Validate() error {
	if c.MCP.Enabled {
		switch c.MCP.Transport {
		case MCPTransportStdio:
			if c.MCP.Command == "" {
				return fmt.Errorf("mcp.command is required for stdio transport")
			}
		case MCPTransportHTTP:
			if c.MCP.URL == "" {
				return fmt.Errorf("mcp.url is required for http transport")
			}
		default:
			return fmt.Errorf("invalid mcp transport %q (valid: stdio, http)", c.MCP.Transport)
		}
	}

	if !c.MCP.Enabled && !BoolValue(c.Local, true) {
		return fmt.Errorf("at least one knowledge source must be enabled")
	}

	return nil
}
