// Package config defines the EduMentor configuration model: YAML files
// with environment expansion, loaded through a Provider abstraction,
// with defaults and validation applied on every section.
package config

import (
	"fmt"

	"github.com/edumentor-ai/edumentor/pkg/observability"
)

// Config is the root configuration.
type Config struct {
	// LLM is the base model provider configuration.
	LLM LLMConfig `yaml:"llm,omitempty" json:"llm,omitempty"`

	// Agents holds per-agent overrides and knobs.
	Agents AgentsConfig `yaml:"agents,omitempty" json:"agents,omitempty"`

	// Session configures the in-process session manager.
	Session SessionConfig `yaml:"session,omitempty" json:"session,omitempty"`

	// Memory configures the per-student memory bank.
	Memory MemoryConfig `yaml:"memory,omitempty" json:"memory,omitempty"`

	// Progress configures the per-student progress store.
	Progress ProgressConfig `yaml:"progress,omitempty" json:"progress,omitempty"`

	// Knowledge configures knowledge retrieval (MCP and local).
	Knowledge KnowledgeConfig `yaml:"knowledge,omitempty" json:"knowledge,omitempty"`

	// Databases defines named SQL databases referenced by other sections.
	Databases map[string]*DatabaseConfig `yaml:"databases,omitempty" json:"databases,omitempty"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty"`

	// Observability configures tracing and metrics.
	Observability *observability.Config `yaml:"observability,omitempty" json:"observability,omitempty"`

	// Logger configures logging.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty"`
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Agents.SetDefaults()
	c.Session.SetDefaults()
	c.Memory.SetDefaults()
	c.Progress.SetDefaults()
	c.Knowledge.SetDefaults()
	c.Server.SetDefaults()
	c.Logger.SetDefaults()

	for _, db := range c.Databases {
		db.SetDefaults()
	}

	if c.Observability != nil {
		c.Observability.SetDefaults()
	}
}

// Validate checks every section and cross-section references.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Agents.Validate(); err != nil {
		return fmt.Errorf("agents: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Memory.Validate(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	if err := c.Progress.Validate(); err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	if err := c.Knowledge.Validate(); err != nil {
		return fmt.Errorf("knowledge: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	for name, db := range c.Databases {
		if err := db.Validate(); err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
	}

	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return fmt.Errorf("observability: %w", err)
		}
	}

	// Archive database reference must resolve
	if c.Session.Archive.Backend == StorageBackendSQL {
		if _, ok := c.Databases[c.Session.Archive.Database]; !ok {
			return fmt.Errorf("session.archive.database %q not defined in databases", c.Session.Archive.Database)
		}
	}

	return nil
}

// ArchiveDatabase resolves the session archive database config, or nil
// when the archive backend is in-memory.
func (c *Config) ArchiveDatabase() *DatabaseConfig {
	if c.Session.Archive.Backend != StorageBackendSQL {
		return nil
	}
	return c.Databases[c.Session.Archive.Database]
}

// Default returns a config with all defaults applied and no file input.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
