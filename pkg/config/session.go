package config

import (
	"fmt"
	"time"
)

// StorageBackend identifies a storage backend type.
type StorageBackend string

const (
	// StorageBackendInMemory uses in-memory storage (default).
	StorageBackendInMemory StorageBackend = "inmemory"

	// StorageBackendSQL uses a SQL database for persistence.
	StorageBackendSQL StorageBackend = "sql"
)

// SessionConfig configures the in-process session manager.
type SessionConfig struct {
	// MaxMessages caps the exchange history kept per session.
	MaxMessages int `yaml:"max_messages,omitempty" json:"max_messages,omitempty" jsonschema:"title=Max Messages,description=Exchange history cap per session,minimum=1,default=50"`

	// MaxIdle is how long a session may be inactive before cleanup.
	MaxIdle Duration `yaml:"max_idle,omitempty" json:"max_idle,omitempty" jsonschema:"title=Max Idle,description=Inactive session lifetime,default=24h"`

	// ContextWindow is how many recent exchanges feed the LLM context.
	ContextWindow int `yaml:"context_window,omitempty" json:"context_window,omitempty" jsonschema:"title=Context Window,description=Recent exchanges included in LLM context,minimum=1,default=5"`

	// ContextTokenBudget caps the token count of the formatted context.
	ContextTokenBudget int `yaml:"context_token_budget,omitempty" json:"context_token_budget,omitempty" jsonschema:"title=Context Token Budget,description=Token budget for formatted session context,minimum=0,default=1000"`

	// Archive configures where ended sessions are persisted.
	Archive ArchiveConfig `yaml:"archive,omitempty" json:"archive,omitempty"`
}

// ArchiveConfig configures session archival.
type ArchiveConfig struct {
	// Backend specifies the storage backend: "inmemory" (default) or "sql".
	Backend StorageBackend `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"title=Backend,description=Archive storage backend,enum=inmemory,enum=sql,default=inmemory"`

	// Database references a database defined in the databases section.
	// Required when Backend is "sql".
	Database string `yaml:"database,omitempty" json:"database,omitempty" jsonschema:"title=Database,description=Database reference for SQL backend"`
}

// SetDefaults applies default values.
func (c *SessionConfig) SetDefaults() {
	if c.MaxMessages == 0 {
		c.MaxMessages = 50
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = Duration(24 * time.Hour)
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = 5
	}
	if c.ContextTokenBudget == 0 {
		c.ContextTokenBudget = 1000
	}
	if c.Archive.Backend == "" {
		c.Archive.Backend = StorageBackendInMemory
	}
}

// Validate checks the session configuration.
func (c *SessionConfig) Validate() error {
	if c.MaxMessages < 1 {
		return fmt.Errorf("max_messages must be at least 1")
	}
	if c.ContextWindow < 1 {
		return fmt.Errorf("context_window must be at least 1")
	}

	switch c.Archive.Backend {
	case StorageBackendInMemory, StorageBackendSQL:
	default:
		return fmt.Errorf("invalid archive backend %q (valid: inmemory, sql)", c.Archive.Backend)
	}

	if c.Archive.Backend == StorageBackendSQL && c.Archive.Database == "" {
		return fmt.Errorf("archive.database is required for sql backend")
	}

	return nil
}
