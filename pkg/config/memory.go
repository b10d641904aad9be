package config

import "fmt"

// MemoryConfig configures the per-student memory bank.
type MemoryConfig struct {
	// Dir is the directory holding per-student memory files.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"title=Directory,description=Directory for per-student memory files,default=./data/memory"`

	// MaxInteractions caps the interaction history kept per student.
	MaxInteractions int `yaml:"max_interactions,omitempty" json:"max_interactions,omitempty" jsonschema:"title=Max Interactions,description=Interaction history cap per student,minimum=1,default=50"`

	// CompactThreshold is the interaction count that triggers compaction.
	CompactThreshold int `yaml:"compact_threshold,omitempty" json:"compact_threshold,omitempty" jsonschema:"title=Compact Threshold,description=Interaction count triggering compaction,minimum=1,default=100"`
}

// SetDefaults applies default values.
func (c *MemoryConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "./data/memory"
	}
	if c.MaxInteractions == 0 {
		c.MaxInteractions = 50
	}
	if c.CompactThreshold == 0 {
		c.CompactThreshold = 100
	}
}

// Validate checks the memory configuration.
func (c *MemoryConfig) Validate() error {
	if c.MaxInteractions < 1 {
		return fmt.Errorf("max_interactions must be at least 1")
	}
	if c.CompactThreshold < c.MaxInteractions {
		return fmt.Errorf("compact_threshold must be >= max_interactions")
	}
	return nil
}

// ProgressConfig configures the per-student progress store.
type ProgressConfig struct {
	// Dir is the directory holding per-student progress files.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"title=Directory,description=Directory for per-student progress files,default=./data/progress"`

	// WeakThreshold marks topics below this average score as weak.
	WeakThreshold float64 `yaml:"weak_threshold,omitempty" json:"weak_threshold,omitempty" jsonschema:"title=Weak Threshold,description=Average score below which a topic is weak,minimum=0,maximum=100,default=70"`

	// StrongThreshold marks topics at or above this average as strong.
	StrongThreshold float64 `yaml:"strong_threshold,omitempty" json:"strong_threshold,omitempty" jsonschema:"title=Strong Threshold,description=Average score at or above which a topic is strong,minimum=0,maximum=100,default=85"`
}

// SetDefaults applies default values.
func (c *ProgressConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "./data/progress"
	}
	if c.WeakThreshold == 0 {
		c.WeakThreshold = 70
	}
	if c.StrongThreshold == 0 {
		c.StrongThreshold = 85
	}
}

// Validate checks the progress configuration.
func (c *ProgressConfig) Validate() error {
	if c.WeakThreshold < 0 || c.WeakThreshold > 100 {
		return fmt.Errorf("weak_threshold must be between 0 and 100")
	}
	if c.StrongThreshold < 0 || c.StrongThreshold > 100 {
		return fmt.Errorf("strong_threshold must be between 0 and 100")
	}
	if c.WeakThreshold > c.StrongThreshold {
		return fmt.Errorf("weak_threshold must not exceed strong_threshold")
	}
	return nil
}
