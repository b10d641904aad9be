package main

import (
	"context"
	"fmt"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

// loadConfig loads the configuration, falling back to defaults when no
// file is given. The returned loader is nil in the default case.
func loadConfig(ctx context.Context, path string) (*config.Config, *config.Loader, error) {
	if err := config.LoadEnvFiles(path); err != nil {
		return nil, nil, err
	}

	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("default config: %w", err)
		}
		return cfg, nil, nil
	}

	cfg, loader, err := config.LoadConfigFile(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, loader, nil
}
