package main

import (
	"context"
	"fmt"
)

// ValidateCmd checks that a configuration file loads and validates.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("validate requires --config")
	}

	cfg, loader, err := loadConfig(context.Background(), cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	fmt.Printf("Configuration %s is valid.\n", cli.Config)
	fmt.Printf("  LLM provider: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Printf("  Server:       %s\n", cfg.Server.Address())
	fmt.Printf("  Memory dir:   %s\n", cfg.Memory.Dir)
	if cfg.Knowledge.MCP.Enabled {
		fmt.Printf("  MCP:          %s via %s\n", cfg.Knowledge.MCP.Tool, cfg.Knowledge.MCP.Transport)
	}
	return nil
}
