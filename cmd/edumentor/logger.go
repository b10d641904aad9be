package main

import (
	"fmt"
	"os"

	"github.com/edumentor-ai/edumentor/pkg/logger"
)

// initLogger configures logging from CLI flags with environment
// fallbacks. Priority: flag > env var > default.
func initLogger(level, file, format string) (func(), error) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	if file == "" {
		file = os.Getenv("LOG_FILE")
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}

	parsed, err := logger.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	output := os.Stderr
	cleanup := func() {}
	if file != "" {
		f, closeFn, err := logger.OpenLogFile(file)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = f
		cleanup = closeFn
	}

	logger.Init(parsed, output, format)
	return cleanup, nil
}
