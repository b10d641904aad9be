package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env files from the working directory, the config
// file's directory when a path is given, and the user's home directory.
// Missing files are not an error. Earlier files win because godotenv
// never overrides variables that are already set.
func LoadEnvFiles(configPath string) error {
	candidates := []string{".env.local", ".env"}

	if configPath != "" {
		dir := filepath.Dir(configPath)
		if dir != "." {
			candidates = append(candidates,
				filepath.Join(dir, ".env.local"),
				filepath.Join(dir, ".env"))
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".env"))
	}

	for _, file := range candidates {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return nil
}

// parseValue converts an expanded string into a typed value so that
// numeric and boolean env values decode into the right config fields.
func parseValue(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}

	if intVal, err := strconv.Atoi(value); err == nil {
		return intVal
	}

	if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
		return floatVal
	}

	return value
}

// ExpandEnvVarsInData walks a parsed config tree and expands ${VAR},
// ${VAR:-default}, and $VAR references in every string value.
func ExpandEnvVarsInData(data interface{}) interface{} {
	switch v := data.(type) {
	case string:
		expanded := expandEnvString(v)
		if expanded != v {
			return parseValue(expanded)
		}
		return expanded

	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			result[key] = ExpandEnvVarsInData(value)
		}
		return result

	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = ExpandEnvVarsInData(item)
		}
		return result

	default:
		return v
	}
}
