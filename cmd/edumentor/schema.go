package main

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

// SchemaCmd generates a JSON Schema for the configuration file,
// written to stdout.
type SchemaCmd struct {
	Compact bool `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.ID = "https://edumentor.dev/schemas/config.json"
	schema.Title = "EduMentor Configuration Schema"
	schema.Description = "Configuration schema for the EduMentor tutoring service"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(schema)
}
