// Command edumentor is the CLI for the EduMentor tutoring service.
//
// Usage:
//
//	edumentor chat --student-id amy
//	edumentor chat --student-id amy --prompt "explain fractions"
//	edumentor serve --config config.yaml
//	edumentor validate --config config.yaml
package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/edumentor-ai/edumentor/pkg/version"
)

// CLI defines the command-line interface.
type CLI struct {
	Chat     ChatCmd     `cmd:"" help:"Start an interactive tutoring session."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP API server."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate the JSON Schema for the configuration."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
	LogFile   string `help:"Log file path (empty = stderr)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(version.Get().String())
	return nil
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("edumentor"),
		kong.Description("EduMentor multi-agent tutoring service."),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(cli.LogLevel, cli.LogFile, cli.LogFormat)
	kctx.FatalIfErrorf(err)
	defer cleanup()

	kctx.FatalIfErrorf(kctx.Run(cli))
}
