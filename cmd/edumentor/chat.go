package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/edumentor-ai/edumentor/pkg/agent"
)

// ChatCmd runs an interactive tutoring session in the terminal, or a
// single query with --prompt.
type ChatCmd struct {
	StudentID string `name:"student-id" help:"Student identifier." default:"demo_student"`
	Prompt    string `help:"Single query to route (non-interactive)."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, loader, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	orch, err := agent.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize agents: %w", err)
	}
	defer orch.Close()

	sess, greeting, err := orch.StartSession(ctx, c.StudentID)
	if err != nil {
		return err
	}
	fmt.Println(greeting)

	if c.Prompt != "" {
		return c.runOnce(ctx, orch, sess.ID())
	}
	return c.runInteractive(ctx, orch, sess.ID())
}

func (c *ChatCmd) runOnce(ctx context.Context, orch *agent.Orchestrator, sessionID string) error {
	reply, intent, err := orch.Route(ctx, sessionID, c.Prompt)
	if err != nil {
		return err
	}
	fmt.Printf("\n[%s]\n%s\n", intent, reply)
	return nil
}

func (c *ChatCmd) runInteractive(ctx context.Context, orch *agent.Orchestrator, sessionID string) error {
	fmt.Println()
	fmt.Println("Commands: 'progress' for your learning report, 'help' for help, 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}

		switch strings.ToLower(query) {
		case "quit", "exit", "bye":
			return c.farewell(ctx, orch, sessionID)
		case "help":
			printHelp()
			continue
		}

		var reply string
		var err error
		if isProgressCommand(query) {
			reply, err = orch.Tracker().AnalyzeProgress(ctx, c.StudentID)
		} else {
			reply, _, err = orch.Route(ctx, sessionID, query)
		}
		if err != nil {
			fmt.Printf("\nSomething went wrong: %v\nPlease try again or rephrase your question.\n", err)
			continue
		}

		fmt.Printf("\nEduMentor:\n%s\n", reply)
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return c.farewell(ctx, orch, sessionID)
}

func (c *ChatCmd) farewell(ctx context.Context, orch *agent.Orchestrator, sessionID string) error {
	stats, err := orch.Sessions().Stats(sessionID)
	if err == nil {
		fmt.Printf("\nThanks for learning with EduMentor!\n")
		fmt.Printf("Exchanges this session: %d\n", stats.MessageCount)
		fmt.Printf("Session duration: %.1f minutes\n", stats.Duration.Minutes())
	}
	return orch.Sessions().End(ctx, sessionID)
}

func isProgressCommand(query string) bool {
	switch strings.ToLower(query) {
	case "progress", "my progress", "how am i doing":
		return true
	}
	return false
}

func printHelp() {
	fmt.Print(`
Commands:
  progress     View your learning progress report
  help         Show this help message
  quit / exit  End the session

Example questions:
  "Explain photosynthesis"
  "Give me practice problems on algebra"
  "Help me with my math homework"
  "Test me on biology"
  "How am I doing?"
`)
}
