package prompts

import (
	"fmt"
	"strings"
)

// Compose joins a base prompt with extra context blocks, skipping
// empty ones.
func Compose(base string, blocks ...string) string {
	parts := []string{base}
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			parts = append(parts, strings.TrimSpace(block))
		}
	}
	return strings.Join(parts, "\n\n")
}

// FactsBlock formats retrieved knowledge for inclusion in a prompt.
func FactsBlock(facts []string) string {
	if len(facts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant reference material:\n")
	for _, fact := range facts {
		fmt.Fprintf(&b, "- %s\n", fact)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DetailBlock nudges the explainer to a detail level.
func DetailBlock(level string) string {
	switch level {
	case "simple":
		return "Keep the explanation short and simple, as for a young student. Avoid technical vocabulary."
	case "detailed":
		return "Give a thorough explanation with precise terminology, edge cases, and deeper context."
	case "medium", "":
		return ""
	default:
		return ""
	}
}

// DifficultyBlock nudges the quiz generator to a difficulty.
func DifficultyBlock(difficulty string) string {
	switch difficulty {
	case "easy":
		return "Target difficulty: easy. Single-step questions on core definitions and basic recall."
	case "hard":
		return "Target difficulty: hard. Multi-step questions requiring applied reasoning."
	case "medium":
		return "Target difficulty: medium. Questions that apply the concept in one or two steps."
	default:
		return ""
	}
}
