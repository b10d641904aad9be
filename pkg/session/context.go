package session

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// replySummaryLimit caps how much of each reply goes into the context.
const replySummaryLimit = 200

// tokenCounter counts tokens with a lazily initialized tiktoken
// encoding, falling back to a rune estimate when unavailable.
type tokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

func newTokenCounter() *tokenCounter {
	return &tokenCounter{}
}

func (c *tokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.encoding = enc
		}
	})

	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	// Rough estimate: one token per four characters.
	return (utf8.RuneCountInString(text) + 3) / 4
}

// ContextPrompt formats the last n exchanges as an LLM context block.
// Replies are truncated to 200 runes. The result is trimmed from the
// oldest exchange down until it fits the configured token budget.
func (m *Manager) ContextPrompt(sessionID string, n int) (string, error) {
	exchanges, err := m.History(sessionID, n)
	if err != nil {
		return "", err
	}
	if len(exchanges) == 0 {
		return "", nil
	}

	for len(exchanges) > 0 {
		prompt := formatExchanges(exchanges)
		budget := m.cfg.ContextTokenBudget
		if budget <= 0 || m.counter.Count(prompt) <= budget {
			return prompt, nil
		}
		exchanges = exchanges[1:]
	}

	return "", nil
}

func formatExchanges(exchanges []Exchange) string {
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "Student: %s\n", ex.Query)
		fmt.Fprintf(&b, "Tutor: %s\n", truncateRunes(ex.Reply, replySummaryLimit))
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
