package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

func testBank(t *testing.T) *Bank {
	t.Helper()
	cfg := config.MemoryConfig{Dir: t.TempDir()}
	cfg.SetDefaults()
	bank, err := NewBank(cfg)
	require.NoError(t, err)
	return bank
}

func TestBank_AddInteraction(t *testing.T) {
	bank := testBank(t)

	err := bank.AddInteraction("alice", "help me with fractions", "Sure, let's start.", "explanation")
	require.NoError(t, err)

	history, err := bank.InteractionHistory("alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "help me with fractions", history[0].Query)
	assert.Equal(t, "fractions", history[0].Topic)
	assert.Equal(t, "explanation", history[0].Intent)

	// Topic stats updated.
	ctx, err := bank.StudentContext("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.TotalInteractions)
	assert.Equal(t, 1, ctx.TopicsStudied)
	assert.Equal(t, []string{"fractions"}, ctx.RecentTopics)
}

func TestBank_AddInteraction_TruncatesReply(t *testing.T) {
	bank := testBank(t)

	longReply := strings.Repeat("y", 300)
	require.NoError(t, bank.AddInteraction("alice", "what is algebra", longReply, "general"))

	history, err := bank.InteractionHistory("alice", 1)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("y", 200)+"...", history[0].ReplySummary)
}

func TestBank_AddInteraction_CapsHistory(t *testing.T) {
	cfg := config.MemoryConfig{Dir: t.TempDir(), MaxInteractions: 3, CompactThreshold: 100}
	bank, err := NewBank(cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, bank.AddInteraction("alice", fmt.Sprintf("question %d", i), "r", "general"))
	}

	history, err := bank.InteractionHistory("alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "question 2", history[0].Query)

	ctx, err := bank.StudentContext("alice")
	require.NoError(t, err)
	assert.Equal(t, 5, ctx.TotalInteractions)
}

func TestBank_WritesThroughToDisk(t *testing.T) {
	dir := t.TempDir()
	cfg := config.MemoryConfig{Dir: dir}
	cfg.SetDefaults()

	bank, err := NewBank(cfg)
	require.NoError(t, err)
	require.NoError(t, bank.AddInteraction("alice", "what is a cell", "A cell is...", "explanation"))

	path := filepath.Join(dir, "memory_alice.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "what is a cell")

	// A fresh bank reads the same record back.
	reopened, err := NewBank(cfg)
	require.NoError(t, err)
	history, err := reopened.InteractionHistory("alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "biology", history[0].Topic)
}

func TestBank_UpdateProfile(t *testing.T) {
	bank := testBank(t)

	require.NoError(t, bank.UpdateProfile("alice", Profile{
		Level:         "8th grade",
		LearningStyle: "visual",
		Interests:     []string{"space"},
	}))
	require.NoError(t, bank.UpdateProfile("alice", Profile{
		Interests: []string{"space", "robots"},
	}))

	ctx, err := bank.StudentContext("alice")
	require.NoError(t, err)
	assert.Equal(t, "8th grade", ctx.Profile.Level)
	assert.Equal(t, "visual", ctx.Profile.LearningStyle)
	assert.Equal(t, []string{"space", "robots"}, ctx.Profile.Interests)
}

func TestBank_StrengthsAndGaps(t *testing.T) {
	bank := testBank(t)

	require.NoError(t, bank.AddStrength("alice", "multiplication"))
	require.NoError(t, bank.AddStrength("alice", "Multiplication")) // dedup, case-insensitive
	require.NoError(t, bank.AddGap("alice", "fractions"))
	require.NoError(t, bank.AddGap("alice", "fractions"))

	ctx, err := bank.StudentContext("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"multiplication"}, ctx.Profile.Strengths)
	assert.Equal(t, []string{"fractions"}, ctx.Profile.Gaps)

	require.NoError(t, bank.SetGaps("alice", []string{"long division", "decimals"}))
	ctx, err = bank.StudentContext("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"long division", "decimals"}, ctx.Profile.Gaps)
}

func TestBank_ContextSummary(t *testing.T) {
	bank := testBank(t)

	summary, err := bank.ContextSummary("alice")
	require.NoError(t, err)
	assert.Empty(t, summary)

	require.NoError(t, bank.UpdateProfile("alice", Profile{Level: "8th grade"}))
	require.NoError(t, bank.AddGap("alice", "fractions"))
	require.NoError(t, bank.AddInteraction("alice", "explain photosynthesis", "ok", "explanation"))

	summary, err = bank.ContextSummary("alice")
	require.NoError(t, err)
	assert.Contains(t, summary, "Student background:")
	assert.Contains(t, summary, "Level: 8th grade")
	assert.Contains(t, summary, "Needs work on: fractions")
	assert.Contains(t, summary, "biology")
}

func TestBank_Compact(t *testing.T) {
	cfg := config.MemoryConfig{Dir: t.TempDir(), MaxInteractions: 10, CompactThreshold: 20}
	bank, err := NewBank(cfg)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, bank.AddInteraction("alice", "fraction practice", "ok", "practice"))
	}

	history, err := bank.InteractionHistory("alice", 0)
	require.NoError(t, err)
	assert.Len(t, history, 10)

	summary, err := bank.ContextSummary("alice")
	require.NoError(t, err)
	assert.Contains(t, summary, "Earlier sessions covered")
	assert.Contains(t, summary, "fractions")
}

func TestBank_Compact_SortsSummaryTopics(t *testing.T) {
	dir := t.TempDir()
	cfg := config.MemoryConfig{Dir: dir, MaxInteractions: 50, CompactThreshold: 100}
	bank, err := NewBank(cfg)
	require.NoError(t, err)

	// Topic insertion order deliberately differs from sorted order.
	require.NoError(t, bank.AddInteraction("alice", "what is gravity in physics", "ok", "explanation"))
	require.NoError(t, bank.AddInteraction("alice", "fraction practice", "ok", "practice"))
	require.NoError(t, bank.AddInteraction("alice", "solve for x in algebra", "ok", "homework"))
	require.NoError(t, bank.AddInteraction("alice", "hello there", "hi", "general"))
	require.NoError(t, bank.AddInteraction("alice", "thanks", "welcome", "general"))
	require.NoError(t, bank.AddInteraction("alice", "good morning", "morning", "general"))

	// Reopen with a tighter cap so Compact folds the topic interactions.
	tight := config.MemoryConfig{Dir: dir, MaxInteractions: 3, CompactThreshold: 100}
	compacting, err := NewBank(tight)
	require.NoError(t, err)
	require.NoError(t, compacting.Compact("alice"))

	summary, err := compacting.ContextSummary("alice")
	require.NoError(t, err)
	assert.Contains(t, summary,
		"Earlier sessions covered: algebra (1 times), fractions (1 times), physics (1 times).")
}

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Help me with fractions", "fractions"},
		{"solve for x in this equation", "algebra"},
		{"what is photosynthesis?", "biology"},
		{"who won the revolution", "history"},
		{"write a python loop", "programming"},
		{"hello there", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTopic(tt.query))
		})
	}
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "alice", sanitizeID("alice"))
	assert.Equal(t, "alice_smith", sanitizeID("alice smith"))
	assert.Equal(t, "a_b_c", sanitizeID("a/b\\c"))
}
