package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

func testSessionConfig() config.SessionConfig {
	cfg := config.SessionConfig{}
	cfg.SetDefaults()
	return cfg
}

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager(testSessionConfig(), nil)

	s := m.Create("alice")
	require.NotEmpty(t, s.ID())
	assert.Equal(t, "alice", s.StudentID())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_Current(t *testing.T) {
	m := NewManager(testSessionConfig(), nil)

	_, ok := m.Current("alice")
	assert.False(t, ok)

	first := m.Create("alice")
	cur, ok := m.Current("alice")
	require.True(t, ok)
	assert.Equal(t, first.ID(), cur.ID())

	// A new session replaces the current one.
	second := m.Create("alice")
	cur, ok = m.Current("alice")
	require.True(t, ok)
	assert.Equal(t, second.ID(), cur.ID())
}

func TestManager_RecordExchange_CapsHistory(t *testing.T) {
	cfg := testSessionConfig()
	cfg.MaxMessages = 3
	m := NewManager(cfg, nil)

	s := m.Create("alice")
	for i := 0; i < 5; i++ {
		err := m.RecordExchange(s.ID(), fmt.Sprintf("q%d", i), fmt.Sprintf("r%d", i))
		require.NoError(t, err)
	}

	history, err := m.History(s.ID(), 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "q2", history[0].Query)
	assert.Equal(t, "q4", history[2].Query)
}

func TestManager_History_Limit(t *testing.T) {
	m := NewManager(testSessionConfig(), nil)

	s := m.Create("alice")
	for i := 0; i < 4; i++ {
		require.NoError(t, m.RecordExchange(s.ID(), fmt.Sprintf("q%d", i), "r"))
	}

	history, err := m.History(s.ID(), 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "q2", history[0].Query)
	assert.Equal(t, "q3", history[1].Query)
}

func TestManager_State(t *testing.T) {
	m := NewManager(testSessionConfig(), nil)
	s := m.Create("alice")

	require.NoError(t, m.SetState(s.ID(), "topic", "fractions"))

	val, err := m.GetState(s.ID(), "topic")
	require.NoError(t, err)
	assert.Equal(t, "fractions", val)

	_, err = m.GetState(s.ID(), "missing")
	assert.ErrorIs(t, err, ErrStateKeyNotExist)
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(testSessionConfig(), nil)
	s := m.Create("alice")

	require.NoError(t, m.RecordExchange(s.ID(), "q", "r"))

	stats, err := m.Stats(s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.ID(), stats.SessionID)
	assert.Equal(t, "alice", stats.StudentID)
	assert.Equal(t, 1, stats.MessageCount)
	assert.GreaterOrEqual(t, stats.Duration, time.Duration(0))
}

func TestManager_End_Archives(t *testing.T) {
	archive := NewInMemoryArchive()
	m := NewManager(testSessionConfig(), archive)

	s := m.Create("alice")
	require.NoError(t, m.RecordExchange(s.ID(), "q", "r"))
	require.NoError(t, m.End(context.Background(), s.ID()))

	_, err := m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, ok := m.Current("alice")
	assert.False(t, ok)

	archived, err := archive.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, s.ID(), archived[0].ID)
	assert.Equal(t, 1, archived[0].MessageCount)
}

func TestManager_CleanupInactive(t *testing.T) {
	archive := NewInMemoryArchive()
	m := NewManager(testSessionConfig(), archive)

	stale := m.Create("alice")
	stale.mu.Lock()
	stale.lastActivity = time.Now().Add(-48 * time.Hour)
	stale.mu.Unlock()

	fresh := m.Create("bob")

	removed := m.CleanupInactive(context.Background(), 24*time.Hour)
	assert.Equal(t, 1, removed)

	_, err := m.Get(stale.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.ID())
	assert.NoError(t, err)

	archived, err := archive.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestManager_StartCleanup_RemovesIdleSessions(t *testing.T) {
	archive := NewInMemoryArchive()
	cfg := testSessionConfig()
	cfg.MaxIdle = config.Duration(50 * time.Millisecond)
	m := NewManager(cfg, archive)

	stale := m.Create("alice")
	stale.mu.Lock()
	stale.lastActivity = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartCleanup(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := m.Get(stale.ID())
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "idle session should be cleaned up")

	archived, err := archive.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestManager_StartCleanup_StopsOnCancel(t *testing.T) {
	cfg := testSessionConfig()
	cfg.MaxIdle = config.Duration(time.Millisecond)
	m := NewManager(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.StartCleanup(ctx, 5*time.Millisecond)
	cancel()

	// Give the loop time to observe the cancellation, then verify a
	// session idled past max_idle survives because the janitor stopped.
	time.Sleep(20 * time.Millisecond)
	s := m.Create("alice")
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	_, err := m.Get(s.ID())
	assert.NoError(t, err)
}

func TestManager_ContextPrompt(t *testing.T) {
	m := NewManager(testSessionConfig(), nil)
	s := m.Create("alice")

	prompt, err := m.ContextPrompt(s.ID(), 5)
	require.NoError(t, err)
	assert.Empty(t, prompt)

	longReply := strings.Repeat("x", 300)
	require.NoError(t, m.RecordExchange(s.ID(), "What is a fraction?", longReply))

	prompt, err = m.ContextPrompt(s.ID(), 5)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Student: What is a fraction?")
	assert.Contains(t, prompt, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", 201))
}

func TestManager_ContextPrompt_TokenBudget(t *testing.T) {
	cfg := testSessionConfig()
	cfg.ContextTokenBudget = 40
	m := NewManager(cfg, nil)
	s := m.Create("alice")

	for i := 0; i < 5; i++ {
		require.NoError(t, m.RecordExchange(s.ID(),
			fmt.Sprintf("question number %d about long division", i),
			"work through it one step at a time"))
	}

	prompt, err := m.ContextPrompt(s.ID(), 5)
	require.NoError(t, err)
	// The oldest exchanges are dropped until the prompt fits.
	assert.NotContains(t, prompt, "question number 0")
	assert.Contains(t, prompt, "question number 4")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "ab...", truncateRunes("abcdef", 2))
	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
}

func TestSQLArchive(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	archive, err := NewSQLArchive(db, "sqlite")
	require.NoError(t, err)

	archived := &ArchivedSession{
		ID:           "s1",
		StudentID:    "alice",
		CreatedAt:    time.Now().Add(-time.Hour),
		EndedAt:      time.Now(),
		MessageCount: 2,
		Exchanges: []Exchange{
			{Timestamp: time.Now(), Query: "q1", Reply: "r1"},
			{Timestamp: time.Now(), Query: "q2", Reply: "r2"},
		},
	}
	require.NoError(t, archive.Save(context.Background(), archived))

	sessions, err := archive.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, 2, sessions[0].MessageCount)
	require.Len(t, sessions[0].Exchanges, 2)
	assert.Equal(t, "q2", sessions[0].Exchanges[1].Query)

	none, err := archive.List(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, none)
}
