package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.ProgressConfig{Dir: t.TempDir()}
	cfg.SetDefaults()
	store, err := NewStore(cfg)
	require.NoError(t, err)
	return store
}

func TestStore_RecordScore(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.RecordScore("alice", "fractions", 80, "medium"))
	require.NoError(t, store.RecordScore("alice", "fractions", 90, "hard"))

	tp, err := store.TopicProgress("alice", "fractions")
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.Equal(t, 2, tp.Attempts)
	assert.Equal(t, 90.0, tp.LastScore)
	assert.Equal(t, 85.0, tp.AverageScore)
	require.Len(t, tp.Scores, 2)
	assert.Equal(t, "hard", tp.Scores[1].Difficulty)

	_, problems, err := store.Totals("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, problems)
}

func TestStore_TopicProgress_Unknown(t *testing.T) {
	store := testStore(t)

	tp, err := store.TopicProgress("alice", "fractions")
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestStore_Topics(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.RecordScore("alice", "geometry", 70, "easy"))
	require.NoError(t, store.RecordScore("alice", "algebra", 60, "easy"))

	topics, err := store.Topics("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "geometry"}, topics)
}

func TestStore_WeakAndStrongTopics(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.RecordScore("alice", "fractions", 50, "easy"))
	require.NoError(t, store.RecordScore("alice", "algebra", 65, "medium"))
	require.NoError(t, store.RecordScore("alice", "geometry", 92, "hard"))
	require.NoError(t, store.RecordScore("alice", "statistics", 78, "medium"))

	weak, err := store.WeakTopics("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"fractions", "algebra"}, weak)

	strong, err := store.StrongTopics("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"geometry"}, strong)
}

func TestStore_IncrementSessions(t *testing.T) {
	store := testStore(t)

	n, err := store.IncrementSessions("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.IncrementSessions("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sessions, _, err := store.Totals("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, sessions)
}

func TestStore_PersistsAcrossReopens(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ProgressConfig{Dir: dir}
	cfg.SetDefaults()

	store, err := NewStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.RecordScore("alice", "fractions", 75, "medium"))

	reopened, err := NewStore(cfg)
	require.NoError(t, err)
	tp, err := reopened.TopicProgress("alice", "fractions")
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.Equal(t, 75.0, tp.LastScore)
}
