package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/datadetective/academy/internal/testutil"
	"github.com/datadetective/academy/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = core.ChallengeKey{UnitID: 1, ChallengeID: 2}

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(MemoryPath))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"drafts", "hint_accesses", "progress"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		_ = rows.Close()
	}
}

func TestSQLiteStore_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.SaveDraft(ctx, key, "SELECT 1"))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()

	text, ok, err := reopened.LoadDraft(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1", text)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, _, err := store.LoadDraft(ctx, key)
	assert.ErrorIs(t, err, ErrNotOpened)
	assert.ErrorIs(t, store.SaveDraft(ctx, key, "x"), ErrNotOpened)
	assert.ErrorIs(t, store.RecordHintAccess(ctx, key, 1), ErrNotOpened)
	_, err = store.ListProgress(ctx)
	assert.ErrorIs(t, err, ErrNotOpened)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_Drafts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadDraft(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveDraft(ctx, key, "SELECT"))
	require.NoError(t, store.SaveDraft(ctx, key, "SELECT * FROM users"))

	text, ok, err := store.LoadDraft(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SELECT * FROM users", text)

	other := core.ChallengeKey{UnitID: 2, ChallengeID: 1}
	_, ok, err = store.LoadDraft(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.DeleteDraft(ctx, key))
	require.NoError(t, store.DeleteDraft(ctx, key))
	_, ok, err = store.LoadDraft(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_HintAccesses(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	used, err := store.HintsUsed(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, used)

	require.NoError(t, store.RecordHintAccess(ctx, key, 1))
	require.NoError(t, store.RecordHintAccess(ctx, key, 1))
	require.NoError(t, store.RecordHintAccess(ctx, key, 2))

	used, err = store.HintsUsed(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, used)

	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM hint_accesses").Scan(&n))
	assert.Equal(t, 3, n, "every access is logged")

	tests := []int{0, 4, -1}
	for _, level := range tests {
		assert.Error(t, store.RecordHintAccess(ctx, key, level), "level %d", level)
	}
}

func TestSQLiteStore_RecordCompletionIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	completed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	first, already, err := store.RecordCompletion(ctx, core.ProgressRecord{
		UnitID: 1, ChallengeID: 2, PointsEarned: 150, HintsUsed: 1,
		Query: "SELECT name FROM users", CompletedAt: completed,
	})
	require.NoError(t, err)
	assert.False(t, already)
	assert.NotEmpty(t, first.ID)

	second, already, err := store.RecordCompletion(ctx, core.ProgressRecord{
		UnitID: 1, ChallengeID: 2, PointsEarned: 999, HintsUsed: 3, Query: "SELECT 1",
	})
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 150, second.PointsEarned)
	assert.Equal(t, "SELECT name FROM users", second.Query)
	assert.True(t, completed.Equal(second.CompletedAt))

	got, err := store.GetProgress(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestSQLiteStore_GetProgressNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetProgress(context.Background(), key)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_ListProgressOrdered(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, k := range []core.ChallengeKey{{UnitID: 2, ChallengeID: 1}, {UnitID: 1, ChallengeID: 3}, {UnitID: 1, ChallengeID: 1}} {
		_, _, err := store.RecordCompletion(ctx, core.ProgressRecord{UnitID: k.UnitID, ChallengeID: k.ChallengeID, PointsEarned: 100, Query: "q"})
		require.NoError(t, err)
	}

	records, err := store.ListProgress(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, core.ChallengeKey{UnitID: 1, ChallengeID: 1}, records[0].Key())
	assert.Equal(t, core.ChallengeKey{UnitID: 1, ChallengeID: 3}, records[1].Key())
	assert.Equal(t, core.ChallengeKey{UnitID: 2, ChallengeID: 1}, records[2].Key())
}
