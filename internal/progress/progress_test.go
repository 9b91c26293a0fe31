package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/datadetective/academy/internal/catalog"
	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/internal/state"
	"github.com/datadetective/academy/internal/testutil"
	"github.com/datadetective/academy/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder(t *testing.T) *Recorder {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	store := state.NewSQLiteStore(logger)
	require.NoError(t, store.Open(state.MemoryPath))
	t.Cleanup(func() { _ = store.Close() })

	cat, err := catalog.Default(logger)
	require.NoError(t, err)
	return NewRecorder(store, cat, logger)
}

func TestRecorder_SubmitAwardsCatalogPoints(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()
	key := core.ChallengeKey{UnitID: 2, ChallengeID: 1}

	award, err := r.SubmitSolution(ctx, gateway.Submission{Key: key, Query: "SELECT 1", HintsUsed: 2})
	require.NoError(t, err)
	assert.Equal(t, 250, award.PointsEarned)
	assert.Equal(t, 2, award.HintsUsed)
	assert.False(t, award.AlreadyCompleted)
	assert.False(t, award.CompletedAt.IsZero())

	again, err := r.SubmitSolution(ctx, gateway.Submission{Key: key, Query: "SELECT 2", HintsUsed: 0})
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.Equal(t, 2, again.HintsUsed)
}

func TestRecorder_UnknownChallenge(t *testing.T) {
	r := newRecorder(t)
	key := core.ChallengeKey{UnitID: 999, ChallengeID: 999}

	_, err := r.SubmitSolution(context.Background(), gateway.Submission{Key: key})
	var nf *catalog.NotFoundError
	assert.True(t, errors.As(err, &nf))

	err = r.RecordHintAccess(context.Background(), key, 1)
	assert.True(t, errors.As(err, &nf))
}

func TestRecorder_HintAccesses(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()
	key := core.ChallengeKey{UnitID: 1, ChallengeID: 1}

	require.NoError(t, r.RecordHintAccess(ctx, key, 1))
	require.NoError(t, r.RecordHintAccess(ctx, key, 2))

	used, err := r.HintsUsed(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, used)
}

func TestRecorder_Report(t *testing.T) {
	r := newRecorder(t)
	ctx := context.Background()

	for _, key := range []core.ChallengeKey{{UnitID: 1, ChallengeID: 2}, {UnitID: 1, ChallengeID: 1}} {
		_, err := r.SubmitSolution(ctx, gateway.Submission{Key: key, Query: "q"})
		require.NoError(t, err)
	}

	report, err := r.Report(ctx)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "SELECT All Columns", report.Items[0].ChallengeTitle)
	assert.Equal(t, "SELECT Specific Columns", report.Items[1].ChallengeTitle)
	assert.Equal(t, 250, report.Summary.TotalPoints)
	assert.Equal(t, 2, report.Summary.TotalCompleted)
	assert.InDelta(t, 200.0/7.0, report.Summary.CompletionPercentage, 1e-9)
}
