package hints

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/datadetective/academy/internal/testutil"
	"github.com/datadetective/academy/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu     sync.Mutex
	levels []int
	err    error
	block  chan struct{}
}

func (f *fakeRecorder) RecordHintAccess(_ context.Context, _ core.ChallengeKey, level int) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.levels = append(f.levels, level)
	return nil
}

func (f *fakeRecorder) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.levels...)
}

var key = core.ChallengeKey{UnitID: 1, ChallengeID: 2}

func TestNext(t *testing.T) {
	state := core.HintState{Key: key}
	for want := 1; want <= core.MaxHints; want++ {
		var level int
		var err error
		state, level, err = Next(state)
		require.NoError(t, err)
		assert.Equal(t, want, level)
		assert.Equal(t, want, state.Unlocked)
	}

	after, _, err := Next(state)
	assert.ErrorIs(t, err, ErrAllHintsRevealed)
	assert.Equal(t, state, after)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-2))
	assert.Equal(t, 2, Clamp(2))
	assert.Equal(t, 3, Clamp(9))
}

func TestMachine_UnlocksInOrder(t *testing.T) {
	rec := &fakeRecorder{}
	m := New(key, 0, rec, testutil.NewTestLogger(t))

	var seen []int
	m.OnChange(func(n int) { seen = append(seen, n) })

	for i := 1; i <= 3; i++ {
		level, err := m.UnlockNext(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, level)
	}

	_, err := m.UnlockNext(context.Background())
	assert.ErrorIs(t, err, ErrAllHintsRevealed)

	assert.Equal(t, []int{1, 2, 3}, rec.calls(), "no recording once exhausted")
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 3, m.Unlocked())
}

func TestMachine_InitialFromBackend(t *testing.T) {
	rec := &fakeRecorder{}
	m := New(key, 2, rec, nil)

	level, err := m.UnlockNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, level)
	assert.Equal(t, []int{3}, rec.calls())

	assert.Equal(t, 3, New(key, 7, rec, nil).Unlocked())
	assert.Equal(t, 0, New(key, -1, rec, nil).Unlocked())
}

func TestMachine_RecordingFailureLeavesStateUnchanged(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("network down")}
	m := New(key, 1, rec, nil)
	changed := false
	m.OnChange(func(int) { changed = true })

	_, err := m.UnlockNext(context.Background())
	require.Error(t, err)

	var recErr *RecordingError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 2, recErr.Level)
	assert.EqualError(t, recErr.Err, "network down")
	assert.Equal(t, 1, m.Unlocked())
	assert.False(t, changed)

	// Retry succeeds once the backend recovers.
	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	level, err := m.UnlockNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, level)
}

func TestMachine_ConcurrentUnlockRejected(t *testing.T) {
	rec := &fakeRecorder{block: make(chan struct{})}
	m := New(key, 0, rec, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.UnlockNext(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.unlocking
	}, time.Second, time.Millisecond)

	_, err := m.UnlockNext(context.Background())
	assert.ErrorIs(t, err, ErrUnlockInProgress)

	close(rec.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, m.Unlocked())
}

func TestMachine_Revealed(t *testing.T) {
	hints := []string{"first", "second", "third"}
	m := New(key, 2, nil, nil)
	assert.Equal(t, []string{"first", "second"}, m.Revealed(hints))
	assert.Equal(t, []string{"only"}, m.Revealed([]string{"only"}))
	assert.Empty(t, New(key, 0, nil, nil).Revealed(hints))
}
