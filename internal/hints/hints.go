// Package hints implements the three-level hint progression of a challenge.
//
// Hints unlock strictly in order, one at a time, and never re-lock. An
// unlock is only committed after the access has been recorded remotely, so
// a failed recording leaves the state untouched and the student can retry.
package hints

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/datadetective/academy/pkg/core"
)

// ErrAllHintsRevealed is returned when every hint is already unlocked.
// Callers usually ignore it.
var ErrAllHintsRevealed = errors.New("all hints have been revealed")

// ErrUnlockInProgress is returned when an unlock is requested while another
// one is still being recorded.
var ErrUnlockInProgress = errors.New("a hint unlock is already in progress")

// Recorder records that a student accessed a hint level.
type Recorder interface {
	RecordHintAccess(ctx context.Context, key core.ChallengeKey, level int) error
}

// RecordingError reports that a hint access could not be recorded. The hint
// was not unlocked and the unlock can be retried.
type RecordingError struct {
	Level int
	Err   error
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("failed to record access to hint %d: %v", e.Level, e.Err)
}

func (e *RecordingError) Unwrap() error { return e.Err }

// Next returns the state after unlocking one more hint and the level that
// was unlocked.
func Next(state core.HintState) (core.HintState, int, error) {
	if state.Exhausted() {
		return state, 0, ErrAllHintsRevealed
	}
	state.Unlocked++
	return state, state.Unlocked, nil
}

// Clamp forces n into [0, MaxHints].
func Clamp(n int) int {
	switch {
	case n < 0:
		return 0
	case n > core.MaxHints:
		return core.MaxHints
	default:
		return n
	}
}

// Machine tracks the unlocked hints of one challenge.
type Machine struct {
	mu        sync.Mutex
	state     core.HintState
	recorder  Recorder
	logger    *slog.Logger
	onChange  func(unlocked int)
	unlocking bool
}

// New creates a machine for key starting at initial unlocked hints, as
// reported by the progress backend.
func New(key core.ChallengeKey, initial int, recorder Recorder, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{
		state:    core.HintState{Key: key, Unlocked: Clamp(initial)},
		recorder: recorder,
		logger:   logger,
	}
}

// OnChange registers fn to be called with the new count after every
// successful unlock.
func (m *Machine) OnChange(fn func(unlocked int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Unlocked returns the number of unlocked hints.
func (m *Machine) Unlocked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Unlocked
}

// State returns a copy of the hint state.
func (m *Machine) State() core.HintState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// UnlockNext records and unlocks the next hint level and returns it.
// Concurrent calls are serialized so a level is never recorded twice.
func (m *Machine) UnlockNext(ctx context.Context) (int, error) {
	m.mu.Lock()
	if m.unlocking {
		m.mu.Unlock()
		return 0, ErrUnlockInProgress
	}
	next, level, err := Next(m.state)
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.unlocking = true
	m.mu.Unlock()

	var recErr error
	if m.recorder != nil {
		recErr = m.recorder.RecordHintAccess(ctx, next.Key, level)
	}

	m.mu.Lock()
	m.unlocking = false
	if recErr != nil {
		m.mu.Unlock()
		m.logger.Warn("hint access not recorded", "challenge", next.Key, "level", level, "error", recErr)
		return 0, &RecordingError{Level: level, Err: recErr}
	}
	m.state = next
	fn := m.onChange
	m.mu.Unlock()

	m.logger.Debug("hint unlocked", "challenge", next.Key, "level", level)
	if fn != nil {
		fn(level)
	}
	return level, nil
}

// Revealed returns the unlocked prefix of hints.
func (m *Machine) Revealed(hints []string) []string {
	n := m.Unlocked()
	if n > len(hints) {
		n = len(hints)
	}
	return append([]string(nil), hints[:n]...)
}
