// Package gateway submits validated solutions to the progress backend.
//
// The gateway does not re-validate: the session only calls it once the
// current query text has passed the checker. Remote failures are surfaced
// with the backend's message unchanged and are never retried here.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/datadetective/academy/pkg/core"
)

// Submission is a validated solution.
type Submission struct {
	Key       core.ChallengeKey `json:"key"`
	Query     string            `json:"query"`
	HintsUsed int               `json:"hints_used"`
}

// Award is the backend's answer to a submission.
type Award struct {
	PointsEarned     int       `json:"points_earned"`
	HintsUsed        int       `json:"hints_used"`
	CompletedAt      time.Time `json:"completed_at"`
	AlreadyCompleted bool      `json:"already_completed"`
}

// ProgressRecorder persists completed challenges.
type ProgressRecorder interface {
	SubmitSolution(ctx context.Context, sub Submission) (Award, error)
}

// RemoteError carries a failure reported by the progress backend. Its
// message is the backend's text verbatim.
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string { return e.Err.Error() }

func (e *RemoteError) Unwrap() error { return e.Err }

// Gateway forwards submissions to a ProgressRecorder.
type Gateway struct {
	recorder ProgressRecorder
	logger   *slog.Logger
}

// New creates a gateway backed by recorder.
func New(recorder ProgressRecorder, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{recorder: recorder, logger: logger}
}

// Submit records sub and returns the award.
func (g *Gateway) Submit(ctx context.Context, sub Submission) (Award, error) {
	if g.recorder == nil {
		return Award{}, &RemoteError{Err: errors.New("no progress backend configured")}
	}

	award, err := g.recorder.SubmitSolution(ctx, sub)
	if err != nil {
		g.logger.Warn("submission failed", "challenge", sub.Key, "error", err)
		var remote *RemoteError
		if errors.As(err, &remote) {
			return Award{}, remote
		}
		return Award{}, &RemoteError{Err: err}
	}

	g.logger.Info("solution submitted",
		"challenge", sub.Key,
		"points", award.PointsEarned,
		"hints_used", award.HintsUsed,
		"already_completed", award.AlreadyCompleted)
	return award, nil
}
