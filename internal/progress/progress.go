// Package progress records hint accesses and completed challenges locally,
// for practice without a progress backend.
//
// It mirrors the backend's rules: points come from the catalog, not from
// the caller; unknown challenges are rejected; a challenge is completed at
// most once and repeated submissions return the first record.
package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/datadetective/academy/internal/catalog"
	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/pkg/core"
)

// Store is the persistence used by the recorder.
type Store interface {
	RecordHintAccess(ctx context.Context, key core.ChallengeKey, level int) error
	HintsUsed(ctx context.Context, key core.ChallengeKey) (int, error)
	RecordCompletion(ctx context.Context, rec core.ProgressRecord) (core.ProgressRecord, bool, error)
	ListProgress(ctx context.Context) ([]core.ProgressRecord, error)
}

// Recorder is the offline progress recorder.
type Recorder struct {
	store   Store
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewRecorder creates a recorder over store and cat.
func NewRecorder(store Store, cat *catalog.Catalog, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{store: store, catalog: cat, logger: logger}
}

// RecordHintAccess logs an access to a hint level.
func (r *Recorder) RecordHintAccess(ctx context.Context, key core.ChallengeKey, level int) error {
	if _, err := r.catalog.Challenge(key); err != nil {
		return err
	}
	return r.store.RecordHintAccess(ctx, key, level)
}

// HintsUsed returns the number of hints already unlocked for key.
func (r *Recorder) HintsUsed(ctx context.Context, key core.ChallengeKey) (int, error) {
	return r.store.HintsUsed(ctx, key)
}

// SubmitSolution completes the challenge of sub and awards its points.
func (r *Recorder) SubmitSolution(ctx context.Context, sub gateway.Submission) (gateway.Award, error) {
	ch, err := r.catalog.Challenge(sub.Key)
	if err != nil {
		return gateway.Award{}, err
	}

	rec, already, err := r.store.RecordCompletion(ctx, core.ProgressRecord{
		UnitID:       sub.Key.UnitID,
		ChallengeID:  sub.Key.ChallengeID,
		PointsEarned: ch.Points,
		HintsUsed:    sub.HintsUsed,
		Query:        sub.Query,
	})
	if err != nil {
		return gateway.Award{}, fmt.Errorf("failed to record submission: %w", err)
	}

	r.logger.Debug("completion recorded", "challenge", sub.Key, "already_completed", already)
	return gateway.Award{
		PointsEarned:     rec.PointsEarned,
		HintsUsed:        rec.HintsUsed,
		CompletedAt:      rec.CompletedAt,
		AlreadyCompleted: already,
	}, nil
}

// Report returns the completed challenges with their titles and the
// summary over the whole catalog.
func (r *Recorder) Report(ctx context.Context) (core.ProgressReport, error) {
	records, err := r.store.ListProgress(ctx)
	if err != nil {
		return core.ProgressReport{}, err
	}
	for i := range records {
		records[i].ChallengeTitle = "Unknown Challenge"
		if ch, err := r.catalog.Challenge(records[i].Key()); err == nil {
			records[i].ChallengeTitle = ch.Title
		}
	}
	return core.ProgressReport{
		Items:   records,
		Summary: core.Summarize(records, r.catalog.Count()),
	}, nil
}
