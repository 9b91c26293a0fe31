package core

import "time"

// ProgressRecord is one completed challenge.
type ProgressRecord struct {
	ID             string    `json:"id"`
	UnitID         int       `json:"unit_id"`
	ChallengeID    int       `json:"challenge_id"`
	PointsEarned   int       `json:"points_earned"`
	HintsUsed      int       `json:"hints_used"`
	Query          string    `json:"query"`
	CompletedAt    time.Time `json:"completed_at"`
	ChallengeTitle string    `json:"challenge_title,omitempty"`
}

// Key returns the challenge the record completes.
func (r ProgressRecord) Key() ChallengeKey {
	return ChallengeKey{UnitID: r.UnitID, ChallengeID: r.ChallengeID}
}

// ProgressSummary aggregates a student's completed challenges.
type ProgressSummary struct {
	TotalPoints          int     `json:"total_points"`
	TotalCompleted       int     `json:"total_completed"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// ProgressReport is the list of completed challenges with its summary.
type ProgressReport struct {
	Items   []ProgressRecord `json:"progress_items"`
	Summary ProgressSummary  `json:"summary"`
}

// Summarize computes the summary of records against a catalog of
// totalChallenges challenges.
func Summarize(records []ProgressRecord, totalChallenges int) ProgressSummary {
	s := ProgressSummary{TotalCompleted: len(records)}
	for _, r := range records {
		s.TotalPoints += r.PointsEarned
	}
	if totalChallenges > 0 {
		s.CompletionPercentage = float64(s.TotalCompleted) / float64(totalChallenges) * 100
	}
	return s
}
