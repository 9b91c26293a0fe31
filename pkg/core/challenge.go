package core

import "fmt"

// MaxHints is the number of ordered hints a challenge can reveal.
const MaxHints = 3

// ChallengeKey identifies one exercise within a unit.
type ChallengeKey struct {
	UnitID      int `json:"unit_id"`
	ChallengeID int `json:"challenge_id"`
}

// String returns the key as "unit-U/challenge-C".
func (k ChallengeKey) String() string {
	return fmt.Sprintf("unit-%d/challenge-%d", k.UnitID, k.ChallengeID)
}

// IsZero reports whether k is unset.
func (k ChallengeKey) IsZero() bool {
	return k.UnitID == 0 && k.ChallengeID == 0
}

// HintState tracks how many hints have been unlocked for a challenge.
type HintState struct {
	Key      ChallengeKey `json:"key"`
	Unlocked int          `json:"unlocked"`
}

// Exhausted reports whether every hint has been revealed.
func (h HintState) Exhausted() bool {
	return h.Unlocked >= MaxHints
}
