package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/pkg/core"
)

// Event is an input to Reduce.
type Event interface{ isEvent() }

// Edited replaces the query text.
type Edited struct{ Text string }

// RunRequested asks to execute the current text.
type RunRequested struct{}

// RunFinished carries the outcome of an execution.
type RunFinished struct{ Outcome core.Outcome }

// CheckRequested asks to validate the current text.
type CheckRequested struct{}

// CheckFinished carries the result of a validation of Snapshot. Exactly one
// of Verdict and Err is set. Outcome is the student execution, when it ran.
type CheckFinished struct {
	Snapshot   string
	Generation uint64
	Outcome    *core.Outcome
	Verdict    *core.Verdict
	Err        error
}

// SubmitRequested asks to submit the current text.
type SubmitRequested struct{}

// SubmitFinished carries the gateway's answer.
type SubmitFinished struct {
	Award gateway.Award
	Err   error
}

// HintsChanged mirrors the unlocked hint count.
type HintsChanged struct{ Count int }

// HintUnlockFailed reports a hint that could not be unlocked.
type HintUnlockFailed struct{ Err error }

// Cleared resets the editor.
type Cleared struct{}

// ErrorDismissed hides the last error.
type ErrorDismissed struct{}

func (Edited) isEvent()           {}
func (RunRequested) isEvent()     {}
func (RunFinished) isEvent()      {}
func (CheckRequested) isEvent()   {}
func (CheckFinished) isEvent()    {}
func (SubmitRequested) isEvent()  {}
func (SubmitFinished) isEvent()   {}
func (HintsChanged) isEvent()     {}
func (HintUnlockFailed) isEvent() {}
func (Cleared) isEvent()          {}
func (ErrorDismissed) isEvent()   {}

// Effect is work Reduce asks the controller to perform.
type Effect interface{ isEffect() }

// ExecuteEffect runs Text on the student database.
type ExecuteEffect struct{ Text string }

// ValidateEffect runs Snapshot and the reference query and compares them.
type ValidateEffect struct {
	Snapshot   string
	Generation uint64
}

// SubmitEffect sends a submission to the gateway.
type SubmitEffect struct{ Submission gateway.Submission }

// SaveDraftEffect stores Text as the draft of Key.
type SaveDraftEffect struct {
	Key  core.ChallengeKey
	Text string
}

// ClearDraftEffect removes the draft of Key.
type ClearDraftEffect struct{ Key core.ChallengeKey }

func (ExecuteEffect) isEffect()    {}
func (ValidateEffect) isEffect()   {}
func (SubmitEffect) isEffect()     {}
func (SaveDraftEffect) isEffect()  {}
func (ClearDraftEffect) isEffect() {}

// Reduce applies ev to s. It returns the new state, the effects to perform
// and, when the event is refused or reports a failure, an error. A refused
// event may still change the state, to record the error for display.
func Reduce(s State, ev Event) (State, []Effect, error) {
	switch ev := ev.(type) {
	case Edited:
		s.QueryText = ev.Text
		if strings.TrimSpace(ev.Text) == "" {
			return s, nil, nil
		}
		return s, []Effect{SaveDraftEffect{Key: s.Key, Text: ev.Text}}, nil

	case RunRequested:
		if strings.TrimSpace(s.QueryText) == "" {
			return s, nil, ErrEmptyQuery
		}
		return s, []Effect{ExecuteEffect{Text: s.QueryText}}, nil

	case RunFinished:
		out := ev.Outcome
		s.LastOutcome = &out
		return s, nil, nil

	case CheckRequested:
		if !s.HasReference {
			return s, nil, ErrNoReference
		}
		if strings.TrimSpace(s.QueryText) == "" {
			return s, nil, ErrEmptyQuery
		}
		s.Generation++
		s.IsValidating = true
		return s, []Effect{ValidateEffect{Snapshot: s.QueryText, Generation: s.Generation}}, nil

	case CheckFinished:
		if ev.Generation != s.Generation {
			return s, nil, ErrValidationSuperseded
		}
		s.IsValidating = false
		if ev.Snapshot != s.QueryText {
			return s, nil, ErrValidationSuperseded
		}
		if ev.Outcome != nil {
			out := *ev.Outcome
			s.LastOutcome = &out
		}
		if ev.Err != nil {
			s.LastError = ev.Err.Error()
			return s, nil, ev.Err
		}
		if ev.Verdict == nil {
			return s, nil, errors.New("check finished without a verdict")
		}
		verdict := *ev.Verdict
		snapshot := ev.Snapshot
		s.LastVerdict = &verdict
		s.LastValidatedText = &snapshot
		s.LastError = ""
		return s, nil, nil

	case SubmitRequested:
		if s.Key.IsZero() || !s.CanSubmitTo {
			return s, nil, ErrNoSubmissionTarget
		}
		if s.IsSubmitting {
			return s, nil, ErrSubmissionInFlight
		}
		if !s.CanSubmit() {
			err := &SubmissionRefusedError{}
			s.LastError = err.Error()
			return s, nil, err
		}
		s.IsSubmitting = true
		return s, []Effect{SubmitEffect{Submission: gateway.Submission{
			Key:       s.Key,
			Query:     s.QueryText,
			HintsUsed: s.HintsUsed,
		}}}, nil

	case SubmitFinished:
		s.IsSubmitting = false
		if ev.Err != nil {
			s.LastError = ev.Err.Error()
			return s, nil, ev.Err
		}
		points := ev.Award.PointsEarned
		s.PointsEarned = &points
		s.Completed = true
		s.LastError = ""
		return s, []Effect{ClearDraftEffect{Key: s.Key}}, nil

	case HintsChanged:
		s.HintsUsed = ev.Count
		return s, nil, nil

	case HintUnlockFailed:
		s.LastError = ev.Err.Error()
		return s, nil, ev.Err

	case Cleared:
		s.QueryText = ""
		s.LastOutcome = nil
		s.LastVerdict = nil
		s.LastValidatedText = nil
		s.LastError = ""
		s.IsValidating = false
		s.Generation++
		return s, []Effect{ClearDraftEffect{Key: s.Key}}, nil

	case ErrorDismissed:
		s.LastError = ""
		return s, nil, nil

	default:
		return s, nil, fmt.Errorf("unknown event %T", ev)
	}
}
