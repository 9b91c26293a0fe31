package session

import (
	"errors"
	"fmt"

	"github.com/datadetective/academy/pkg/core"
)

var (
	// ErrEmptyQuery is returned when running or checking blank text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNoReference is returned when checking a challenge without a
	// reference query.
	ErrNoReference = errors.New("this challenge has no expected result to check against")

	// ErrNoSubmissionTarget is returned when submitting outside a challenge
	// or without a progress backend.
	ErrNoSubmissionTarget = errors.New("nothing to submit to: no challenge or progress backend configured")

	// ErrSubmissionInFlight is returned when a submission is already pending.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")

	// ErrValidationSuperseded is returned when a check completes after the
	// query text changed. The verdict is discarded.
	ErrValidationSuperseded = errors.New("query changed while it was being checked; result discarded")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session is closed")
)

// SubmitRefusedMessage is shown when submitting text that has not passed a check.
const SubmitRefusedMessage = "Please check your answer before submitting. Your query must pass validation first."

// SubmissionRefusedError is returned when the current text has not passed a
// check. No request is made.
type SubmissionRefusedError struct{}

func (e *SubmissionRefusedError) Error() string { return SubmitRefusedMessage }

// ValidationSource names the query whose execution aborted a check.
type ValidationSource string

// Validation sources.
const (
	SourceStudent   ValidationSource = "student"
	SourceReference ValidationSource = "reference"
)

// ValidationAbortedError reports that a check could not produce a verdict
// because one of the queries failed. EngineMessage is the engine's text.
type ValidationAbortedError struct {
	Source        ValidationSource
	EngineMessage string
}

func (e *ValidationAbortedError) Error() string {
	if e.Source == SourceReference {
		return fmt.Sprintf("expected result could not be computed: %s", e.EngineMessage)
	}
	return fmt.Sprintf("your query failed: %s", e.EngineMessage)
}

// State is the state of one challenge session.
type State struct {
	Key               core.ChallengeKey `json:"key"`
	QueryText         string            `json:"query"`
	LastOutcome       *core.Outcome     `json:"last_outcome,omitempty"`
	LastVerdict       *core.Verdict     `json:"last_verdict,omitempty"`
	LastValidatedText *string           `json:"last_validated_query,omitempty"`
	IsValidating      bool              `json:"is_validating"`
	IsSubmitting      bool              `json:"is_submitting"`
	HintsUsed         int               `json:"hints_used"`
	LastError         string            `json:"last_error,omitempty"`
	PointsEarned      *int              `json:"points_earned,omitempty"`
	Completed         bool              `json:"completed"`

	// HasReference reports whether the challenge can be checked.
	HasReference bool `json:"has_reference"`
	// CanSubmitTo reports whether a progress backend is available.
	CanSubmitTo bool `json:"can_submit_to"`
	// Generation identifies the latest requested check.
	Generation uint64 `json:"-"`
}

// CanSubmit reports whether the current text passed the last check.
func (s State) CanSubmit() bool {
	return s.LastVerdict != nil &&
		s.LastVerdict.IsValid &&
		s.LastValidatedText != nil &&
		*s.LastValidatedText == s.QueryText
}
