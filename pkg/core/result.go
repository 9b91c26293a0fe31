package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// TabularResult is the normalized rowset returned by an execution.
// Every row has exactly len(Columns) cells. Column names need not be unique.
type TabularResult struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// Validate checks the row width invariant.
func (r TabularResult) Validate() error {
	for i, row := range r.Rows {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i+1, len(row), len(r.Columns))
		}
	}
	return nil
}

// Clone returns a deep copy of r.
func (r TabularResult) Clone() TabularResult {
	out := TabularResult{
		Columns: append([]string(nil), r.Columns...),
		Rows:    make([][]Value, len(r.Rows)),
	}
	for i, row := range r.Rows {
		out.Rows[i] = append([]Value(nil), row...)
	}
	return out
}

// IsEmpty reports whether r has neither columns nor rows.
func (r TabularResult) IsEmpty() bool {
	return len(r.Columns) == 0 && len(r.Rows) == 0
}

// =============================================================================
// Outcome
// =============================================================================

// OutcomeKind tags an Outcome as a success or an error.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeError   OutcomeKind = "error"
)

// Outcome is the result of one execution: either a TabularResult with the
// elapsed time, or the engine's diagnostic message verbatim.
type Outcome struct {
	Kind    OutcomeKind    `json:"kind"`
	Result  *TabularResult `json:"result,omitempty"`
	Elapsed time.Duration  `json:"-"`
	Message string         `json:"message,omitempty"`
}

// Succeeded builds a success outcome.
func Succeeded(result TabularResult, elapsed time.Duration) Outcome {
	return Outcome{Kind: OutcomeSuccess, Result: &result, Elapsed: elapsed}
}

// Failed builds an error outcome carrying the engine message unchanged.
func Failed(message string) Outcome {
	return Outcome{Kind: OutcomeError, Message: message}
}

// OK reports whether the execution succeeded.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// ElapsedMs returns the elapsed time in fractional milliseconds.
func (o Outcome) ElapsedMs() float64 {
	return float64(o.Elapsed) / float64(time.Millisecond)
}

// MarshalJSON adds elapsed_ms to the encoded outcome.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	out := struct {
		plain
		ElapsedMs float64 `json:"elapsed_ms,omitempty"`
	}{plain: plain(o)}
	if o.OK() {
		out.ElapsedMs = o.ElapsedMs()
	}
	return json.Marshal(out)
}

// =============================================================================
// Verdict
// =============================================================================

// Verdict is the pass/fail outcome of comparing a student result with the
// expected result. A negative verdict is a normal outcome, not an error.
type Verdict struct {
	IsValid       bool           `json:"is_valid"`
	Message       string         `json:"message"`
	StudentResult *TabularResult `json:"student_result,omitempty"`
}
