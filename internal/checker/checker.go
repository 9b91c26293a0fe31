// Package checker decides whether a student's result matches the expected
// result of a challenge.
//
// The comparison is positional: columns are matched by index and name, rows
// in the order the engine returned them. Cells use a loose equality that
// lets a number match its textual form (1 equals "1", 0 equals ""). A query
// that returns the right rows in a different order does not pass.
package checker

import (
	"fmt"

	"github.com/datadetective/academy/pkg/core"
)

// SuccessMessage is the message of a passing verdict.
const SuccessMessage = "Query results match expected output!"

// Compare checks student against expected. Checks run in order and stop at
// the first difference: column count, column names, row count, then cells
// row by row. Positions in messages are 1-indexed. The returned verdict
// always carries the student result.
func Compare(student, expected core.TabularResult) core.Verdict {
	fail := func(format string, args ...any) core.Verdict {
		return core.Verdict{IsValid: false, Message: fmt.Sprintf(format, args...), StudentResult: &student}
	}

	if len(student.Columns) != len(expected.Columns) {
		return fail("Column count mismatch: expected %d columns, got %d", len(expected.Columns), len(student.Columns))
	}

	for i, want := range expected.Columns {
		if got := student.Columns[i]; got != want {
			return fail("Column name mismatch at position %d: expected %q, got %q", i+1, want, got)
		}
	}

	if len(student.Rows) != len(expected.Rows) {
		return fail("Row count mismatch: expected %d rows, got %d", len(expected.Rows), len(student.Rows))
	}

	for r, wantRow := range expected.Rows {
		gotRow := student.Rows[r]
		for c, want := range wantRow {
			var got core.Value
			if c < len(gotRow) {
				got = gotRow[c]
			}
			if !CellsEqual(want, got) {
				return fail("Value mismatch at row %d, column %d: expected %s, got %s", r+1, c+1, want.Quoted(), got.Quoted())
			}
		}
	}

	return core.Verdict{IsValid: true, Message: SuccessMessage, StudentResult: &student}
}

// CellsEqual reports whether two cells are equal. Two nulls are equal and a
// null never equals a non-null. Numbers compare numerically and strings
// exactly. A number and a string compare numerically after converting the
// string with ToNumber; a string that is not numeric never matches.
func CellsEqual(a, b core.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}

	as, aIsStr := a.Str()
	bs, bIsStr := b.Str()
	switch {
	case aIsStr && bIsStr:
		return as == bs
	case aIsStr:
		bn, _ := b.Num()
		return ToNumber(as) == bn
	case bIsStr:
		an, _ := a.Num()
		return an == ToNumber(bs)
	default:
		an, _ := a.Num()
		bn, _ := b.Num()
		return an == bn
	}
}
