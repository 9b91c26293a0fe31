package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datadetective/academy/pkg/core"
)

func sampleResult() core.TabularResult {
	return core.TabularResult{
		Columns: []string{"name", "age"},
		Rows: [][]core.Value{
			{core.String("Alice"), core.Number(30)},
			{core.String("Bob"), core.Null()},
		},
	}
}

func TestMode_Resolve(t *testing.T) {
	tests := []struct {
		mode Mode
		tty  bool
		want Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.Resolve(tt.tty))
		})
	}
}

func TestRenderer_BufferIsNotTTY(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_OutcomeMarkdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeMarkdown)

	require.NoError(t, r.Outcome(core.Succeeded(sampleResult(), 1500*time.Microsecond)))

	out := buf.String()
	assert.Contains(t, out, "| name | age |")
	assert.Contains(t, out, "| Alice | 30 |")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "Query time: 1.50 ms")
}

func TestRenderer_OutcomeText(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeText)

	require.NoError(t, r.Outcome(core.Succeeded(sampleResult(), time.Millisecond)))
	assert.Contains(t, buf.String(), "Alice")
	assert.Contains(t, buf.String(), "┌")
}

func TestRenderer_OutcomeFailureIsVerbatim(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	require.NoError(t, r.Outcome(core.Failed(`near "SELCT": syntax error`)))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), `near "SELCT": syntax error`)
}

func TestRenderer_OutcomeJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)

	require.NoError(t, r.Outcome(core.Succeeded(sampleResult(), time.Millisecond)))
	assert.Contains(t, buf.String(), `"kind": "success"`)
	assert.Contains(t, buf.String(), `"columns"`)
}

func TestRenderer_Verdict(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeText)

	require.NoError(t, r.Verdict(core.Verdict{IsValid: false, Message: "Row count mismatch"}))
	assert.Contains(t, buf.String(), "! Row count mismatch")
}

func TestRenderer_EmptyColumns(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeText)

	r.Result(core.TabularResult{})
	assert.Contains(t, buf.String(), "no rows returned")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Units", FormatHeader(2, "Units"))
	assert.Equal(t, "- **Points:** 100", FormatKeyValue("Points", "100"))
	assert.Equal(t, "```sql\nSELECT 1;\n```", FormatCodeBlock("sql", "SELECT 1;\n"))
	assert.Equal(t, "> a\n> b", FormatQuote("a\nb"))
}

func TestRenderer_NoColorUsesPlainStyles(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, true, ModeText)
	assert.Equal(t, "done", r.Styles().Success.Render("done"))
}
