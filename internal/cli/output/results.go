package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/datadetective/academy/pkg/core"
)

// Table writes a simple table. Text mode draws box borders, markdown mode
// emits a pipe table.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	style := table.StyleLight
	// Column names are part of the answer; keep their case.
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, c := range row {
			tr[i] = c
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

// Result writes a tabular result followed by its row count.
func (r *Renderer) Result(res core.TabularResult) {
	if len(res.Columns) == 0 {
		r.Muted("(statement executed, no rows returned)")
		return
	}
	rows := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		rows[i] = cells
	}
	r.Table(res.Columns, rows)
	r.Muted(rowCount(len(res.Rows)))
}

// Outcome writes an execution outcome. Failures print the engine message.
func (r *Renderer) Outcome(o core.Outcome) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(o)
	}
	if !o.OK() {
		r.Error(o.Message)
		return nil
	}
	r.Result(*o.Result)
	r.Muted(fmt.Sprintf("Query time: %.2f ms", o.ElapsedMs()))
	return nil
}

// Verdict writes a comparison verdict.
func (r *Renderer) Verdict(v core.Verdict) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(v)
	}
	if v.IsValid {
		r.Success(v.Message)
		return nil
	}
	r.Warning(v.Message)
	return nil
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}
