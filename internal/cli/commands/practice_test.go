package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datadetective/academy/internal/app"
	clitestutil "github.com/datadetective/academy/internal/cli/testutil"
	"github.com/datadetective/academy/internal/state"
	"github.com/datadetective/academy/internal/testutil"
	"github.com/datadetective/academy/pkg/core"
)

func newTestPractice(t *testing.T, key core.ChallengeKey) (*practice, *clitestutil.TestRenderer) {
	t.Helper()
	ctx := context.Background()

	a, err := app.New(app.Config{
		Engine:    "sqlite",
		StatePath: state.MemoryPath,
		Logger:    testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	tr := clitestutil.NewTestRendererMarkdown()
	p := &practice{r: tr.Renderer}
	if key.IsZero() {
		p.s, err = a.OpenPractice(ctx, nil)
	} else {
		ch, cerr := a.Catalog().Challenge(key)
		require.NoError(t, cerr)
		p.challenge = &ch
		p.s, err = a.OpenChallenge(ctx, key, nil)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.s.Close(ctx) })

	return p, tr
}

func TestPractice_MultiLineStatement(t *testing.T) {
	ctx := context.Background()
	p, tr := newTestPractice(t, core.ChallengeKey{})

	assert.False(t, p.handleLine(ctx, "SELECT name"))
	assert.False(t, p.handleLine(ctx, "FROM users"))
	assert.Empty(t, tr.Output(), "nothing runs before the semicolon")

	assert.False(t, p.handleLine(ctx, "WHERE id = 2;"))
	assert.Contains(t, tr.Output(), "Ben Ortiz")
	assert.Contains(t, tr.Output(), "(1 row)")
	assert.Equal(t, 0, p.buf.Len())
}

func TestPractice_EngineErrorIsReported(t *testing.T) {
	ctx := context.Background()
	p, tr := newTestPractice(t, core.ChallengeKey{})

	p.handleLine(ctx, "SELCT 1;")
	assert.Contains(t, tr.ErrorOutput(), "syntax error")
}

func TestPractice_DismissError(t *testing.T) {
	ctx := context.Background()
	p, tr := newTestPractice(t, core.ChallengeKey{UnitID: 1, ChallengeID: 1})

	p.handleLine(ctx, "SELECT 1;")
	p.handleLine(ctx, ".submit")
	tr.Reset()
	p.handleLine(ctx, ".show")
	assert.Contains(t, tr.ErrorOutput(), "Please check your answer before submitting.")

	tr.Reset()
	p.handleLine(ctx, ".dismiss")
	p.handleLine(ctx, ".show")
	assert.Empty(t, tr.ErrorOutput())
}

func TestPractice_CheckAndSubmit(t *testing.T) {
	ctx := context.Background()
	p, tr := newTestPractice(t, core.ChallengeKey{UnitID: 1, ChallengeID: 2})

	p.handleLine(ctx, ".submit")
	assert.Contains(t, tr.Output(), "check")

	tr.Reset()
	p.handleLine(ctx, "SELECT email, name FROM users;")
	p.handleLine(ctx, ".check")
	assert.Contains(t, tr.Output(), "Column name mismatch at position 1")

	tr.Reset()
	p.handleLine(ctx, "SELECT name, email FROM users;")
	p.handleLine(ctx, ".check")
	assert.Contains(t, tr.Output(), "Query results match expected output!")
	assert.Contains(t, tr.Output(), "Type .submit")

	tr.Reset()
	p.handleLine(ctx, ".submit")
	assert.Contains(t, tr.Output(), "Submitted! +150 points")
	assert.True(t, p.s.State().Completed)
}

func TestPractice_Hints(t *testing.T) {
	ctx := context.Background()
	p, tr := newTestPractice(t, core.ChallengeKey{UnitID: 1, ChallengeID: 1})

	for i := 0; i < 3; i++ {
		p.handleLine(ctx, ".hint")
	}
	assert.Contains(t, tr.Output(), "Hint 3 unlocked")
	assert.Contains(t, tr.Output(), "3. SELECT * FROM users")

	tr.Reset()
	p.handleLine(ctx, ".hint")
	assert.Contains(t, tr.Output(), "revealed")
	assert.Empty(t, tr.ErrorOutput())
}

func TestPractice_DotCommands(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		line    string
		quit    bool
		wantOut string
		wantErr string
	}{
		{name: "quit", line: ".quit", quit: true},
		{name: "exit", line: ".EXIT", quit: true},
		{name: "help", line: ".help", wantOut: ".schema <name>"},
		{name: "tables", line: ".tables", wantOut: "orders"},
		{name: "schema", line: ".schema users", wantOut: "| email |"},
		{name: "schema without table", line: ".schema", wantErr: "Usage: .schema <table>"},
		{name: "unknown", line: ".nope", wantErr: "Unknown command: .nope"},
		{name: "clear", line: ".clear", wantOut: "Query cleared."},
		{name: "blank line", line: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, tr := newTestPractice(t, core.ChallengeKey{})

			assert.Equal(t, tt.quit, p.handleLine(ctx, tt.line))
			if tt.wantOut != "" {
				assert.Contains(t, tr.Output(), tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, tr.ErrorOutput(), tt.wantErr)
			}
		})
	}
}

func TestPractice_Welcome(t *testing.T) {
	p, tr := newTestPractice(t, core.ChallengeKey{UnitID: 2, ChallengeID: 1})

	p.welcome()
	assert.Contains(t, tr.Output(), "# INNER JOIN (250 points)")
	assert.Contains(t, tr.Output(), "Type .help for commands")
	clitestutil.AssertValidMarkdown(t, tr.Output())
}
