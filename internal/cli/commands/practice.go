package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/datadetective/academy/internal/catalog"
	"github.com/datadetective/academy/internal/cli/output"
	"github.com/datadetective/academy/internal/hints"
	"github.com/datadetective/academy/internal/session"
	"github.com/datadetective/academy/internal/state"
)

const (
	practicePrompt      = "detective> "
	continuationPrompt  = "       ...> "
	practiceHistoryFile = "practice_history"
)

// NewPracticeCommand creates the practice command.
func NewPracticeCommand() *cobra.Command {
	var flags challengeFlags

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Work on a challenge interactively",
		Long: `Start an interactive SQL prompt for a challenge.

Statements run when a line ends with a semicolon. Dot commands check,
submit and reveal hints. Without --unit and --challenge the prompt runs
queries against the practice dataset only.`,
		Example: `  # Work on unit 1, challenge 2
  detective practice -u 1 -c 2

  # Free practice
  detective practice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPractice(cmd, flags)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func runPractice(cmd *cobra.Command, flags challengeFlags) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	p := &practice{r: cmdCtx.Renderer}
	if key := flags.key(); !key.IsZero() {
		ch, err := cmdCtx.App.Catalog().Challenge(key)
		if err != nil {
			return err
		}
		p.challenge = &ch
		p.s, err = cmdCtx.App.OpenChallenge(ctx, key, nil)
		if err != nil {
			return err
		}
	} else {
		p.s, err = cmdCtx.App.OpenPractice(ctx, nil)
		if err != nil {
			return err
		}
	}
	defer func() { _ = p.s.Close(ctx) }()

	// Setup history file next to the state database
	var historyFile string
	if cmdCtx.Cfg.StatePath != "" && cmdCtx.Cfg.StatePath != state.MemoryPath {
		historyFile = filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), practiceHistoryFile)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          practicePrompt,
		HistoryFile:     historyFile,
		AutoComplete:    p.completer(ctx),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	p.welcome()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			p.buf.Reset()
			rl.SetPrompt(practicePrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		quit := p.handleLine(ctx, line)
		if quit {
			break
		}
		if p.buf.Len() > 0 {
			rl.SetPrompt(continuationPrompt)
		} else {
			rl.SetPrompt(practicePrompt)
		}
	}
	return nil
}

// practice is the state of the interactive prompt.
type practice struct {
	s         *session.Controller
	challenge *catalog.Challenge
	r         *output.Renderer
	buf       strings.Builder
}

func (p *practice) welcome() {
	if p.challenge != nil {
		renderChallenge(p.r, *p.challenge, p.s.Hints())
		if draft := p.s.State().QueryText; draft != "" {
			p.r.Println()
			p.r.Muted("Restored draft:")
			p.r.Println(draft)
		}
	} else {
		p.r.Header(1, "Free practice")
	}
	p.r.Println()
	p.r.Muted("End statements with ; to run them. Type .help for commands, .quit to exit")
	p.r.Println()
}

// handleLine processes one input line and reports whether to quit.
func (p *practice) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if p.buf.Len() == 0 && strings.HasPrefix(trimmed, ".") {
		return p.dotCommand(ctx, trimmed)
	}

	// Accumulate multi-line SQL until semicolon
	if p.buf.Len() > 0 {
		p.buf.WriteString("\n")
	}
	p.buf.WriteString(line)
	if !strings.HasSuffix(trimmed, ";") {
		return false
	}

	query := p.buf.String()
	p.buf.Reset()
	p.run(ctx, query)
	return false
}

func (p *practice) run(ctx context.Context, query string) {
	if err := p.s.SetQuery(ctx, query); err != nil {
		p.r.Error(err.Error())
		return
	}
	out, err := p.s.Run(ctx)
	if err != nil {
		p.r.Error(err.Error())
		return
	}
	_ = p.r.Outcome(out)
	p.r.Println()
}

func (p *practice) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printPracticeHelp(p.r.Writer())

	case ".check":
		p.check(ctx)

	case ".submit":
		award, err := p.s.Submit(ctx)
		if err != nil {
			p.reportError(err)
			return false
		}
		renderAward(p.r, award)

	case ".hint":
		level, err := p.s.UnlockHint(ctx)
		if err != nil {
			p.reportError(err)
			return false
		}
		p.r.Success(fmt.Sprintf("Hint %d unlocked", level))
		renderHints(p.r, p.s.Hints())

	case ".clear":
		if err := p.s.Clear(ctx); err != nil {
			p.reportError(err)
			return false
		}
		p.r.Muted("Query cleared.")

	case ".dismiss":
		p.s.DismissError()
		p.r.Muted("Error dismissed.")

	case ".show":
		p.show()

	case ".tables":
		tables, err := p.s.Tables(ctx)
		if err != nil {
			p.reportError(err)
			return false
		}
		for _, t := range tables {
			p.r.Println(t)
		}

	case ".schema":
		if len(parts) < 2 {
			p.r.Error("Usage: .schema <table>")
			return false
		}
		p.schema(ctx, parts[1])

	default:
		p.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func (p *practice) check(ctx context.Context) {
	verdict, err := p.s.CheckAnswer(ctx)
	if err != nil {
		p.reportError(err)
		return
	}
	_ = p.r.Verdict(verdict)
	if verdict.IsValid {
		if p.s.State().CanSubmitTo {
			p.r.Muted("Type .submit to record your solution.")
		}
		return
	}
	if verdict.StudentResult != nil {
		p.r.Result(*verdict.StudentResult)
	}
}

func (p *practice) show() {
	st := p.s.State()
	if p.challenge != nil {
		renderChallenge(p.r, *p.challenge, p.s.Hints())
		p.r.Println()
	}
	if st.QueryText != "" {
		p.r.Println(output.FormatCodeBlock("sql", st.QueryText))
	}
	switch {
	case st.Completed:
		p.r.Success("Completed")
	case st.CanSubmit():
		p.r.Success("Passed. Ready to submit.")
	case st.LastVerdict != nil && !st.LastVerdict.IsValid:
		p.r.Warning(st.LastVerdict.Message)
	}
	if st.LastError != "" {
		p.r.Error(st.LastError)
	}
}

func (p *practice) schema(ctx context.Context, table string) {
	meta, err := p.s.Describe(ctx, table)
	if err != nil {
		p.reportError(err)
		return
	}
	rows := make([][]string, 0, len(meta.Columns))
	for _, c := range meta.Columns {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		rows = append(rows, []string{c.Name, c.Type, nullable})
	}
	p.r.Table([]string{"column", "type", "nullable"}, rows)
}

// reportError prints err. Refusals are warnings, not failures.
func (p *practice) reportError(err error) {
	var refused *session.SubmissionRefusedError
	switch {
	case errors.As(err, &refused), errors.Is(err, hints.ErrAllHintsRevealed):
		p.r.Warning(err.Error())
	default:
		p.r.Error(err.Error())
	}
}

func printPracticeHelp(w io.Writer) {
	help := `
Commands:
  .check          Check the last query against the expected result
  .submit         Submit the last query once it passes
  .hint           Reveal the next hint
  .clear          Clear the query and the last result
  .dismiss        Dismiss the last error
  .show           Show the challenge, query and status
  .tables         List tables
  .schema <name>  Show columns of a table
  .help           Show this help message
  .quit / .exit   Exit

Tips:
  - SQL statements run when a line ends with a semicolon (;)
  - Changes to the data last until you quit; checks always use the original data
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// completer completes table names and dot commands.
func (p *practice) completer(ctx context.Context) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	if tables, err := p.s.Tables(ctx); err == nil {
		for _, t := range tables {
			items = append(items, readline.PcItem(t))
		}
	}
	items = append(items,
		readline.PcItem(".check"),
		readline.PcItem(".submit"),
		readline.PcItem(".hint"),
		readline.PcItem(".clear"),
		readline.PcItem(".dismiss"),
		readline.PcItem(".show"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	)
	return readline.NewPrefixCompleter(items...)
}
