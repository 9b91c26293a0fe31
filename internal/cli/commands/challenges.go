package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/datadetective/academy/internal/catalog"
	"github.com/datadetective/academy/internal/cli/output"
	"github.com/datadetective/academy/pkg/core"
)

// NewChallengesCommand creates the challenges command.
func NewChallengesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "challenges",
		Aliases: []string{"ls"},
		Short:   "List challenges",
		Long: `List every unit and challenge in the catalog, with points and
completion status.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown tables`,
		Example: `  # List all challenges
  detective challenges

  # List as JSON
  detective challenges -o json

  # Show one challenge
  detective challenges show --unit 1 --challenge 2`,
		Args: cobra.NoArgs,
		RunE: runChallenges,
	}

	cmd.AddCommand(newChallengeShowCommand())
	return cmd
}

// challengeRow is one challenge in JSON output.
type challengeRow struct {
	catalog.Challenge
	UnitTitle string `json:"unit_title"`
	HintCount int    `json:"hint_count"`
	Completed bool   `json:"completed"`
}

func runChallenges(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	completed := completedSet(cmd, cmdCtx)
	units := cmdCtx.App.Catalog().Units()

	if r.EffectiveMode() == output.ModeJSON {
		var rows []challengeRow
		for _, u := range units {
			for _, ch := range u.Challenges {
				rows = append(rows, challengeRow{
					Challenge: ch,
					UnitTitle: u.Title,
					HintCount: len(ch.Hints),
					Completed: completed[ch.Key()],
				})
			}
		}
		return r.JSON(rows)
	}

	for i, u := range units {
		if i > 0 {
			r.Println()
		}
		r.Header(2, fmt.Sprintf("Unit %d: %s", u.ID, u.Title))
		rows := make([][]string, 0, len(u.Challenges))
		for _, ch := range u.Challenges {
			status := ""
			if completed[ch.Key()] {
				status = "✓"
			}
			rows = append(rows, []string{
				strconv.Itoa(ch.ID), ch.Title, strconv.Itoa(ch.Points), strconv.Itoa(len(ch.Hints)), status,
			})
		}
		r.Table([]string{"#", "Title", "Points", "Hints", "Done"}, rows)
	}
	return nil
}

// completedSet returns the completed challenges. Progress is decoration
// here; a failure to load it is logged and ignored.
func completedSet(cmd *cobra.Command, cmdCtx *CommandContext) map[core.ChallengeKey]bool {
	done := make(map[core.ChallengeKey]bool)
	report, err := cmdCtx.App.Progress(cmd.Context())
	if err != nil {
		cmdCtx.Logger.Warn("failed to load progress", "error", err)
		return done
	}
	for _, rec := range report.Items {
		done[rec.Key()] = true
	}
	return done
}

func newChallengeShowCommand() *cobra.Command {
	var flags challengeFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a challenge's description and unlocked hints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChallengeShow(cmd, flags)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func runChallengeShow(cmd *cobra.Command, flags challengeFlags) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	s, err := cmdCtx.App.OpenChallenge(cmd.Context(), flags.key(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(cmd.Context()) }()

	ch, err := cmdCtx.App.Catalog().Challenge(flags.key())
	if err != nil {
		return err
	}
	st := s.State()

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"challenge": ch,
			"hints":     s.Hints(),
			"draft":     st.QueryText,
		})
	}

	renderChallenge(r, ch, s.Hints())
	if st.QueryText != "" {
		r.Println()
		r.Header(3, "Saved draft")
		r.Println(output.FormatCodeBlock("sql", st.QueryText))
	}
	return nil
}

func renderChallenge(r *output.Renderer, ch catalog.Challenge, revealed []string) {
	r.Header(1, fmt.Sprintf("%s (%d points)", ch.Title, ch.Points))
	r.Println(ch.Description)
	if len(revealed) > 0 {
		r.Println()
		r.Header(3, "Hints")
		renderHints(r, revealed)
	}
	if remaining := len(ch.Hints) - len(revealed); remaining > 0 {
		r.Muted(fmt.Sprintf("%d hint(s) still locked", remaining))
	}
}

func renderHints(r *output.Renderer, revealed []string) {
	for i, h := range revealed {
		r.Printf("%d. %s\n", i+1, h)
	}
}
