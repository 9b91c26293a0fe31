package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datadetective/academy/internal/cli/output"
	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/internal/session"
	"github.com/datadetective/academy/pkg/core"
)

// ErrIncorrect is returned after a failing verdict has been rendered.
var ErrIncorrect = errors.New("answer is not correct yet")

// CheckOptions holds options for the check command.
type CheckOptions struct {
	File   string
	Submit bool
	challengeFlags
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check [query]",
		Short: "Check a query against a challenge's expected result",
		Long: `Check a query against the expected result of a challenge.

Column names, row count, row order and every value must match. Numbers and
numeric text compare as numbers. With --submit a passing query is submitted
and its points recorded.`,
		Example: `  # Check an answer
  detective check -u 1 -c 2 "SELECT name, email FROM users"

  # Check and submit
  detective check -u 1 -c 2 --submit -f answer.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the query from a file")
	cmd.Flags().BoolVar(&opts.Submit, "submit", false, "Submit the query if it passes")
	opts.register(cmd, true)
	return cmd
}

// checkOutput is the JSON document of the check command.
type checkOutput struct {
	Challenge core.ChallengeKey `json:"challenge"`
	Verdict   core.Verdict      `json:"verdict"`
	Award     *gateway.Award    `json:"award,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	query, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	ctx := cmd.Context()
	s, err := cmdCtx.App.OpenChallenge(ctx, opts.key(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(ctx) }()

	if err := s.SetQuery(ctx, query); err != nil {
		return err
	}
	verdict, err := s.CheckAnswer(ctx)
	if err != nil {
		var aborted *session.ValidationAbortedError
		if errors.As(err, &aborted) && aborted.Source == session.SourceStudent {
			r.Error(aborted.EngineMessage)
			return ErrQueryFailed
		}
		return err
	}

	out := checkOutput{Challenge: opts.key(), Verdict: verdict}
	if verdict.IsValid && opts.Submit {
		award, err := s.Submit(ctx)
		if err != nil {
			return fmt.Errorf("failed to submit: %w", err)
		}
		out.Award = &award
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		if err := r.Verdict(verdict); err != nil {
			return err
		}
		if !verdict.IsValid && verdict.StudentResult != nil {
			r.Println()
			r.Header(3, "Your result")
			r.Result(*verdict.StudentResult)
		}
		if out.Award != nil {
			renderAward(r, *out.Award)
		}
	}

	if !verdict.IsValid {
		return ErrIncorrect
	}
	return nil
}

func renderAward(r *output.Renderer, a gateway.Award) {
	if a.AlreadyCompleted {
		r.Warning(fmt.Sprintf("Already completed earlier for %d points.", a.PointsEarned))
		return
	}
	r.Success(fmt.Sprintf("Submitted! +%d points (%d hint(s) used)", a.PointsEarned, a.HintsUsed))
}
