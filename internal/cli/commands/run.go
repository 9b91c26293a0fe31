package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/datadetective/academy/internal/session"
)

// ErrQueryFailed is returned after a query error has been rendered.
var ErrQueryFailed = errors.New("query failed")

// RunOptions holds options for the run command.
type RunOptions struct {
	File string
	challengeFlags
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Run a query against the practice dataset",
		Long: `Run a SQL query in a fresh copy of the practice dataset and show the result.

Each invocation starts from the pristine dataset, so statements that modify
data never affect later runs. With --unit and --challenge the query is also
saved as that challenge's draft.`,
		Example: `  # Run a query
  detective run "SELECT name, email FROM users"

  # Run a query from a file
  detective run -f query.sql

  # Run from stdin as JSON
  echo "SELECT COUNT(*) FROM orders" | detective run -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the query from a file")
	opts.register(cmd, false)
	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	query, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var s *session.Controller
	if key := opts.key(); !key.IsZero() {
		s, err = cmdCtx.App.OpenChallenge(ctx, key, nil)
	} else {
		s, err = cmdCtx.App.OpenPractice(ctx, nil)
	}
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(ctx) }()

	if err := s.SetQuery(ctx, query); err != nil {
		return err
	}
	out, err := s.Run(ctx)
	if err != nil {
		return err
	}
	if err := cmdCtx.Renderer.Outcome(out); err != nil {
		return err
	}
	if !out.OK() {
		return ErrQueryFailed
	}
	return nil
}
