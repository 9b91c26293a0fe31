package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datadetective/academy/internal/cli/output"
	"github.com/datadetective/academy/internal/hints"
)

// NewHintCommand creates the hint command.
func NewHintCommand() *cobra.Command {
	var flags challengeFlags

	cmd := &cobra.Command{
		Use:   "hint",
		Short: "Unlock the next hint for a challenge",
		Long: `Unlock the next hint for a challenge and show every hint revealed so far.

Hints unlock in order and stay unlocked. The number of hints used is
recorded with the challenge's completion.`,
		Example: `  detective hint -u 2 -c 1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHint(cmd, flags)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func runHint(cmd *cobra.Command, flags challengeFlags) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	ctx := cmd.Context()
	s, err := cmdCtx.App.OpenChallenge(ctx, flags.key(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(ctx) }()

	level, err := s.UnlockHint(ctx)
	exhausted := errors.Is(err, hints.ErrAllHintsRevealed)
	if err != nil && !exhausted {
		return err
	}

	revealed := s.Hints()
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"level": level, "hints": revealed, "exhausted": exhausted})
	}

	if exhausted {
		r.Warning("All hints have already been revealed.")
	} else {
		r.Success(fmt.Sprintf("Hint %d unlocked", level))
	}
	renderHints(r, revealed)
	return nil
}
