package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/datadetective/academy/internal/cli/output"
)

// NewProgressCommand creates the progress command.
func NewProgressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show completed challenges and points",
		Long: `Show completed challenges, points earned and overall completion.

Progress comes from the platform when api.base_url is configured and from
the local state database otherwise.`,
		Args: cobra.NoArgs,
		RunE: runProgress,
	}
}

func runProgress(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	report, err := cmdCtx.App.Progress(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}

	r.Header(1, "Progress")
	r.KeyValue("Points", strconv.Itoa(report.Summary.TotalPoints))
	r.KeyValue("Completed", fmt.Sprintf("%d of %d", report.Summary.TotalCompleted, cmdCtx.App.Catalog().Count()))
	r.KeyValue("Completion", fmt.Sprintf("%.1f%%", report.Summary.CompletionPercentage))

	if len(report.Items) == 0 {
		r.Println()
		r.Muted("No challenges completed yet.")
		return nil
	}

	r.Println()
	rows := make([][]string, 0, len(report.Items))
	for _, rec := range report.Items {
		rows = append(rows, []string{
			fmt.Sprintf("%d.%d", rec.UnitID, rec.ChallengeID),
			rec.ChallengeTitle,
			strconv.Itoa(rec.PointsEarned),
			strconv.Itoa(rec.HintsUsed),
			rec.CompletedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	r.Table([]string{"Challenge", "Title", "Points", "Hints", "Completed"}, rows)
	return nil
}
