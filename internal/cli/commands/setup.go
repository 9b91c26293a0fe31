package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datadetective/academy/internal/app"
	"github.com/datadetective/academy/internal/cli/config"
	"github.com/datadetective/academy/internal/cli/output"
	"github.com/datadetective/academy/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	App      *app.App
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an app and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	a, err := createApp(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("failed to close state", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		App:      a,
		Renderer: newRenderer(cmd, cfg),
	}, cleanup, nil
}

func newRenderer(cmd *cobra.Command, cfg *config.Config) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
}

func createApp(cfg *config.Config, logger *slog.Logger) (*app.App, error) {
	return app.New(app.Config{
		Engine:       cfg.Engine.Type,
		Params:       cfg.Engine.Params,
		QueryTimeout: cfg.Engine.QueryTimeout,
		CatalogDir:   cfg.Catalog.Dir,
		StatePath:    cfg.StatePath,
		QuietPeriod:  cfg.Drafts.QuietPeriod,
		APIBaseURL:   cfg.API.BaseURL,
		APIToken:     cfg.API.Token,
		APITimeout:   cfg.API.Timeout,
		Logger:       logger,
	})
}

// challengeFlags are the --unit and --challenge flags.
type challengeFlags struct {
	unit      int
	challenge int
}

func (f *challengeFlags) register(cmd *cobra.Command, required bool) {
	cmd.Flags().IntVarP(&f.unit, "unit", "u", 0, "Unit ID")
	cmd.Flags().IntVarP(&f.challenge, "challenge", "c", 0, "Challenge ID within the unit")
	if required {
		_ = cmd.MarkFlagRequired("unit")
		_ = cmd.MarkFlagRequired("challenge")
	}
}

func (f *challengeFlags) key() core.ChallengeKey {
	return core.ChallengeKey{UnitID: f.unit, ChallengeID: f.challenge}
}

// readQuery returns the query from args, a file, or stdin when args is "-"
// or empty and stdin is not a terminal.
func readQuery(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return string(data), nil
	case len(args) > 0 && args[0] != "-":
		return strings.Join(args, " "), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && output.IsTerminal(f) {
		return "", fmt.Errorf("no query given: pass it as an argument, with --file, or on stdin")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	return string(data), nil
}
