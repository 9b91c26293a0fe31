package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/datadetective/academy/internal/api"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Origins []string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve challenge sessions over HTTP",
		Long: `Start the HTTP API used by the browser front end.

Each browser gets its own private copy of the dataset per open challenge.
With --watch, pack files in catalog.dir are reloaded when they change.`,
		Example: `  # Serve on the default address
  detective serve

  # Serve a pack directory with hot reload
  detective serve --catalog ./packs --watch --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default 127.0.0.1:8080)")
	cmd.Flags().Bool("watch", false, "Reload the catalog when pack files change")
	cmd.Flags().StringSliceVar(&opts.Origins, "origin", nil, "Allowed CORS origin (repeatable)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(api.Config{
		App:            cmdCtx.App,
		Addr:           cmdCtx.Cfg.Serve.Addr,
		SessionSecret:  cmdCtx.Cfg.Serve.SessionSecret,
		AllowedOrigins: opts.Origins,
		Watch:          cmdCtx.Cfg.Serve.Watch,
		Logger:         cmdCtx.Logger,
	})

	cmdCtx.Renderer.Success("Serving on http://" + cmdCtx.Cfg.Serve.Addr + "/api")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
