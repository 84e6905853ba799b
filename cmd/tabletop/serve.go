package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-tabletop/internal/log"
	"github.com/teslashibe/go-tabletop/pkg/tabletop"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Host = host
			}
			if port != 0 {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log.Info("starting tabletop", "version", version, "addr", cfg.Addr())

			app, err := tabletop.New(cfg, log.L())
			if err != nil {
				return err
			}
			if err := app.Init(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runErr := app.Run(ctx)

			shutdownCtx, done := context.WithTimeout(context.Background(), tabletop.ShutdownTimeout)
			defer done()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown", "error", err)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "bind host (overrides HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}
