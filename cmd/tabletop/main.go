// Command tabletop runs the tabletop voice, OCR and speech service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-tabletop/internal/config"
	"github.com/teslashibe/go-tabletop/internal/log"
)

var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFiles []string
	debug    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}

	serve := newServeCommand(g)

	root := &cobra.Command{
		Use:           "tabletop",
		Short:         "Discord voice, OCR and speech service for tabletop sessions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		// Running the bare command starts the server.
		RunE: serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", nil, "dotenv file(s) to load (default .env)")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(serve)
	root.AddCommand(newVoicesCommand())
	root.AddCommand(newCheckCommand(g))
	root.AddCommand(newOCRCommand(g))

	return root
}

// loadConfig reads configuration and initializes logging.
func (g *globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(g.envFiles...)
	if err != nil {
		return config.Config{}, err
	}
	if g.debug {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel, cfg.IsProduction())
	return cfg, nil
}
