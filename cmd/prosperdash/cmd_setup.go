package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"prosperdash/internal/bootstrap"
)

// setupCmd provisions the Python environment the dashboard runs in.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the Python environment and configuration scaffold",
	Long: `Prepares everything the dashboard needs to run:

  1. Resolves the configured Python interpreter (fatal if missing)
  2. Creates the virtual environment if it does not exist
  3. Upgrades pip and installs the dependency manifest
  4. Writes a blank .env template on first run (never overwritten)

Safe to run repeatedly; dependency installation always runs so manifest
changes are picked up.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bootstrap.NewBootstrapper(cfg, wd, nil, cmd.OutOrStdout(), logger)
	return b.Setup(ctx)
}
