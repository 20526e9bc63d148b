package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"prosperdash/internal/bootstrap"
)

// runCmd starts the dashboard app inside the managed environment.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dashboard inside the managed environment",
	Long: `Starts the configured dashboard command in the foreground with the
virtual environment activated for the child process. prosperdash exits
with the dashboard's own exit code.

Fails immediately if the environment is missing; run 'prosperdash setup'
first.`,
	Args: cobra.NoArgs,
	RunE: runLaunch,
}

func runLaunch(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}

	// Ctrl+C goes to the whole foreground process group. Stay alive so
	// the child handles it and its exit code can still be delegated;
	// SIGTERM on this process alone tears the child down via ctx.
	signal.Ignore(os.Interrupt)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	launcher := bootstrap.NewLauncher(cfg, wd, nil, logger)
	code, err := launcher.Run(ctx)
	if err != nil {
		return err
	}

	// The child's exit code is surfaced from main after cobra unwinds.
	childExitCode = code
	return nil
}
