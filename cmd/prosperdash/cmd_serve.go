package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prosperdash/internal/catalog"
	"prosperdash/internal/server"
)

var (
	serveAddr    string
	serveNoCache bool
)

// serveCmd runs the authenticated web dashboard.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web dashboard",
	Long: `Starts the web dashboard with session-based login.

APP_USERNAME and APP_PASSWORD must be set in the environment file;
the server refuses to start without them. The questions file is
watched while the server runs, so catalog edits show up without a
restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides the configured server.addr)")
	serveCmd.Flags().BoolVar(&serveNoCache, "no-cache", false, "Bypass the response cache")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := runtimeEnv(cfg, wd)
	if err != nil {
		return err
	}

	creds, err := server.NewCredentials(env.AppUsername(), env.AppPassword())
	if err != nil {
		return err
	}

	cat, err := openCatalog(cfg, env, wd)
	if err != nil {
		return err
	}

	client, closeCache, err := newAPIClient(cfg, env, wd, serveNoCache)
	if err != nil {
		return err
	}
	defer closeCache()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv, err := server.New(server.Options{
		Addr:        addr,
		SessionKey:  cfg.Server.SessionKey,
		Secure:      cfg.Server.Secure,
		Credentials: creds,
		Catalog:     cat,
		API:         client,
		States:      stateStore(cfg, wd),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := catalog.NewWatcher(cat, logger)
	if err != nil {
		logger.Warn("catalog watcher unavailable", zap.Error(err))
	} else if err := watcher.Start(ctx); err != nil {
		logger.Warn("catalog watcher failed to start", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	fmt.Printf("Dashboard listening on http://%s (%d questions loaded)\n", addr, cat.Len())
	return srv.Start(ctx)
}
