package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prosperdash/internal/cache"
	"prosperdash/internal/catalog"
	"prosperdash/internal/config"
	"prosperdash/internal/prosper"
	"prosperdash/internal/state"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workdir    string

	// Logger
	logger *zap.Logger

	// Exit code delegated from a child process (run command).
	childExitCode int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "prosperdash",
	Short: "prosperdash - survey dashboard environment manager and API toolkit",
	Long: `prosperdash manages the ProsperCheck survey dashboard: it bootstraps the
Python environment the dashboard runs in, launches the app, and gives
operators direct access to the survey API from the terminal: question
search, data pulls with charts, saved analysis states, LLM-written
insight reports, and a built-in web dashboard.

Start with:
  prosperdash setup
  prosperdash run`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workdir>/prosperdash.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workdir, "workdir", "w", "", "Working directory (default: current)")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if childExitCode != 0 {
		os.Exit(childExitCode)
	}
}

// resolveWorkdir returns the --workdir flag or the current directory.
func resolveWorkdir() (string, error) {
	if workdir != "" {
		return filepath.Abs(workdir)
	}
	return os.Getwd()
}

// loadConfig resolves the working directory and reads the tool config.
func loadConfig() (*config.Config, string, error) {
	wd, err := resolveWorkdir()
	if err != nil {
		return nil, "", fmt.Errorf("resolve working directory: %w", err)
	}
	path := configPath
	if path == "" {
		path = filepath.Join(wd, config.DefaultFileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, wd, nil
}

// runtimeEnv loads the dashboard .env overlay for the given workdir.
func runtimeEnv(cfg *config.Config, wd string) (*config.RuntimeEnv, error) {
	return config.LoadRuntimeEnv(config.Resolve(wd, cfg.Python.EnvFile))
}

// newAPIClient builds the survey API client from the runtime env. The
// returned closer releases the response cache and is safe to call when
// caching is disabled.
func newAPIClient(cfg *config.Config, env *config.RuntimeEnv, wd string, noCache bool) (*prosper.Client, func(), error) {
	opts := []prosper.Option{prosper.WithLogger(logger)}
	closer := func() {}

	if !noCache && !cfg.Cache.Disabled {
		db, err := cache.Open(config.Resolve(wd, cfg.Cache.Path), logger)
		if err != nil {
			logger.Warn("response cache unavailable", zap.Error(err))
		} else {
			opts = append(opts, prosper.WithCache(db, cfg.GetCacheTTL()))
			closer = func() { _ = db.Close() }
		}
	}

	client, err := prosper.NewClient(env.APIURL(), env.APIKey(), env.StudyName(), opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return client, closer, nil
}

// openCatalog loads the question catalog, preferring the runtime env's
// QUESTIONS_FILE over the config fallback.
func openCatalog(cfg *config.Config, env *config.RuntimeEnv, wd string) (*catalog.Catalog, error) {
	path := env.QuestionsFile()
	if path == "" {
		path = cfg.Catalog.QuestionsFile
	}
	return catalog.Load(config.Resolve(wd, path))
}

func stateStore(cfg *config.Config, wd string) *state.Store {
	return state.NewStore(config.Resolve(wd, cfg.StatesDir), logger)
}

// shortStamp trims an ISO timestamp down to its date part.
func shortStamp(s string) string {
	if i := strings.IndexAny(s, "T "); i > 0 {
		return s[:i]
	}
	return s
}
