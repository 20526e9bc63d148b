package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"prosperdash/internal/catalog"
	"prosperdash/internal/config"
	"prosperdash/internal/execution"
)

// doctorCmd reports on the local installation. It is diagnostic only
// and always exits 0.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local environment and configuration",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "prosperdash doctor (workdir %s)\n\n", wd)

	runner := execution.NewHostRunner(logger)

	// Interpreter
	if path, err := runner.LookPath(cfg.Python.Interpreter); err != nil {
		report(out, false, "interpreter %s not found in PATH", cfg.Python.Interpreter)
	} else {
		version := interpreterVersion(runner, path)
		report(out, true, "interpreter %s (%s)", path, version)
	}

	// Virtual environment
	venvPath := config.Resolve(wd, cfg.Python.VenvDir)
	if _, err := os.Stat(venvPath); err != nil {
		report(out, false, "virtual environment missing at %s (run 'prosperdash setup')", cfg.Python.VenvDir)
	} else {
		report(out, true, "virtual environment at %s", cfg.Python.VenvDir)
	}

	// Dependency manifest
	manifest := config.Resolve(wd, cfg.Python.Requirements)
	if n, err := countRequirements(manifest); err != nil {
		report(out, false, "dependency manifest %s unreadable: %v", cfg.Python.Requirements, err)
	} else {
		report(out, true, "dependency manifest %s (%d packages)", cfg.Python.Requirements, n)
	}

	// Runtime env file
	envPath := config.Resolve(wd, cfg.Python.EnvFile)
	if _, err := os.Stat(envPath); err != nil {
		report(out, false, "%s missing (run 'prosperdash setup')", cfg.Python.EnvFile)
	} else {
		report(out, true, "%s present", cfg.Python.EnvFile)
		// The scaffold only writes the first four documented keys, so the
		// rest commonly show up blank here. That drift is worth surfacing.
		if env, err := runtimeEnv(cfg, wd); err == nil {
			for _, key := range config.DocumentedKeys {
				if env.Get(key) == "" {
					fmt.Fprintf(out, "       [!!] %s blank\n", key)
				} else {
					fmt.Fprintf(out, "       [ok] %s set\n", key)
				}
			}
		}
	}

	// Question catalog
	env, envErr := runtimeEnv(cfg, wd)
	questionsPath := cfg.Catalog.QuestionsFile
	if envErr == nil && env.QuestionsFile() != "" {
		questionsPath = env.QuestionsFile()
	}
	if c, err := catalog.Load(config.Resolve(wd, questionsPath)); err != nil {
		report(out, false, "questions file %s unreadable: %v", questionsPath, err)
	} else {
		report(out, true, "questions file %s (%d questions)", questionsPath, c.Len())
	}

	// Saved states
	if infos, err := stateStore(cfg, wd).List(); err != nil {
		report(out, false, "states dir %s unreadable: %v", cfg.StatesDir, err)
	} else {
		report(out, true, "states dir %s (%d saved)", cfg.StatesDir, len(infos))
	}

	return nil
}

func report(w io.Writer, ok bool, format string, args ...any) {
	marker := "[ok]"
	if !ok {
		marker = "[!!]"
	}
	fmt.Fprintf(w, "  %s %s\n", marker, fmt.Sprintf(format, args...))
}

func interpreterVersion(runner execution.Runner, path string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := runner.Run(ctx, execution.Command{Binary: path, Args: []string{"--version"}})
	if err != nil || result.ExitCode != 0 {
		return "version unknown"
	}
	version := strings.TrimSpace(result.Stdout)
	if version == "" {
		version = strings.TrimSpace(result.Stderr)
	}
	if version == "" {
		return "version unknown"
	}
	return version
}

func countRequirements(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n++
	}
	return n, nil
}
