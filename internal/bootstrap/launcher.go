package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"prosperdash/internal/config"
	"prosperdash/internal/execution"
)

// ErrEnvMissing is returned by Launcher.Run when the virtual environment
// has not been provisioned yet.
var ErrEnvMissing = errors.New("virtual environment not found")

// Launcher starts the dashboard inside the provisioned virtual
// environment, attached to the caller's terminal, and reports the exit
// code the application finished with.
type Launcher struct {
	// Workdir is the project root; relative paths resolve against it.
	Workdir string

	// VenvDir is the virtual environment created by Setup.
	VenvDir string

	// Command and Args name the application entry point, resolved
	// inside the environment's bin directory.
	Command string
	Args    []string

	// Stdin, Stdout and Stderr are handed to the child. Nil values
	// default to the process's own standard streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Env is the base environment before activation entries are
	// applied. Nil means the current process environment.
	Env []string

	runner execution.Runner
	logger *zap.Logger
}

// NewLauncher wires a Launcher from configuration. A nil runner defaults
// to the host runner.
func NewLauncher(cfg *config.Config, workdir string, runner execution.Runner, logger *zap.Logger) *Launcher {
	if runner == nil {
		runner = execution.NewHostRunner(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		Workdir: workdir,
		VenvDir: cfg.Python.VenvDir,
		Command: cfg.App.Command,
		Args:    cfg.App.Args,
		runner:  runner,
		logger:  logger,
	}
}

// Run starts the application in the foreground and blocks until it
// exits, returning the child's exit code. A missing environment fails
// fast with ErrEnvMissing before anything is started; errors after a
// successful start are the child's to report through its exit code.
func (l *Launcher) Run(ctx context.Context) (int, error) {
	venvPath := config.Resolve(l.Workdir, l.VenvDir)
	if _, err := os.Stat(venvPath); err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w at %s, run 'prosperdash setup' first", ErrEnvMissing, l.VenvDir)
		}
		return 0, fmt.Errorf("checking virtual environment: %w", err)
	}

	exe, err := l.resolveCommand(venvPath)
	if err != nil {
		return 0, err
	}

	base := l.Env
	if base == nil {
		base = os.Environ()
	}

	cmd := execution.Command{
		Binary: exe,
		Args:   l.Args,
		Dir:    l.Workdir,
		Env:    ActivationEnv(base, venvPath),
		Stdin:  l.stdin(),
		Stdout: l.stdout(),
		Stderr: l.stderr(),
	}
	l.logger.Info("starting dashboard", zap.String("command", cmd.String()))

	result, err := l.runner.Run(ctx, cmd)
	if err != nil {
		if result != nil {
			return result.ExitCode, err
		}
		return 0, fmt.Errorf("starting %s: %w", l.Command, err)
	}
	return result.ExitCode, nil
}

// resolveCommand locates the entry point inside the environment's bin
// directory. Installed console scripts land there, so a missing binary
// means the dependency install never ran to completion.
func (l *Launcher) resolveCommand(venvPath string) (string, error) {
	if filepath.IsAbs(l.Command) {
		return l.Command, nil
	}

	candidates := []string{l.Command}
	if runtime.GOOS == "windows" {
		candidates = []string{l.Command + ".exe", l.Command}
	}
	bin := venvBinDir(venvPath)
	for _, name := range candidates {
		path := filepath.Join(bin, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found in %s, re-run 'prosperdash setup'", l.Command, bin)
}

func (l *Launcher) stdin() io.Reader {
	if l.Stdin != nil {
		return l.Stdin
	}
	return os.Stdin
}

func (l *Launcher) stdout() io.Writer {
	if l.Stdout != nil {
		return l.Stdout
	}
	return os.Stdout
}

func (l *Launcher) stderr() io.Writer {
	if l.Stderr != nil {
		return l.Stderr
	}
	return os.Stderr
}
