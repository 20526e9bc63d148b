// Package bootstrap prepares and launches the Python dashboard that
// prosperdash fronts. Setup provisions an isolated virtual environment
// and scaffolds the runtime config file; Launcher starts the dashboard
// inside that environment and surfaces its exit code.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"prosperdash/internal/config"
	"prosperdash/internal/execution"
)

// ErrInterpreterNotFound is returned by Setup when the configured Python
// interpreter cannot be resolved on PATH. Nothing is written to disk in
// that case.
var ErrInterpreterNotFound = errors.New("python interpreter not found")

// Bootstrapper provisions the dashboard's virtual environment. All
// collaborators are injectable so tests can run against doubles.
type Bootstrapper struct {
	// Workdir is the project root every relative path below resolves
	// against. Empty means the current directory.
	Workdir string

	// Interpreter is the Python executable to resolve on PATH,
	// e.g. "python3.11".
	Interpreter string

	// VenvDir is where the virtual environment lives, relative to
	// Workdir unless absolute.
	VenvDir string

	// Requirements is the dependency manifest passed to pip.
	Requirements string

	// EnvFile is the runtime config file to scaffold on first run.
	EnvFile string

	runner execution.Runner
	out    io.Writer
	logger *zap.Logger
}

// NewBootstrapper wires a Bootstrapper from configuration. A nil runner
// defaults to the host runner and a nil out defaults to os.Stdout.
func NewBootstrapper(cfg *config.Config, workdir string, runner execution.Runner, out io.Writer, logger *zap.Logger) *Bootstrapper {
	if runner == nil {
		runner = execution.NewHostRunner(logger)
	}
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{
		Workdir:      workdir,
		Interpreter:  cfg.Python.Interpreter,
		VenvDir:      cfg.Python.VenvDir,
		Requirements: cfg.Python.Requirements,
		EnvFile:      cfg.Python.EnvFile,
		runner:       runner,
		out:          out,
		logger:       logger,
	}
}

// VenvPath returns the absolute virtual environment directory.
func (b *Bootstrapper) VenvPath() string {
	return config.Resolve(b.Workdir, b.VenvDir)
}

// Setup provisions the environment in order: resolve the interpreter,
// create the virtual environment if absent, upgrade pip, install the
// manifest, and scaffold the config file. The interpreter check runs
// before anything touches the filesystem, so a missing interpreter
// leaves the project directory exactly as it was found.
func (b *Bootstrapper) Setup(ctx context.Context) error {
	interp, err := b.runner.LookPath(b.Interpreter)
	if err != nil {
		fmt.Fprintf(b.out, "%s is required but was not found on PATH.\n", b.Interpreter)
		fmt.Fprintf(b.out, "Install it and re-run setup.\n")
		return fmt.Errorf("%w: %s", ErrInterpreterNotFound, b.Interpreter)
	}
	fmt.Fprintf(b.out, "Using %s\n", interp)

	venvPath := b.VenvPath()
	if _, err := os.Stat(venvPath); err == nil {
		fmt.Fprintf(b.out, "Virtual environment already exists at %s\n", b.VenvDir)
	} else if os.IsNotExist(err) {
		fmt.Fprintf(b.out, "Creating virtual environment at %s...\n", b.VenvDir)
		if err := b.exec(ctx, interp, "-m", "venv", venvPath); err != nil {
			return fmt.Errorf("creating virtual environment: %w", err)
		}
		fmt.Fprintln(b.out, "Virtual environment created")
	} else {
		return fmt.Errorf("checking virtual environment: %w", err)
	}

	python := venvPython(venvPath)

	fmt.Fprintln(b.out, "Upgrading pip...")
	if err := b.exec(ctx, python, "-m", "pip", "install", "--upgrade", "pip"); err != nil {
		return fmt.Errorf("upgrading pip: %w", err)
	}

	manifest := config.Resolve(b.Workdir, b.Requirements)
	fmt.Fprintf(b.out, "Installing dependencies from %s...\n", b.Requirements)
	if err := b.exec(ctx, python, "-m", "pip", "install", "-r", manifest); err != nil {
		return fmt.Errorf("installing dependencies: %w", err)
	}
	fmt.Fprintln(b.out, "Dependencies installed")

	if err := b.scaffoldEnvFile(); err != nil {
		return err
	}

	fmt.Fprintln(b.out)
	fmt.Fprintln(b.out, "Setup complete. Start the dashboard with: prosperdash run")
	return nil
}

// scaffoldEnvFile writes the empty-keyed config template on first run
// and leaves any existing file untouched.
func (b *Bootstrapper) scaffoldEnvFile() error {
	path := config.Resolve(b.Workdir, b.EnvFile)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(b.out, "Found existing %s, leaving it as is\n", b.EnvFile)
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", b.EnvFile, err)
	}

	if err := config.WriteScaffold(path); err != nil {
		return fmt.Errorf("scaffolding %s: %w", b.EnvFile, err)
	}
	fmt.Fprintf(b.out, "Created %s, fill in your API credentials before launching\n", b.EnvFile)
	return nil
}

// exec runs one provisioning step with output streamed to the console.
// A non-zero exit status is returned as an error so setup aborts with
// the failing step's diagnostics already printed.
func (b *Bootstrapper) exec(ctx context.Context, binary string, args ...string) error {
	cmd := execution.Command{
		Binary: binary,
		Args:   args,
		Dir:    b.Workdir,
		Stdout: b.out,
		Stderr: b.out,
	}
	b.logger.Debug("running setup step", zap.String("command", cmd.String()))

	result, err := b.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	return result.Err(cmd)
}
