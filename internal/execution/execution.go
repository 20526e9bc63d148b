// Package execution runs external commands for the bootstrap and launch
// flows. All subprocess work in prosperdash goes through the Runner
// interface so tests can substitute counting or failing doubles without
// touching the host.
package execution

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Command describes a single subprocess invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string

	// Env is the complete child environment. A nil slice inherits the
	// parent process environment; an empty non-nil slice means "no
	// variables at all".
	Env []string

	// Stdin, Stdout and Stderr attach the child to the given streams.
	// Nil Stdout/Stderr capture into Result.Stdout/Result.Stderr, capped
	// at the runner's output limit.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command for log lines and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Result captures the outcome of a completed command.
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Duration  time.Duration
	Truncated bool
	Killed    bool
}

// Runner executes commands and resolves binaries on the host. A command
// that starts and exits non-zero is a Result, not an error; an error means
// the command could not be run at all (binary missing, context canceled
// before start, I/O failure).
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	LookPath(name string) (string, error)
}

// ExitStatusError reports a command that ran to completion with a non-zero
// exit code, for callers that treat that as fatal.
type ExitStatusError struct {
	Cmd  string
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Cmd, e.Code)
}

// Err converts a non-zero result into an *ExitStatusError, or nil.
func (r *Result) Err(cmd Command) error {
	if r.ExitCode == 0 {
		return nil
	}
	return &ExitStatusError{Cmd: cmd.String(), Code: r.ExitCode}
}
