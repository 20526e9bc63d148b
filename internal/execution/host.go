package execution

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxOutputBytes caps captured output per stream when the caller
// does not supply its own writers.
const DefaultMaxOutputBytes int64 = 4 << 20

// HostRunner executes commands directly on the host with os/exec.
type HostRunner struct {
	// MaxOutputBytes limits captured stdout/stderr. Zero means
	// DefaultMaxOutputBytes.
	MaxOutputBytes int64

	logger *zap.Logger
}

// NewHostRunner returns a HostRunner. A nil logger is replaced with a
// no-op logger.
func NewHostRunner(logger *zap.Logger) *HostRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostRunner{logger: logger}
}

// LookPath resolves a binary name against PATH.
func (r *HostRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes the command and waits for it to finish.
func (r *HostRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.New("binary is required")
	}

	execCmd := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	execCmd.Dir = cmd.Dir
	if cmd.Env != nil {
		execCmd.Env = cmd.Env
	}
	if cmd.Stdin != nil {
		execCmd.Stdin = cmd.Stdin
	}

	maxOutput := r.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var stdoutLimited, stderrLimited *limitedWriter
	if cmd.Stdout != nil {
		execCmd.Stdout = cmd.Stdout
	} else {
		stdoutLimited = &limitedWriter{w: &stdoutBuf, max: maxOutput}
		execCmd.Stdout = stdoutLimited
	}
	if cmd.Stderr != nil {
		execCmd.Stderr = cmd.Stderr
	} else {
		stderrLimited = &limitedWriter{w: &stderrBuf, max: maxOutput}
		execCmd.Stderr = stderrLimited
	}

	r.logger.Debug("running command",
		zap.String("binary", cmd.Binary),
		zap.Strings("args", cmd.Args),
		zap.String("dir", cmd.Dir))

	started := time.Now()
	err := execCmd.Run()

	result := &Result{
		Duration: time.Since(started),
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
	}
	if stdoutLimited != nil && stdoutLimited.truncated {
		result.Truncated = true
	}
	if stderrLimited != nil && stderrLimited.truncated {
		result.Truncated = true
	}

	if err != nil {
		if ctx.Err() != nil {
			result.Killed = true
			result.ExitCode = -1
			r.logger.Warn("command killed", zap.String("binary", cmd.Binary), zap.Error(ctx.Err()))
			return result, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The command ran; the caller decides whether a non-zero
			// status is an error.
			result.ExitCode = exitErr.ExitCode()
			r.logger.Debug("command exited non-zero",
				zap.String("binary", cmd.Binary),
				zap.Int("exit_code", result.ExitCode))
			return result, nil
		}
		r.logger.Error("command failed to run", zap.String("binary", cmd.Binary), zap.Error(err))
		return nil, err
	}

	result.ExitCode = 0
	r.logger.Debug("command completed",
		zap.String("binary", cmd.Binary),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// limitedWriter caps total bytes written, discarding the overflow while
// reporting full writes so the child never sees a short-write error.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
