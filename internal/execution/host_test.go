package execution

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func echoCmd(msg string) Command {
	if runtime.GOOS == "windows" {
		return Command{Binary: "cmd", Args: []string{"/c", "echo", msg}}
	}
	return Command{Binary: "echo", Args: []string{msg}}
}

func exitCmd(code string) Command {
	if runtime.GOOS == "windows" {
		return Command{Binary: "cmd", Args: []string{"/c", "exit", code}}
	}
	return Command{Binary: "sh", Args: []string{"-c", "exit " + code}}
}

func TestHostRunner_Run(t *testing.T) {
	runner := NewHostRunner(nil)

	result, err := runner.Run(context.Background(), echoCmd("hello"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "hello") {
		t.Errorf("expected stdout to contain 'hello', got: %q", result.Stdout)
	}
}

func TestHostRunner_NonZeroExit(t *testing.T) {
	runner := NewHostRunner(nil)

	cmd := exitCmd("3")
	result, err := runner.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", result.ExitCode)
	}

	var exitErr *ExitStatusError
	if err := result.Err(cmd); err == nil {
		t.Fatal("expected Err to report non-zero exit")
	} else if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitStatusError, got %T", err)
	} else if exitErr.Code != 3 {
		t.Errorf("expected code 3 in error, got %d", exitErr.Code)
	}
}

func TestHostRunner_MissingBinary(t *testing.T) {
	runner := NewHostRunner(nil)

	_, err := runner.Run(context.Background(), Command{Binary: "prosperdash-no-such-binary"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestHostRunner_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sleep not available on Windows")
	}

	runner := NewHostRunner(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := runner.Run(ctx, Command{Binary: "sleep", Args: []string{"5"}})
	if err == nil {
		t.Fatal("expected context error")
	}
	if result == nil || !result.Killed {
		t.Error("expected result to be marked killed")
	}
}

func TestHostRunner_CallerStreams(t *testing.T) {
	runner := NewHostRunner(nil)

	var out bytes.Buffer
	cmd := echoCmd("streamed")
	cmd.Stdout = &out

	result, err := runner.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "streamed") {
		t.Errorf("expected caller buffer to receive output, got: %q", out.String())
	}
	if result.Stdout != "" {
		t.Errorf("expected no captured stdout when caller supplies a writer, got: %q", result.Stdout)
	}
}

func TestHostRunner_OutputTruncation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("yes-style generator not available on Windows")
	}

	runner := NewHostRunner(nil)
	runner.MaxOutputBytes = 64

	result, err := runner.Run(context.Background(), Command{
		Binary: "sh",
		Args:   []string{"-c", "i=0; while [ $i -lt 100 ]; do echo 0123456789; i=$((i+1)); done"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Truncated {
		t.Error("expected output to be truncated")
	}
	if int64(len(result.Stdout)) > 64 {
		t.Errorf("captured stdout exceeds cap: %d bytes", len(result.Stdout))
	}
}

func TestHostRunner_Stdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("cat not available on Windows")
	}

	runner := NewHostRunner(nil)
	result, err := runner.Run(context.Background(), Command{
		Binary: "cat",
		Stdin:  strings.NewReader("from stdin"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Stdout != "from stdin" {
		t.Errorf("expected stdin to round-trip, got: %q", result.Stdout)
	}
}
