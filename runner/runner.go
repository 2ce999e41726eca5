// Package runner invokes external backend commands and captures their
// output. Every backend variant and the service manager go through this
// package; tests substitute a fake Runner.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Output is the captured result of a finished command.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandError reports a nonzero exit, carrying the captured stderr so
// callers can surface the backend's own diagnostics.
type CommandError struct {
	Cmd      string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Cmd, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// ErrBinaryNotFound wraps exec lookup failures so callers can map them to
// a backend-unavailable condition.
var ErrBinaryNotFound = errors.New("binary not found")

// Runner executes external commands synchronously.
type Runner interface {
	// Run executes the command and returns its captured output.
	// A nonzero exit returns the Output plus a *CommandError.
	Run(ctx context.Context, name string, args ...string) (*Output, error)
	// RunInteractive executes the command with the caller's stdio
	// attached, for ssh/exec/logs style interactions.
	RunInteractive(ctx context.Context, name string, args ...string) error
	// StartDetached launches the command in its own process group,
	// redirecting output to logPath, and returns its PID. The process
	// survives this program's exit.
	StartDetached(name string, logPath string, args ...string) (int, error)
}

// ExecRunner is the os/exec implementation of Runner.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

// New returns the default Runner.
func New() Runner { return ExecRunner{} }

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (*Output, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // backend binary from config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := &Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, &CommandError{
			Cmd:      name + " " + strings.Join(args, " "),
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
		}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrBinaryNotFound)
	}
	return nil, fmt.Errorf("run %s: %w", name, err)
}

func (ExecRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // backend binary from config
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandError{
				Cmd:      name + " " + strings.Join(args, " "),
				ExitCode: exitErr.ExitCode(),
			}
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%s: %w", name, ErrBinaryNotFound)
		}
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// StartDetached launches name in its own process group so it outlives this
// process, mirroring how long-lived VM processes are spawned.
func (ExecRunner) StartDetached(name string, logPath string, args ...string) (int, error) {
	logFile, err := os.Create(logPath) //nolint:gosec // tool-owned log path
	if err != nil {
		return 0, fmt.Errorf("create log %s: %w", logPath, err)
	}
	defer logFile.Close() //nolint:errcheck

	cmd := exec.Command(name, args...) //nolint:gosec // backend binary from config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", name, ErrBinaryNotFound)
		}
		return 0, fmt.Errorf("exec %s: %w", name, err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
