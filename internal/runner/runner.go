package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// Spec describes a single subprocess invocation.
type Spec struct {
	// Path is the executable to run, resolved via PATH when not absolute.
	Path string
	// Args are the command arguments, excluding the executable itself.
	Args []string
	// Dir is the working directory; empty means inherit the caller's.
	Dir string
	// Env holds extra KEY=VALUE entries appended to the host environment.
	Env []string
	// Stdin, Stdout and Stderr override the inherited standard streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of a finished subprocess.
type Result struct {
	// ExitCode is the process exit status; -1 when the process never ran.
	ExitCode int
	// Duration is the wall-clock time the process was running.
	Duration time.Duration
}

// Ok reports whether the process exited with status zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Runner executes subprocesses. Implementations must block until the
// process exits and report its exit status.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ExecRunner runs subprocesses on the host via os/exec.
// A non-zero exit status is a Result, not an error; errors are reserved for
// processes that could not be started or were canceled.
type ExecRunner struct{}

// Run implements Runner using exec.CommandContext.
func (ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir

	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	cmd.Stdin = spec.Stdin

	cmd.Stdout = spec.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}

	cmd.Stderr = spec.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	start := time.Now()
	err := cmd.Run()
	result := Result{ExitCode: 0, Duration: time.Since(start)}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			result.ExitCode = -1
			return result, ctx.Err()
		}

		result.ExitCode = exitErr.ExitCode()

		return result, nil
	}

	result.ExitCode = -1

	return result, err
}

// Capture runs the spec with stdout and stderr collected into one buffer.
// It is meant for short diagnostic probes, not for long-running programs.
func Capture(ctx context.Context, r Runner, spec Spec) (string, Result, error) {
	var buf bytes.Buffer

	spec.Stdout = &buf
	spec.Stderr = &buf

	result, err := r.Run(ctx, spec)

	return buf.String(), result, err
}
