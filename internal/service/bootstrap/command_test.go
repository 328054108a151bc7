package bootstrap

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"botstrap/internal/config"
	"botstrap/internal/runner"
)

// step labels used by the fake runner to classify invocations.
const (
	stepUpgrade = "upgrade"
	stepDeps    = "deps"
	stepBrowser = "browser"
	stepProgram = "program"
)

// fakeRunner records every invocation and replies with scripted exit codes.
type fakeRunner struct {
	exitCodes map[string]int
	calls     []string
	specs     []runner.Spec
}

// Run implements runner.Runner.
func (f *fakeRunner) Run(_ context.Context, spec runner.Spec) (runner.Result, error) {
	step := classify(spec)
	f.calls = append(f.calls, step)
	f.specs = append(f.specs, spec)

	return runner.Result{ExitCode: f.exitCodes[step]}, nil
}

// classify maps an invocation to its bootstrap step by its arguments.
func classify(spec runner.Spec) string {
	args := strings.Join(spec.Args, " ")

	switch {
	case strings.Contains(args, "--upgrade pip"):
		return stepUpgrade
	case strings.Contains(args, "pip install -r"):
		return stepDeps
	case strings.Contains(args, "playwright install"):
		return stepBrowser
	default:
		return stepProgram
	}
}

// count returns how many times the given step ran.
func (f *fakeRunner) count(step string) int {
	n := 0

	for _, call := range f.calls {
		if call == step {
			n++
		}
	}

	return n
}

// newOptions builds Options with a fake runner and settings in a temp dir.
func newOptions(t *testing.T, fake *fakeRunner) *Options {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, config.Default()))

	return &Options{
		ConfigPath: cfgPath,
		NoPause:    true,
		Runner:     fake,
		Input:      strings.NewReader(""),
		Output:     &bytes.Buffer{},
	}
}

// TestRun_HappyPath runs the full sequence and checks order and argument shape.
func TestRun_HappyPath(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{exitCodes: map[string]int{}}

	require.NoError(t, Run(context.Background(), newOptions(t, fake)))
	require.Equal(t, []string{stepUpgrade, stepDeps, stepBrowser, stepProgram}, fake.calls)

	// The main program gets the entrypoint and nothing else.
	program := fake.specs[len(fake.specs)-1]
	require.Equal(t, config.DefaultPython, program.Path)
	require.Equal(t, []string{config.DefaultEntrypoint}, program.Args)
}

// TestRun_DependencyFailureIsFatal propagates the exit code and never starts the program.
func TestRun_DependencyFailureIsFatal(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{exitCodes: map[string]int{stepDeps: 3}}

	err := Run(context.Background(), newOptions(t, fake))
	require.Error(t, err)

	var stepErr *StepError

	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, 3, stepErr.ExitCode)

	require.Zero(t, fake.count(stepProgram))
	require.Zero(t, fake.count(stepBrowser))
}

// TestRun_BrowserFailureIsRecoverable warns but still starts the program.
func TestRun_BrowserFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{exitCodes: map[string]int{stepBrowser: 1}}

	require.NoError(t, Run(context.Background(), newOptions(t, fake)))
	require.Equal(t, 1, fake.count(stepProgram))
}

// TestRun_UpgradeFailureNeverGates keeps going regardless of the upgrade outcome.
func TestRun_UpgradeFailureNeverGates(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{exitCodes: map[string]int{stepUpgrade: 9}}

	require.NoError(t, Run(context.Background(), newOptions(t, fake)))
	require.Equal(t, 1, fake.count(stepDeps))
	require.Equal(t, 1, fake.count(stepProgram))
}

// TestRun_ProgramRunsExactlyOnce guards against duplicate launches.
func TestRun_ProgramRunsExactlyOnce(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{exitCodes: map[string]int{stepProgram: 2}}

	// A non-zero program exit is not gated.
	require.NoError(t, Run(context.Background(), newOptions(t, fake)))
	require.Equal(t, 1, fake.count(stepProgram))

	// Both install steps precede the program.
	require.Equal(t, stepProgram, fake.calls[len(fake.calls)-1])
}

// TestRun_PausePromptWritten writes the acknowledgment prompt when pausing.
func TestRun_PausePromptWritten(t *testing.T) {
	t.Parallel()

	fake := &fakeRunner{exitCodes: map[string]int{}}
	opts := newOptions(t, fake)
	opts.NoPause = false

	out := &bytes.Buffer{}
	opts.Output = out
	opts.Input = strings.NewReader("\n")

	require.NoError(t, Run(context.Background(), opts))
	require.Contains(t, out.String(), "Press Enter")
}
