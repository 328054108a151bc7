package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"botstrap/internal/config"
	"botstrap/internal/service/bootstrap"
)

// writeFakeInterpreter creates a shell script standing in for the Python
// interpreter. It appends its arguments to a log and exits with depsExit
// for the dependency-install invocation, zero otherwise.
func writeFakeInterpreter(t *testing.T, dir string, depsExit int) (interpreter, callLog string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	callLog = filepath.Join(dir, "calls.log")
	interpreter = filepath.Join(dir, "python3")

	script := fmt.Sprintf(`#!/bin/sh
echo "$@" >> %q
case "$*" in
  *"pip install -r"*) exit %d ;;
esac
exit 0
`, callLog, depsExit)

	require.NoError(t, os.WriteFile(interpreter, []byte(script), 0o755))

	return interpreter, callLog
}

// newBootstrapOptions lays out settings, manifest and entrypoint around the fake interpreter.
func newBootstrapOptions(t *testing.T, dir, interpreter string) *bootstrap.Options {
	t.Helper()

	cfg := config.Default()
	cfg.Python = interpreter
	cfg.Requirements = filepath.Join(dir, "requirements.txt")
	cfg.Entrypoint = filepath.Join(dir, "bot.py")

	require.NoError(t, os.WriteFile(cfg.Requirements, []byte("aiogram==3.4.1\nplaywright>=1.40\n"), 0o600))
	require.NoError(t, os.WriteFile(cfg.Entrypoint, []byte("print('bot')\n"), 0o600))

	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, cfg))

	return &bootstrap.Options{
		ConfigPath: cfgPath,
		NoPause:    true,
		Input:      strings.NewReader(""),
	}
}

// readCalls returns the logged invocations, one per line.
func readCalls(t *testing.T, callLog string) []string {
	t.Helper()

	data, err := os.ReadFile(callLog)
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// TestBootstrap_FullSequence runs all four steps against the fake interpreter.
func TestBootstrap_FullSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	interpreter, callLog := writeFakeInterpreter(t, dir, 0)
	opts := newBootstrapOptions(t, dir, interpreter)

	require.NoError(t, bootstrap.Run(context.Background(), opts))

	calls := readCalls(t, callLog)
	require.Len(t, calls, 4)
	require.Contains(t, calls[0], "--upgrade pip")
	require.Contains(t, calls[1], "pip install -r")
	require.Contains(t, calls[2], "playwright install")
	require.Contains(t, calls[3], "bot.py")
}

// TestBootstrap_DependencyFailureStopsSequence propagates the installer's exit code.
func TestBootstrap_DependencyFailureStopsSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	interpreter, callLog := writeFakeInterpreter(t, dir, 5)
	opts := newBootstrapOptions(t, dir, interpreter)

	err := bootstrap.Run(context.Background(), opts)
	require.Error(t, err)

	var stepErr *bootstrap.StepError

	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, 5, stepErr.ExitCode)

	// Only the upgrade and the failed install ran.
	calls := readCalls(t, callLog)
	require.Len(t, calls, 2)
}
