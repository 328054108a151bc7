package bootstrap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"botstrap/internal/config"
	"botstrap/internal/logger"
	"botstrap/internal/manifest"
	"botstrap/internal/runner"
)

// Options are inputs accepted by the bootstrap entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// NoPause disables the acknowledgment prompts for non-interactive runs.
	NoPause bool
	// Runner executes subprocess steps; nil selects the host runner.
	Runner runner.Runner
	// Input is the stream read for acknowledgment; nil selects stdin.
	Input io.Reader
	// Output is the stream for acknowledgment prompts; nil selects stdout.
	Output io.Writer
}

// StepError reports a fatal bootstrap step whose exit status must become
// the process exit status.
type StepError struct {
	// Step names the failed step for logs.
	Step string
	// ExitCode is the subprocess exit status to propagate.
	ExitCode int
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed with exit code %d", e.Step, e.ExitCode)
}

// launcher holds the resolved dependencies for a single bootstrap run.
// It is intentionally unexported—call Run(ctx, Options) from callers.
type launcher struct {
	cfg    *config.Config
	runner runner.Runner
	input  io.Reader
	output io.Writer
	pause  bool
}

// Run executes the bootstrap sequence and is the public entry point for the CLI.
//
// The sequence is strictly sequential on one goroutine:
//  1. Upgrade the package installer (outcome logged, never gates).
//  2. Install dependencies from the manifest (the single fatal gate).
//  3. Install the automation runtime's browser binary (warn and continue).
//  4. Start the main program (not monitored).
//  5. Pause for acknowledgment.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "botstrap")

	l, err := newLauncher(opts)
	if err != nil {
		return err
	}

	if err = l.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Bootstrap failed", "error", err)
		return err
	}

	logger.Info(ctx, "Bootstrap completed")

	return nil
}

// newLauncher loads settings and fills unset dependencies with host defaults.
func newLauncher(opts *Options) (*launcher, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	l := &launcher{
		cfg:    cfg,
		runner: opts.Runner,
		input:  opts.Input,
		output: opts.Output,
		pause:  !opts.NoPause,
	}

	if l.runner == nil {
		l.runner = runner.ExecRunner{}
	}

	if l.input == nil {
		l.input = os.Stdin
	}

	if l.output == nil {
		l.output = os.Stdout
	}

	return l, nil
}

// Run walks the four subprocess steps in order and pauses before returning.
func (l *launcher) Run(ctx context.Context) error {
	l.upgradeInstaller(ctx)
	l.reportManifest(ctx)

	if err := l.installDependencies(ctx); err != nil {
		// Keep the console readable before the window closes.
		l.waitForAcknowledgment(ctx)

		return err
	}

	l.installBrowser(ctx)

	if err := l.startProgram(ctx); err != nil {
		return err
	}

	l.waitForAcknowledgment(ctx)

	return nil
}

// upgradeInstaller refreshes the package installer itself.
// Its outcome is logged but never inspected for control flow.
func (l *launcher) upgradeInstaller(ctx context.Context) {
	logger.Info(ctx, "Upgrading the package installer")

	result, err := l.runner.Run(ctx, runner.Spec{
		Path: l.cfg.Python,
		Args: []string{"-m", "pip", "install", "--upgrade", "pip"},
	})

	switch {
	case err != nil:
		logger.WarnKV(ctx, "Installer upgrade did not run", "error", err)
	case !result.Ok():
		logger.WarnKV(ctx, "Installer upgrade exited with errors", "exit_code", result.ExitCode)
	default:
		logger.DebugKV(ctx, "Installer upgraded", "duration", result.Duration.String())
	}
}

// reportManifest logs what the install step is about to request.
// The installer stays the authority: an unreadable manifest is only noted
// here and will be reported properly by the install step itself.
func (l *launcher) reportManifest(ctx context.Context) {
	requirements, err := manifest.Load(l.cfg.Requirements)
	if err != nil {
		logger.DebugKV(ctx, "Manifest not readable", "path", l.cfg.Requirements, "error", err)
		return
	}

	logger.InfoKV(ctx, "Installing dependencies",
		"manifest", l.cfg.Requirements, "count", len(requirements))
	logger.DebugKV(ctx, "Manifest contents", "requirements", manifest.Names(requirements))
}

// installDependencies runs the dependency installation, the single fatal gate.
func (l *launcher) installDependencies(ctx context.Context) error {
	result, err := l.runner.Run(ctx, runner.Spec{
		Path: l.cfg.Python,
		Args: []string{"-m", "pip", "install", "-r", l.cfg.Requirements},
	})
	if err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}

	if !result.Ok() {
		logger.ErrorKV(ctx, "Dependency installation failed",
			"manifest", l.cfg.Requirements, "exit_code", result.ExitCode)

		return &StepError{Step: "install-dependencies", ExitCode: result.ExitCode}
	}

	return nil
}

// installBrowser installs the browser binary for the automation runtime.
// Failure here is recoverable: the browser may already be present.
func (l *launcher) installBrowser(ctx context.Context) {
	logger.InfoKV(ctx, "Installing browser for the automation runtime", "browser", l.cfg.Browser)

	result, err := l.runner.Run(ctx, runner.Spec{
		Path: l.cfg.Python,
		Args: []string{"-m", "playwright", "install", l.cfg.Browser},
	})

	switch {
	case err != nil:
		logger.WarnKV(ctx, "Browser installation did not run, continuing", "error", err)
	case !result.Ok():
		logger.WarnKV(ctx, "Browser installation failed, continuing",
			"browser", l.cfg.Browser, "exit_code", result.ExitCode)
	}
}

// startProgram launches the main program and blocks until it exits.
// The launcher has no further interaction with it: the exit status is
// logged but never gates.
func (l *launcher) startProgram(ctx context.Context) error {
	logger.InfoKV(ctx, "Starting the main program", "entrypoint", l.cfg.Entrypoint)

	result, err := l.runner.Run(ctx, runner.Spec{
		Path:  l.cfg.Python,
		Args:  []string{l.cfg.Entrypoint},
		Stdin: l.input,
	})
	if err != nil {
		return fmt.Errorf("start main program: %w", err)
	}

	logger.InfoKV(ctx, "Main program exited", "exit_code", result.ExitCode)

	return nil
}

// waitForAcknowledgment blocks until the user presses Enter so console
// output stays visible before the window closes.
func (l *launcher) waitForAcknowledgment(ctx context.Context) {
	if !l.pause {
		return
	}

	_, _ = fmt.Fprint(l.output, "Press Enter to exit...")

	reader := bufio.NewReader(l.input)
	if _, err := reader.ReadString('\n'); err != nil {
		// Closed stdin means nobody is watching the console.
		logger.DebugKV(ctx, "Acknowledgment skipped", "error", err)
	}
}
