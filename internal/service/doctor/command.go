package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"

	"botstrap/internal/config"
	"botstrap/internal/logger"
	"botstrap/internal/manifest"
	"botstrap/internal/runner"
)

var (
	errChecksFailed         = errors.New("environment checks failed")
	errInvalidVersionOutput = errors.New("invalid version output format")
)

// Status classifies a single check outcome.
type Status int

// Check outcomes in increasing severity.
const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

// String returns a short human-readable label.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	default:
		return "fail"
	}
}

// Check is the outcome of one environment probe.
type Check struct {
	// Name identifies the probe.
	Name string
	// Status is the probe outcome.
	Status Status
	// Detail is a short human-readable explanation.
	Detail string
}

// Options are inputs accepted by the doctor entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// Runner executes probe subprocesses; nil selects the host runner.
	Runner runner.Runner
}

// Run probes the environment the bootstrap sequence depends on and logs a
// report. It returns an error when any check fails outright; warnings are
// informational only.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "doctor")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	r := opts.Runner
	if r == nil {
		r = runner.ExecRunner{}
	}

	checks := collect(ctx, cfg, r)
	failed := 0

	for _, check := range checks {
		switch check.Status {
		case StatusPass:
			logger.InfoKV(ctx, "Check passed", "check", check.Name, "detail", check.Detail)
		case StatusWarn:
			logger.WarnKV(ctx, "Check warned", "check", check.Name, "detail", check.Detail)
		case StatusFail:
			failed++

			logger.ErrorKV(ctx, "Check failed", "check", check.Name, "detail", check.Detail)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d: %w", failed, len(checks), errChecksFailed)
	}

	logger.InfoKV(ctx, "Environment looks ready", "checks", len(checks))

	return nil
}

// collect runs every probe in order.
func collect(ctx context.Context, cfg *config.Config, r runner.Runner) []Check {
	checks := []Check{
		probeInterpreter(ctx, cfg, r),
		probeModule(ctx, cfg, r, "pip", StatusFail),
		probeModule(ctx, cfg, r, "playwright", StatusWarn),
		checkManifest(cfg),
		checkEntrypoint(cfg),
	}

	if check, ok := checkRunningInstances(); ok {
		checks = append(checks, check)
	}

	return checks
}

// probeInterpreter verifies the configured interpreter and parses its version.
func probeInterpreter(ctx context.Context, cfg *config.Config, r runner.Runner) Check {
	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	output, result, err := runner.Capture(probeCtx, r, runner.Spec{
		Path: cfg.Python,
		Args: []string{"--version"},
	})
	if err != nil || !result.Ok() {
		return Check{
			Name:   "interpreter",
			Status: StatusFail,
			Detail: fmt.Sprintf("%s is not runnable", cfg.Python),
		}
	}

	version, err := parsePythonVersion(output)
	if err != nil {
		return Check{Name: "interpreter", Status: StatusWarn, Detail: strings.TrimSpace(output)}
	}

	return Check{Name: "interpreter", Status: StatusPass, Detail: version}
}

// probeModule verifies an interpreter module responds to --version.
// onFailure selects the severity: pip is required, the automation runtime is
// installed by the bootstrap itself and only warns beforehand.
func probeModule(ctx context.Context, cfg *config.Config, r runner.Runner, module string, onFailure Status) Check {
	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	output, result, err := runner.Capture(probeCtx, r, runner.Spec{
		Path: cfg.Python,
		Args: []string{"-m", module, "--version"},
	})
	if err != nil || !result.Ok() {
		return Check{
			Name:   module,
			Status: onFailure,
			Detail: fmt.Sprintf("module %s is not available", module),
		}
	}

	return Check{Name: module, Status: StatusPass, Detail: firstLine(output)}
}

// checkManifest reports whether the dependency manifest parses.
func checkManifest(cfg *config.Config) Check {
	requirements, err := manifest.Load(cfg.Requirements)
	if err != nil {
		return Check{
			Name:   "manifest",
			Status: StatusFail,
			Detail: fmt.Sprintf("%s: %v", cfg.Requirements, err),
		}
	}

	return Check{
		Name:   "manifest",
		Status: StatusPass,
		Detail: fmt.Sprintf("%s lists %d requirements", cfg.Requirements, len(requirements)),
	}
}

// checkEntrypoint reports whether the main program file exists.
func checkEntrypoint(cfg *config.Config) Check {
	if _, err := os.Stat(cfg.Entrypoint); err != nil {
		return Check{
			Name:   "entrypoint",
			Status: StatusFail,
			Detail: fmt.Sprintf("%s: %v", cfg.Entrypoint, err),
		}
	}

	return Check{Name: "entrypoint", Status: StatusPass, Detail: cfg.Entrypoint}
}

// checkRunningInstances warns when another launcher instance is alive.
// The probe is best-effort; enumeration failures are silently skipped.
func checkRunningInstances() (Check, bool) {
	self, err := os.Executable()
	if err != nil {
		return Check{}, false
	}

	processList, err := ps.Processes()
	if err != nil {
		return Check{}, false
	}

	selfName := filepath.Base(self)
	thisProcessID := os.Getpid()
	others := 0

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == selfName {
			others++
		}
	}

	if others == 0 {
		return Check{Name: "instances", Status: StatusPass, Detail: "no other launcher running"}, true
	}

	return Check{
		Name:   "instances",
		Status: StatusWarn,
		Detail: fmt.Sprintf("%d other launcher processes running", others),
	}, true
}

// parsePythonVersion extracts the semantic version from "Python X.Y.Z" output.
func parsePythonVersion(output string) (string, error) {
	output = strings.TrimSpace(firstLine(output))
	if version, ok := strings.CutPrefix(output, "Python "); ok {
		if version = strings.TrimSpace(version); version != "" {
			return version, nil
		}
	}

	return "", errInvalidVersionOutput
}

// firstLine returns the first line of probe output.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}

	return strings.TrimSpace(s)
}
