package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the launcher settings shared by all subcommands.
type Config struct {
	// Python is the interpreter used to run every bootstrap step.
	Python string `yaml:"python"`
	// Requirements is the path to the dependency manifest file.
	Requirements string `yaml:"requirements"`
	// Browser is the browser identifier passed to the automation runtime installer.
	Browser string `yaml:"browser"`
	// Entrypoint is the main program file started after installation.
	Entrypoint string `yaml:"entrypoint"`
	// UpdateFolder is the optional URL where launcher update artifacts are hosted.
	UpdateFolder string `yaml:"update_folder,omitempty"`
	// ProbeTimeout bounds short diagnostic commands (version probes and HTTP checks).
	// Bootstrap steps themselves are never bounded by it.
	ProbeTimeout time.Duration `yaml:"probe_timeout,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for launcher settings.
	DefaultConfigFilename = "botstrap-settings.yaml"

	// DefaultPython is the interpreter used when none is configured.
	DefaultPython = "python3"

	// DefaultRequirements is the dependency manifest consumed by the install step.
	DefaultRequirements = "requirements.txt"

	// DefaultBrowser is the browser binary installed for the automation runtime.
	DefaultBrowser = "chromium"

	// DefaultEntrypoint is the main program file started as the final step.
	DefaultEntrypoint = "bot.py"

	// DefaultProbeTimeout is the default duration for diagnostic commands.
	DefaultProbeTimeout = 10 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Default returns settings matching the historical launcher behavior.
func Default() *Config {
	return &Config{
		Python:       DefaultPython,
		Requirements: DefaultRequirements,
		Browser:      DefaultBrowser,
		Entrypoint:   DefaultEntrypoint,
		ProbeTimeout: DefaultProbeTimeout,
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: the launcher predates its own settings file,
// so absence falls back to pure defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills missing fields with defaults and checks formats.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Python == "" {
		cfg.Python = DefaultPython
	}

	if cfg.Requirements == "" {
		cfg.Requirements = DefaultRequirements
	}

	if cfg.Browser == "" {
		cfg.Browser = DefaultBrowser
	}

	if cfg.Entrypoint == "" {
		cfg.Entrypoint = DefaultEntrypoint
	}

	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}

	if cfg.UpdateFolder == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.UpdateFolder); err != nil {
		return fmt.Errorf("invalid update folder URI: %w", err)
	}

	return nil
}
