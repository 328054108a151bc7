package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaulting and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty settings fall back to defaults.
	cfg := new(Config)

	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultPython, cfg.Python)
	require.Equal(t, DefaultRequirements, cfg.Requirements)
	require.Equal(t, DefaultBrowser, cfg.Browser)
	require.Equal(t, DefaultEntrypoint, cfg.Entrypoint)
	require.Equal(t, DefaultProbeTimeout, cfg.ProbeTimeout)

	// Bad update folder.
	cfg = &Config{
		UpdateFolder: "not a url",
	}

	require.Error(t, Validate(cfg))

	// Okay with update folder.
	cfg = &Config{
		UpdateFolder: "https://example.com/updates",
	}

	require.NoError(t, Validate(cfg))
}

// TestLoadMissingFile ensures absence of the settings file yields pure defaults.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		Python:       "python",
		Requirements: "deps.txt",
		Browser:      "firefox",
		Entrypoint:   "main.py",
		UpdateFolder: "https://updates.local/",
		ProbeTimeout: 3 * time.Second,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
