package selfupdate

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"botstrap/internal/config"
	"botstrap/internal/logger"
	"botstrap/internal/version"
)

var (
	errUpdateAlreadyRunning = errors.New("an update is already running")
	errNoUpdateFolder       = errors.New("no update folder configured")
	errEmptyDescription     = errors.New("update description is empty")
	errNoChecksum           = errors.New("checksum missing for file")
	errBadHTTPStatus        = errors.New("unexpected http status")
)

// Options are inputs accepted by the self-update entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
}

// updater holds the mutable state and helpers for a single update execution.
// It is intentionally unexported—call Run(ctx, Options) from callers.
type updater struct {
	description        *Description      // Remote manifest describing the release.
	cfg                *config.Config    // Launcher configuration loaded from YAML.
	needsUpdate        bool              // Whether local files differ from remote checksums.
	temporaryDirectory string            // Where new files are downloaded before apply.
	downloadedFiles    map[string]string // Logical name -> local temp path.
}

// Run executes the self-update lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "update")

	up, err := newUpdater(ctx, opts)
	if err != nil {
		return err
	}

	defer up.cleanup(ctx)

	if err = up.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Self-update failed", "error", err)
		return err
	}

	logger.Info(ctx, "Self-update completed")

	return nil
}

// newUpdater prepares the run and writes a marker to avoid concurrent runs.
func newUpdater(ctx context.Context, opts *Options) (*updater, error) {
	up := &updater{
		downloadedFiles: make(map[string]string, defaultMapCapacity),
	}

	if IsUpdateRunningNow(ctx) {
		return up, errUpdateAlreadyRunning
	}

	updateMarker, err := os.Create(MarkerFilename)
	if err != nil {
		return up, err
	}

	if err = updateMarker.Close(); err != nil {
		return up, err
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return up, err
	}

	if settings.UpdateFolder == "" {
		return up, errNoUpdateFolder
	}

	up.cfg = settings

	return up, nil
}

// Run executes the update workflow:
// 1) Fetch the remote manifest.
// 2) Compare versions.
// 3) Verify checksums.
// 4) Download and apply files if needed.
func (u *updater) Run(ctx context.Context) error {
	logger.Info(ctx, "Downloading the update description from the server")

	if err := u.fillUpdateDescription(ctx); err != nil {
		return fmt.Errorf("download update description: %w", err)
	}

	versionUpdateNeeded := u.compareVersions(ctx, version.Short(), u.description.VersionNumber)

	logger.Info(ctx, "Verifying local file checksums against the manifest")

	if err := u.validateChecksum(); err != nil {
		return fmt.Errorf("validate checksum: %w", err)
	}

	if !versionUpdateNeeded && !u.needsUpdate {
		logger.Info(ctx, "No update required - version and files are current")
		return nil
	}

	logger.Info(ctx, "Downloading update files to a temporary folder")

	if err := u.downloadFiles(ctx); err != nil {
		return fmt.Errorf("download update files: %w", err)
	}

	logger.Info(ctx, "Applying downloaded files")

	if err := u.updateFiles(ctx); err != nil {
		return fmt.Errorf("apply update files: %w", err)
	}

	return nil
}

// compareVersions compares local vs remote versions and logs the decision.
func (u *updater) compareVersions(ctx context.Context, localVersion, remoteVersion string) bool {
	if localVersion != remoteVersion {
		logger.InfoKV(ctx, "Version mismatch detected",
			"local", localVersion, "remote", remoteVersion)

		return true
	}

	logger.InfoKV(ctx, "Versions match, checking file integrity",
		"version", localVersion)

	// Still check checksums for integrity.
	return false
}

// fillUpdateDescription downloads and parses the remote update manifest.
func (u *updater) fillUpdateDescription(ctx context.Context) error {
	response, err := u.getFileBodyFromServer(ctx, VersionFilename)
	if response != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}

	if err != nil {
		return err
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	var desc Description
	if err = yaml.Unmarshal(data, &desc); err != nil {
		return err
	}

	u.description = &desc

	return nil
}

// getFileBodyFromServer fetches a file from the update folder.
func (u *updater) getFileBodyFromServer(ctx context.Context, fileName string) (*http.Response, error) {
	updateURL, err := url.Parse(u.cfg.UpdateFolder)
	if err != nil {
		return nil, err
	}

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	updateURL.Path = path.Join(updateURL.Path, fileName)
	finalURL := updateURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return response, err
	}

	if response.StatusCode != http.StatusOK {
		return response, fmt.Errorf("%s, %s: %w", finalURL, response.Status, errBadHTTPStatus)
	}

	return response, err
}

// validateChecksum compares local and remote checksums to decide whether an
// update is required. It returns early on the first mismatch to avoid
// unnecessary I/O when an update is already known to be needed.
func (u *updater) validateChecksum() error {
	if u.description == nil {
		return errEmptyDescription
	}

	for fileName := range u.description.Files {
		needsUpdate, err := u.validateFileChecksum(fileName)
		if err != nil {
			return err
		}

		if needsUpdate {
			u.needsUpdate = true
			return nil
		}
	}

	return nil
}

// validateFileChecksum returns true if the file needs updating.
func (u *updater) validateFileChecksum(fileName string) (bool, error) {
	remoteChecksum, err := u.getRemoteChecksum(fileName)
	if err != nil {
		return false, err
	}

	localChecksum, err := u.getLocalChecksum(fileName)
	if err != nil {
		return false, err
	}

	return !bytes.Equal(remoteChecksum, localChecksum), nil
}

// getRemoteChecksum retrieves and decodes the manifest checksum for a file.
func (u *updater) getRemoteChecksum(fileName string) ([]byte, error) {
	remoteBase64, ok := u.description.Files[fileName]
	if !ok {
		return nil, fmt.Errorf("checksum for %s: %w", fileName, errNoChecksum)
	}

	remoteChecksum, err := base64.StdEncoding.DecodeString(remoteBase64)
	if err != nil {
		return nil, err
	}

	return remoteChecksum, nil
}

// getLocalChecksum retrieves the local checksum for a file.
// Returns nil checksum if the file doesn't exist.
func (u *updater) getLocalChecksum(fileName string) ([]byte, error) {
	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, needs update.
			return nil, nil
		}

		return nil, err
	}

	return GetFileChecksum(fileName)
}

// downloadFiles downloads required files into a temporary directory.
func (u *updater) downloadFiles(ctx context.Context) error {
	temporaryDirectory, err := os.MkdirTemp("", "botstrap-update-")
	if err != nil {
		return err
	}

	u.temporaryDirectory = temporaryDirectory

	for fileName := range u.description.Files {
		var response *http.Response

		response, err = u.getFileBodyFromServer(ctx, fileName)
		if err != nil {
			if response != nil {
				_ = response.Body.Close()
			}

			return err
		}

		outputFileName := filepath.Clean(filepath.Join(temporaryDirectory, fileName))

		var outputFile *os.File

		outputFile, err = os.Create(outputFileName)
		if err != nil {
			_ = response.Body.Close()

			return err
		}

		_, err = io.Copy(outputFile, response.Body)

		_ = response.Body.Close()
		_ = outputFile.Close()

		if err != nil {
			return err
		}

		u.downloadedFiles[fileName] = outputFileName
		logger.InfoKV(ctx, "Downloaded file", "path", outputFileName)
	}

	return nil
}

// updateFiles applies downloaded files using go-update with checksum validation.
func (u *updater) updateFiles(ctx context.Context) error {
	for fileName, downloadedFileName := range u.downloadedFiles {
		logger.InfoKV(ctx, "Updating file", "file", fileName)

		data, err := os.ReadFile(downloadedFileName)
		if err != nil {
			return err
		}

		checksum, err := u.getRemoteChecksum(fileName)
		if err != nil {
			return err
		}

		if _, err = os.Stat(fileName); err != nil && os.IsNotExist(err) {
			if _, err = os.Create(fileName); err != nil {
				return err
			}
		}

		options := goupdate.Options{
			TargetPath: fileName,
			TargetMode: DefaultFileMode,
			Checksum:   checksum,
			Hash:       DefaultChecksumFunction,
		}

		if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
			return err
		}

		oldFileName := fileName + ".old"
		if _, err = os.Stat(oldFileName); err == nil {
			_ = os.Remove(oldFileName)
		}
	}

	return nil
}

// cleanup removes temporary artifacts and the running marker.
func (u *updater) cleanup(ctx context.Context) {
	if _, err := os.Stat(MarkerFilename); err == nil {
		_ = os.Remove(MarkerFilename)
	}

	if u.temporaryDirectory != "" {
		if _, err := os.Stat(u.temporaryDirectory); err == nil {
			_ = os.RemoveAll(u.temporaryDirectory)
		}
	}

	logger.Debug(ctx, "Self-update cleanup finished")
}
