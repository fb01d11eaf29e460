package hyperspace

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-version"
)

// Error kinds surfaced by the install and uninstall pipelines. Steps wrap one of
// these with %w so callers can branch with errors.Is.
var (
	ErrDirectoryCreation    = errors.New("failed to create directory")
	ErrFileCopy             = errors.New("failed to copy file")
	ErrManifestModification = errors.New("failed to modify configuration")
	ErrLibraryNotFound      = errors.New("dylib not found")
	ErrToolExecution        = errors.New("command execution failed")
	ErrGatekeeperBlocked    = errors.New("ftlman is blocked by Gatekeeper")
	ErrUnsupportedVersion   = errors.New("FTL version is not supported")
	ErrConfigWrite          = errors.New("failed to write configuration")
	ErrBackupMissing        = errors.New("backup not found")
	ErrRunActive            = errors.New("another installation is already running")
	ErrNotInstalled         = errors.New("Hyperspace is not installed on this FTL installation")
)

// unsupportedVersionError explains why a version was rejected and whether the
// game is older or newer than what Hyperspace supports.
func unsupportedVersionError(v string) error {
	got, err := version.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q (requires %s)", ErrUnsupportedVersion, v, supportedVersionList())
	}
	lowest, _ := version.NewVersion(SupportedVersions[0])
	highest, _ := version.NewVersion(SupportedVersions[len(SupportedVersions)-1])
	switch {
	case got.LessThan(lowest):
		return fmt.Errorf("%w: %s is older than %s", ErrUnsupportedVersion, v, lowest.Original())
	case got.GreaterThan(highest):
		return fmt.Errorf("%w: %s is newer than %s", ErrUnsupportedVersion, v, highest.Original())
	default:
		return fmt.Errorf("%w: %s (requires %s)", ErrUnsupportedVersion, v, supportedVersionList())
	}
}

// Suggestion returns a recovery hint for err, or "" when there is none.
func Suggestion(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDirectoryCreation):
		return "Check that you have write permissions to your home folder"
	case errors.Is(err, ErrFileCopy):
		return "Ensure the source files exist and you have write permissions"
	case errors.Is(err, ErrManifestModification):
		return "Check that FTL.app is not in use"
	case errors.Is(err, ErrGatekeeperBlocked):
		return "Go to System Settings > Privacy & Security and click 'Allow' for ftlman"
	case errors.Is(err, ErrUnsupportedVersion):
		return "Please install FTL: Faster Than Light version 1.6.13 or 1.6.12"
	case errors.Is(err, ErrLibraryNotFound):
		return "The installer resources are incomplete; download the installer again"
	case errors.Is(err, ErrBackupMissing), errors.Is(err, ErrNotInstalled):
		return "This FTL installation was not patched by this installer; reinstall FTL to restore it"
	case errors.Is(err, ErrRunActive):
		return "Wait for the running installation to finish"
	}
	return ""
}
