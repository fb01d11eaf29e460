package hyperspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	return cmd.ExecuteContext(background)
}

func TestCLI_Version(t *testing.T) {
	require.NoError(t, runCLI(t, "version"))
}

func TestCLI_Detect(t *testing.T) {
	home := t.TempDir()
	makeBundle(t, filepath.Join(home, "Games", "FTL"), "1.6.13")
	require.NoError(t, runCLI(t, "--home", home, "detect"))
}

func TestCLI_UninstallRequiresInstall(t *testing.T) {
	home := t.TempDir()
	app := makeBundle(t, t.TempDir(), "1.6.13")

	err := runCLI(t, "--home", home, "--resources", t.TempDir(), "uninstall", "--path", app, "--yes")
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestCLI_InstallRejectsUnsupportedPath(t *testing.T) {
	app := makeBundle(t, t.TempDir(), "1.6.9")

	err := runCLI(t, "--home", t.TempDir(), "install", "--path", app, "--yes")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
