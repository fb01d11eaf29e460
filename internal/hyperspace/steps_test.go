package hyperspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSteps(t *testing.T, target Target, res Resources) *stepLibrary {
	t.Helper()
	runner := &fakeRunner{}
	return &stepLibrary{
		paths:      Paths{Home: t.TempDir()},
		resources:  res,
		runner:     runner,
		editor:     plistEditor{},
		target:     target,
		gatekeeper: &Gatekeeper{Runner: runner},
		logf:       func(string, ...any) {},
	}
}

func TestUpdateLauncher_PointsAtTargetLibrary(t *testing.T) {
	target := makeTarget(t, "1.6.13")
	s := newTestSteps(t, target, makeResources(t))

	require.NoError(t, s.copyLauncher(background))
	require.NoError(t, s.updateLauncher(background))

	content := readFile(t, target.LauncherPath())
	assert.Contains(t, content, "DYLD_INSERT_LIBRARIES=Hyperspace.1.6.13.amd64.dylib ./FTL")
	assert.NotContains(t, content, "1.6.12")

	info, err := os.Stat(target.LauncherPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestUpdateLauncher_MissingLauncher(t *testing.T) {
	s := newTestSteps(t, makeTarget(t, "1.6.13"), makeResources(t))
	assert.ErrorIs(t, s.updateLauncher(background), ErrFileCopy)
}

func TestWriteToolSettings(t *testing.T) {
	target := makeTarget(t, "1.6.13")
	s := newTestSteps(t, target, makeResources(t))
	require.NoError(t, s.createInstallDirs(background))

	require.NoError(t, s.writeToolSettings(background))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, s.paths.SettingsPath())), &got))
	assert.Equal(t, map[string]any{
		"mod_directory":                 "mods",
		"ftl_directory":                 target.DataDir(),
		"dirs_are_mods":                 true,
		"zips_are_mods":                 true,
		"ftl_is_zip":                    true,
		"repack_ftl_data":               true,
		"disable_hs_installer":          false,
		"autoupdate":                    true,
		"warn_about_missing_hyperspace": true,
		"theme": map[string]any{
			"colors":  "Dark",
			"opacity": 1.0,
		},
	}, got)
}

func TestCopyModFiles_OnlyArchives(t *testing.T) {
	res := makeResources(t, "a.ftl", "b.zip")
	writeFile(t, filepath.Join(res.ModsDir(), "readme.txt"), "hi", 0o644)
	s := newTestSteps(t, makeTarget(t, "1.6.13"), res)
	require.NoError(t, s.createInstallDirs(background))

	require.NoError(t, s.copyModFiles())

	entries, err := os.ReadDir(s.paths.ModsDir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"a.ftl", "b.zip"}, names)
}

func TestPatchModData_ToolMissing(t *testing.T) {
	s := newTestSteps(t, makeTarget(t, "1.6.13"), makeResources(t, "a.ftl"))
	require.NoError(t, s.createInstallDirs(background))
	require.NoError(t, s.copyModFiles())

	assert.ErrorIs(t, s.patchModData(background), ErrToolExecution)
}

func TestRemoveInjectedFiles(t *testing.T) {
	target := makeTarget(t, "1.6.13")
	for _, name := range []string{launcherName, "Hyperspace.1.6.13.amd64.dylib", "Hyperspace.1.6.12.amd64.dylib"} {
		writeFile(t, filepath.Join(target.ExecutableDir(), name), "x", 0o644)
	}
	s := newTestSteps(t, target, makeResources(t))

	require.NoError(t, s.removeInjectedFiles(background))

	entries, err := os.ReadDir(target.ExecutableDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "FTL", entries[0].Name())
}

func TestCodesignFailure(t *testing.T) {
	target := makeTarget(t, "1.6.13")
	s := newTestSteps(t, target, makeResources(t))
	s.runner = &fakeRunner{fail: func([]string) error { return os.ErrPermission }}

	assert.ErrorIs(t, s.codesign(background), ErrToolExecution)
}
