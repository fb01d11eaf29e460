package hyperspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// launcherLibraryRe matches the dylib reference shipped in Hyperspace.command.
var launcherLibraryRe = regexp.MustCompile(`Hyperspace\.1\.6\.[0-9]+\.amd64\.dylib`)

// stepLibrary holds the mutating operations of both pipelines, bound to one target.
type stepLibrary struct {
	paths      Paths
	resources  Resources
	runner     Runner
	editor     ManifestEditor
	backups    Backups
	target     Target
	gatekeeper *Gatekeeper
	logf       func(format string, a ...any)
}

func (s *stepLibrary) installSteps() []step {
	return []step{
		{"Creating installation directory", s.createInstallDirs},
		{"Copying Hyperspace files", s.copyHyperspaceFiles},
		{"Backing up FTL configuration", s.backupManifest},
		{"Modifying FTL.app configuration", s.rewriteEntryPoint},
		{"Copying Hyperspace dylib", s.copyLibrary},
		{"Copying launcher script", s.copyLauncher},
		{"Updating launcher script", s.updateLauncher},
		{"Patching FTL mod data", s.patchModData},
		{"Creating ftlman configuration", s.writeToolSettings},
		{"Signing application", s.codesign},
	}
}

func (s *stepLibrary) uninstallSteps() []step {
	return []step{
		{"Restoring FTL configuration", s.restoreManifest},
		{"Removing Hyperspace files", s.removeInjectedFiles},
		{"Restoring FTL data", s.restoreDataArchive},
		{"Signing application", s.codesign},
	}
}

func (s *stepLibrary) createInstallDirs(context.Context) error {
	for _, dir := range []string{s.paths.Base(), s.paths.ModsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDirectoryCreation, dir, err)
		}
	}
	return nil
}

func (s *stepLibrary) copyHyperspaceFiles(context.Context) error {
	if err := s.copyToolIfNeeded(); err != nil {
		return err
	}
	return s.copyModFiles()
}

// copyToolIfNeeded installs the bundled ftlman unless an identical copy is
// already in place.
func (s *stepLibrary) copyToolIfNeeded() error {
	src := s.resources.ToolPath()
	if !fileExists(src) {
		return nil
	}
	dst := s.paths.ToolPath()

	update, err := shouldUpdateFile(src, dst)
	if err != nil {
		return fmt.Errorf("%w: compare %s: %v", ErrFileCopy, dst, err)
	}
	if !update {
		s.logf("  ftlman is up to date")
		return nil
	}

	if err := replaceFile(src, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileCopy, dst, err)
	}
	if err := makeExecutable(dst); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrFileCopy, dst, err)
	}
	stripQuarantine(s.runner, dst)
	return nil
}

// copyModFiles refreshes every bundled .ftl and .zip mod.
func (s *stepLibrary) copyModFiles() error {
	srcDir := s.resources.ModsDir()
	entries, err := os.ReadDir(srcDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileCopy, srcDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".ftl") || strings.HasSuffix(name, ".zip")) {
			continue
		}
		dst := filepath.Join(s.paths.ModsDir(), name)
		if err := replaceFile(filepath.Join(srcDir, name), dst); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFileCopy, name, err)
		}
	}
	return nil
}

func (s *stepLibrary) backupManifest(context.Context) error {
	created, err := s.backups.Backup(s.target.ManifestPath())
	if err != nil {
		return err
	}
	if !created {
		s.logf("  Existing backup kept")
	}
	return nil
}

func (s *stepLibrary) rewriteEntryPoint(ctx context.Context) error {
	if err := s.editor.SetString(ctx, s.target.ManifestPath(), entryPointKey, launcherName); err != nil {
		return fmt.Errorf("%w: %v", ErrManifestModification, err)
	}
	return nil
}

func (s *stepLibrary) copyLibrary(context.Context) error {
	name := s.target.LibraryName()
	src := s.resources.Library(name)
	if !fileExists(src) {
		return fmt.Errorf("%w: %s", ErrLibraryNotFound, src)
	}
	if err := replaceFile(src, filepath.Join(s.target.ExecutableDir(), name)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileCopy, name, err)
	}
	return nil
}

func (s *stepLibrary) copyLauncher(context.Context) error {
	dst := s.target.LauncherPath()
	if err := replaceFile(s.resources.LauncherPath(), dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileCopy, launcherName, err)
	}
	if err := makeExecutable(dst); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrFileCopy, dst, err)
	}
	return nil
}

// updateLauncher points the launcher at the dylib variant for this game version.
func (s *stepLibrary) updateLauncher(context.Context) error {
	path := s.target.LauncherPath()
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileCopy, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileCopy, err)
	}

	updated := launcherLibraryRe.ReplaceAllLiteral(content, []byte(s.target.LibraryName()))
	if err := writeFileAtomic(path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: rewrite %s: %v", ErrFileCopy, path, err)
	}
	return nil
}

// patchModData applies the bundled mods, in mods.plist order, to ftl.dat.
func (s *stepLibrary) patchModData(ctx context.Context) error {
	mods, err := readModsList(s.resources.ModsList())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileCopy, err)
	}

	s.logf("  Mods to patch: %s", strings.Join(mods, ", "))
	s.logf("  FTL Data Dir: %s", s.target.DataDir())

	modPaths := make([]string, 0, len(mods))
	for _, mod := range mods {
		p := filepath.Join(s.paths.ModsDir(), mod)
		if !fileExists(p) {
			return fmt.Errorf("%w: mod file not found: %s", ErrFileCopy, mod)
		}
		modPaths = append(modPaths, p)
	}

	if archive := s.target.DataArchivePath(); fileExists(archive) {
		if _, err := s.backups.Backup(archive); err != nil {
			return err
		}
	}

	if len(modPaths) == 0 {
		s.logf("  No mods to patch")
		return nil
	}

	tool := s.paths.ToolPath()
	if !fileExists(tool) {
		return fmt.Errorf("%w: ftlman not found at %s", ErrToolExecution, tool)
	}
	stripQuarantine(s.runner, tool)

	args := append([]string{"patch"}, modPaths...)
	args = append(args, "-d", s.target.DataDir())
	return s.gatekeeper.InvokePatchTool(ctx, tool, args)
}

type toolTheme struct {
	Colors  string  `json:"colors"`
	Opacity float64 `json:"opacity"`
}

// toolSettings is ftlman's settings.json.
type toolSettings struct {
	ModDirectory               string    `json:"mod_directory"`
	FTLDirectory               string    `json:"ftl_directory"`
	DirsAreMods                bool      `json:"dirs_are_mods"`
	ZipsAreMods                bool      `json:"zips_are_mods"`
	FTLIsZip                   bool      `json:"ftl_is_zip"`
	RepackFTLData              bool      `json:"repack_ftl_data"`
	DisableHSInstaller         bool      `json:"disable_hs_installer"`
	Autoupdate                 bool      `json:"autoupdate"`
	WarnAboutMissingHyperspace bool      `json:"warn_about_missing_hyperspace"`
	Theme                      toolTheme `json:"theme"`
}

func defaultToolSettings(dataDir string) toolSettings {
	return toolSettings{
		ModDirectory:               "mods",
		FTLDirectory:               dataDir,
		DirsAreMods:                true,
		ZipsAreMods:                true,
		FTLIsZip:                   true,
		RepackFTLData:              true,
		DisableHSInstaller:         false,
		Autoupdate:                 true,
		WarnAboutMissingHyperspace: true,
		Theme:                      toolTheme{Colors: "Dark", Opacity: 1.0},
	}
}

func (s *stepLibrary) writeToolSettings(context.Context) error {
	bs, err := json.MarshalIndent(defaultToolSettings(s.target.DataDir()), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigWrite, err)
	}
	path := s.paths.SettingsPath()
	if err := writeFileAtomic(path, append(bs, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigWrite, path, err)
	}
	return nil
}

// codesign ad-hoc signs the whole bundle so macOS accepts the modified app.
func (s *stepLibrary) codesign(context.Context) error {
	cmd := exec.Command("codesign", "-f", "-s", "-", "--timestamp=none", "--all-architectures", "--deep", s.target.Path())
	if err := s.runner.Run(cmd); err != nil {
		return fmt.Errorf("%w: codesign: %v", ErrToolExecution, err)
	}
	return nil
}

func (s *stepLibrary) restoreManifest(context.Context) error {
	return s.backups.Restore(s.target.ManifestPath())
}

// removeInjectedFiles deletes the dylibs and launcher from Contents/MacOS.
func (s *stepLibrary) removeInjectedFiles(context.Context) error {
	dir := s.target.ExecutableDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileCopy, err)
	}

	var result *multierror.Error
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), injectedPrefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		s.logf("  Removed %s", entry.Name())
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileCopy, err)
	}
	return nil
}

func (s *stepLibrary) restoreDataArchive(context.Context) error {
	return s.backups.Restore(s.target.DataArchivePath())
}
