package hyperspace

import "path/filepath"

const baseDirName = "Games/FTLHyperspace"

// Paths is the installer's own layout under a home directory.
type Paths struct {
	Home string
}

func (p Paths) Base() string         { return filepath.Join(p.Home, filepath.FromSlash(baseDirName)) }
func (p Paths) ModsDir() string      { return filepath.Join(p.Base(), "mods") }
func (p Paths) ToolPath() string     { return filepath.Join(p.Base(), "ftlman") }
func (p Paths) SettingsPath() string { return filepath.Join(p.Base(), "settings.json") }
func (p Paths) LogsDir() string      { return filepath.Join(p.Base(), "logs") }
func (p Paths) LogFile() string      { return filepath.Join(p.LogsDir(), "install.log") }
func (p Paths) LockFile() string     { return filepath.Join(p.Base(), ".lock") }

// Resources is the installer's bundled payload: ftlman, the dylib variants,
// the launcher script, mods/ and mods.plist.
type Resources struct {
	Dir string
}

func (r Resources) ToolPath() string           { return filepath.Join(r.Dir, "ftlman") }
func (r Resources) ModsDir() string            { return filepath.Join(r.Dir, "mods") }
func (r Resources) ModsList() string           { return filepath.Join(r.Dir, "mods.plist") }
func (r Resources) LauncherPath() string       { return filepath.Join(r.Dir, launcherName) }
func (r Resources) Library(name string) string { return filepath.Join(r.Dir, name) }
