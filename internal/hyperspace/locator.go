package hyperspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// knownLocation is a place FTL.app is commonly installed. Home-relative
// entries are joined to the user's home; the rest to the system root.
type knownLocation struct {
	path         string
	channel      Channel
	homeRelative bool
}

var knownLocations = []knownLocation{
	{"Library/Application Support/Steam/steamapps/common/FTL Faster Than Light/FTL.app", ChannelSteam, true},
	{"Games/FTL Faster Than Light/FTL.app", ChannelGOG, true},
	{"Library/Application Support/GOG.com/Galaxy/Applications/FTL.app", ChannelGOG, true},
	{"Games/FTL/FTL.app", ChannelHumble, true},
	{"Applications/FTL.app", ChannelCustom, true},
	{"Applications/FTL.app", ChannelCustom, false},
	{"Applications/FTL Advanced Edition.app", ChannelCustom, false},
}

// Locator finds FTL installations.
type Locator struct {
	Home       string
	SystemRoot string // "/" unless testing
}

// Detect scans the known install locations and returns every supported FTL
// it finds. Unsupported or unreadable bundles are skipped.
func (l Locator) Detect() []Target {
	root := l.SystemRoot
	if root == "" {
		root = "/"
	}

	var found []Target
	seen := make(map[string]bool)
	for _, loc := range knownLocations {
		base := root
		if loc.homeRelative {
			base = l.Home
		}
		path := filepath.Join(base, filepath.FromSlash(loc.path))
		if !fileExists(path) {
			continue
		}
		t, err := l.resolve(path, loc.channel)
		if err != nil {
			debugf("=> skipping %s: %v\n", path, err)
			continue
		}
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		found = append(found, t)
	}
	return found
}

// FromPath builds a target from a bundle the user picked by hand.
func (l Locator) FromPath(path string) (Target, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Target{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Target{}, fmt.Errorf("FTL not found at %s: %w", abs, err)
	}
	if !info.IsDir() {
		return Target{}, fmt.Errorf("%s is not an application bundle", abs)
	}
	return l.resolve(abs, ChannelCustom)
}

func (l Locator) resolve(path string, channel Channel) (Target, error) {
	v, err := ReadVersion(path)
	if err != nil {
		return Target{}, err
	}
	return NewTarget(path, channel, v)
}

// ReadVersion returns CFBundleShortVersionString from the bundle's Info.plist.
func ReadVersion(appPath string) (string, error) {
	manifest := filepath.Join(appPath, "Contents", "Info.plist")
	if !fileExists(manifest) {
		return "", fmt.Errorf("no Info.plist in %s", appPath)
	}
	return readManifestString(manifest, versionKey)
}

// IsInstalled reports whether Hyperspace's launcher is present in the bundle.
func IsInstalled(t Target) bool {
	return fileExists(t.LauncherPath())
}
