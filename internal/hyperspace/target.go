package hyperspace

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportedVersions lists the FTL releases Hyperspace ships a dylib for, oldest first.
var SupportedVersions = []string{"1.6.12", "1.6.13"}

// Channel is the storefront an FTL install came from. It is informational only.
type Channel string

const (
	ChannelSteam  Channel = "Steam"
	ChannelGOG    Channel = "GOG"
	ChannelHumble Channel = "Humble"
	ChannelCustom Channel = "Custom"
)

const (
	launcherName   = "Hyperspace.command"
	injectedPrefix = "Hyperspace"
	dataArchive    = "ftl.dat"
	entryPointKey  = "CFBundleExecutable"
	versionKey     = "CFBundleShortVersionString"
)

// ValidateVersion returns v unchanged when it is supported.
func ValidateVersion(v string) (string, bool) {
	for _, s := range SupportedVersions {
		if v == s {
			return v, true
		}
	}
	return "", false
}

func supportedVersionList() string {
	return strings.Join(SupportedVersions, " or ")
}

// Target identifies one FTL.app bundle. Two targets are the same target when
// their paths match, whatever the channel or version.
type Target struct {
	path           string
	channel        Channel
	version        string
	libraryVersion string
}

// NewTarget builds a Target, rejecting versions Hyperspace has no dylib for.
func NewTarget(path string, channel Channel, version string) (Target, error) {
	if path == "" {
		return Target{}, fmt.Errorf("empty FTL path")
	}
	libVersion, ok := ValidateVersion(version)
	if !ok {
		return Target{}, unsupportedVersionError(version)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Target{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	return Target{
		path:           abs,
		channel:        channel,
		version:        version,
		libraryVersion: libVersion,
	}, nil
}

func (t Target) Path() string           { return t.path }
func (t Target) Channel() Channel       { return t.channel }
func (t Target) Version() string        { return t.version }
func (t Target) LibraryVersion() string { return t.libraryVersion }

// Key is the identity of the target, suitable as a map key.
func (t Target) Key() string { return t.path }

// Equal reports whether t and o point at the same bundle.
func (t Target) Equal(o Target) bool { return t.path == o.path }

func (t Target) DisplayName() string {
	return fmt.Sprintf("%s - v%s", t.channel, t.version)
}

func (t Target) ManifestPath() string {
	return filepath.Join(t.path, "Contents", "Info.plist")
}

func (t Target) ExecutableDir() string {
	return filepath.Join(t.path, "Contents", "MacOS")
}

func (t Target) DataDir() string {
	return filepath.Join(t.path, "Contents", "Resources")
}

func (t Target) DataArchivePath() string {
	return filepath.Join(t.DataDir(), dataArchive)
}

// LibraryName is the dylib variant matching the detected game version.
func (t Target) LibraryName() string {
	return fmt.Sprintf("Hyperspace.%s.amd64.dylib", t.libraryVersion)
}

func (t Target) LauncherPath() string {
	return filepath.Join(t.ExecutableDir(), launcherName)
}
