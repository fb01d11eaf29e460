package hyperspace

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const infoPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleExecutable</key>
	<string>FTL</string>
	<key>CFBundleIdentifier</key>
	<string>com.subsetgames.ftl</string>
	<key>CFBundleName</key>
	<string>FTL</string>
	<key>CFBundleShortVersionString</key>
	<string>%VERSION%</string>
</dict>
</plist>
`

const launcherScript = `#!/bin/sh
cd "$(dirname "$0")"
DYLD_INSERT_LIBRARIES=Hyperspace.1.6.12.amd64.dylib ./FTL
`

func infoPlist(version string) string {
	return strings.ReplaceAll(infoPlistTemplate, "%VERSION%", version)
}

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// makeBundle lays out a minimal FTL.app at dir and returns its path.
func makeBundle(t *testing.T, dir, version string) string {
	t.Helper()
	app := filepath.Join(dir, "FTL.app")
	writeFile(t, filepath.Join(app, "Contents", "Info.plist"), infoPlist(version), 0o644)
	writeFile(t, filepath.Join(app, "Contents", "MacOS", "FTL"), "game binary", 0o755)
	writeFile(t, filepath.Join(app, "Contents", "Resources", "ftl.dat"), "vanilla data", 0o644)
	return app
}

func makeTarget(t *testing.T, version string) Target {
	t.Helper()
	app := makeBundle(t, t.TempDir(), version)
	target, err := NewTarget(app, ChannelSteam, version)
	require.NoError(t, err)
	return target
}

// makeResources lays out an installer payload with both dylib variants and
// the given mods listed, in order, in mods.plist.
func makeResources(t *testing.T, mods ...string) Resources {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ftlman"), "ftlman v1", 0o755)
	writeFile(t, filepath.Join(dir, launcherName), launcherScript, 0o755)
	for _, v := range SupportedVersions {
		writeFile(t, filepath.Join(dir, "Hyperspace."+v+".amd64.dylib"), "dylib "+v, 0o644)
	}
	for _, m := range mods {
		writeFile(t, filepath.Join(dir, "mods", m), "mod "+m, 0o644)
	}
	if len(mods) > 0 {
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
		b.WriteString(`<plist version="1.0"><dict><key>mods</key><array>`)
		for _, m := range mods {
			b.WriteString("<string>" + m + "</string>")
		}
		b.WriteString("</array></dict></plist>\n")
		writeFile(t, filepath.Join(dir, "mods.plist"), b.String(), 0o644)
	}
	return Resources{Dir: dir}
}

// fakeRunner records every command instead of running it. fail, when set,
// decides the result of each call.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fail  func(args []string) error
}

func (f *fakeRunner) Run(cmd *exec.Cmd) error {
	f.mu.Lock()
	args := append([]string(nil), cmd.Args...)
	f.calls = append(f.calls, args)
	fail := f.fail
	f.mu.Unlock()

	if fail != nil {
		return fail(args)
	}
	return nil
}

// callsTo returns the recorded invocations whose program base name is name.
func (f *fakeRunner) callsTo(name string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if filepath.Base(c[0]) == name {
			out = append(out, c)
		}
	}
	return out
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC)
}

func newTestEngine(t *testing.T, res Resources, runner Runner) *Engine {
	t.Helper()
	return &Engine{
		Paths:     Paths{Home: t.TempDir()},
		Resources: res,
		Runner:    runner,
		Editor:    plistEditor{},
		Now:       fixedClock,
	}
}

// collect drains r's events and returns them once the run is done.
func collect(r *Run) []Event {
	var events []Event
	for ev := range r.Events() {
		events = append(events, ev)
	}
	return events
}

func progressOf(events []Event) []float64 {
	var out []float64
	for _, ev := range events {
		if ev.Kind == EventProgress {
			out = append(out, ev.Progress)
		}
	}
	return out
}

func messages(lines []LogLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Message
	}
	return out
}

var background = context.Background()
