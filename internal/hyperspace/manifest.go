package hyperspace

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"howett.net/plist"
)

// ManifestEditor replaces one string field of a property list in place.
type ManifestEditor interface {
	SetString(ctx context.Context, path, key, value string) error
}

// NewManifestEditor returns the editor named by the config value
// ("plutil" or "builtin").
func NewManifestEditor(name string, runner Runner) (ManifestEditor, error) {
	switch name {
	case "", "builtin":
		return plistEditor{}, nil
	case "plutil":
		return plutilEditor{runner: runner}, nil
	default:
		return nil, fmt.Errorf("unknown manifest editor %q", name)
	}
}

// plutilEditor shells out to macOS plutil.
type plutilEditor struct {
	runner Runner
}

func (e plutilEditor) SetString(_ context.Context, path, key, value string) error {
	cmd := exec.Command("plutil", "-replace", key, "-string", value, path)
	return e.runner.Run(cmd)
}

// plistEditor edits the file in process. XML plists are patched textually so
// every byte outside the edited <string> element survives; other formats are
// re-encoded in their original format.
type plistEditor struct{}

func (plistEditor) SetString(_ context.Context, path, key, value string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var dict map[string]interface{}
	format, err := plist.Unmarshal(data, &dict)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	var out []byte
	if format == plist.XMLFormat {
		out, err = replaceXMLString(data, key, value)
	}
	if out == nil || err != nil {
		dict[key] = value
		out, err = plist.MarshalIndent(dict, format, "\t")
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}

	if err := writeFileAtomic(path, out, info.Mode().Perm()); err != nil {
		return err
	}

	got, err := readManifestString(path, key)
	if err != nil {
		return err
	}
	if got != value {
		return fmt.Errorf("%s still reads %q after setting %s", path, got, key)
	}
	return nil
}

// replaceXMLString swaps the text of the <string> element following <key>key</key>.
// It returns nil when the key is absent or its value is not a plain string.
func replaceXMLString(data []byte, key, value string) ([]byte, error) {
	re, err := regexp.Compile(`(<key>` + regexp.QuoteMeta(key) + `</key>\s*<string>)[^<]*(</string>)`)
	if err != nil {
		return nil, err
	}
	locs := re.FindAllSubmatchIndex(data, -1)
	if len(locs) != 1 {
		return nil, nil
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(value)); err != nil {
		return nil, err
	}

	loc := locs[0]
	out := make([]byte, 0, len(data)+escaped.Len())
	out = append(out, data[:loc[3]]...)
	out = append(out, escaped.Bytes()...)
	out = append(out, data[loc[4]:]...)
	return out, nil
}

func readManifest(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dict map[string]interface{}
	if _, err := plist.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return dict, nil
}

// readManifestString returns the string value of key in the plist at path.
func readManifestString(path, key string) (string, error) {
	dict, err := readManifest(path)
	if err != nil {
		return "", err
	}
	v, ok := dict[key].(string)
	if !ok {
		return "", fmt.Errorf("%s has no string %s", path, key)
	}
	return v, nil
}

type modsManifest struct {
	Mods []string `plist:"mods"`
}

// readModsList returns the ordered mod file names from mods.plist. A missing
// file means there is nothing to patch.
func readModsList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m modsManifest
	if _, err := plist.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m.Mods, nil
}
