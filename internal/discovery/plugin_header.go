package discovery

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// headerScanBytes matches how much of a file WordPress reads for plugin headers.
const headerScanBytes = 8 * 1024

// PluginHeader holds the fields of a WordPress plugin header comment.
type PluginHeader struct {
	Name    string
	Version string
	URI     string
	File    string
}

var headerFields = map[string]*regexp.Regexp{
	"Plugin Name": headerFieldRegexp("Plugin Name"),
	"Version":     headerFieldRegexp("Version"),
	"Plugin URI":  headerFieldRegexp("Plugin URI"),
}

func headerFieldRegexp(field string) *regexp.Regexp {
	return regexp.MustCompile(`(?mi)^(?:[ \t]*<\?php)?[ \t/*#@]*` + regexp.QuoteMeta(field) + `:(.*)$`)
}

// ReadPluginHeader scans the PHP files directly under rootDir (not
// subdirectories, as WordPress does) for a "Plugin Name:" header and returns
// the first one found in lexical file order. ok is false when there is none.
func ReadPluginHeader(rootDir string) (header PluginHeader, ok bool) {
	matches, err := filepath.Glob(filepath.Join(rootDir, "*.php"))
	if err != nil {
		return PluginHeader{}, false
	}
	sort.Strings(matches)

	for _, path := range matches {
		head, err := readHead(path)
		if err != nil {
			continue
		}
		name := headerField(head, "Plugin Name")
		if name == "" {
			continue
		}
		return PluginHeader{
			Name:    name,
			Version: headerField(head, "Version"),
			URI:     headerField(head, "Plugin URI"),
			File:    path,
		}, true
	}
	return PluginHeader{}, false
}

func readHead(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, headerScanBytes))
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(buf), "\r", "\n"), nil
}

func headerField(head, field string) string {
	m := headerFields[field].FindStringSubmatch(head)
	if m == nil {
		return ""
	}
	value := strings.TrimSpace(m[1])
	value = strings.TrimSpace(strings.TrimSuffix(value, "*/"))
	return value
}
