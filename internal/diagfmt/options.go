package diagfmt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format selects how diagnostics are rendered.
type Format uint8

const (
	FormatPretty Format = iota
	FormatShort
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatShort:
		return "short"
	case FormatJSON:
		return "json"
	}
	return "pretty"
}

// ParseFormat parses pretty, short or json.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pretty":
		return FormatPretty, nil
	case "short":
		return FormatShort, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatPretty, fmt.Errorf("unsupported format %q (must be pretty, short or json)", name)
}

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto uses a path relative to BaseDir when the file is inside it.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// Options configures every output format.
type Options struct {
	Color    bool
	PathMode PathMode
	BaseDir  string
	// Context prints the offending source line under each pretty diagnostic.
	Context bool
	// Max limits the number of diagnostics printed; 0 prints all.
	Max int
	// ReadFile loads source for context lines; defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

func (o Options) readFile(path string) ([]byte, error) {
	if o.ReadFile != nil {
		return o.ReadFile(path)
	}
	return os.ReadFile(path)
}

func (o Options) displayPath(path string) string {
	switch o.PathMode {
	case PathModeAbsolute:
		return path
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative:
		if rel, ok := relativeTo(o.BaseDir, path); ok {
			return rel
		}
		return path
	default:
		if rel, ok := relativeTo(o.BaseDir, path); ok && !strings.HasPrefix(rel, "..") {
			return rel
		}
		return path
	}
}

func relativeTo(base, path string) (string, bool) {
	if base == "" || !filepath.IsAbs(path) {
		return "", false
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
