// Package config loads flowdiag settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"flowdiag/internal/completion"
	"flowdiag/internal/logging"
	"flowdiag/internal/project"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvFlowBinary overrides flow.binary when set.
const EnvFlowBinary = "FLOWDIAG_FLOW_BIN"

type Config struct {
	Flow        FlowConfig        `toml:"flow"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Refresh     RefreshConfig     `toml:"refresh"`
	Completion  CompletionConfig  `toml:"completion"`
	Log         LogConfig         `toml:"log"`

	// Sources lists the files that were merged, in order.
	Sources []string `toml:"-"`
}

type FlowConfig struct {
	Binary     string   `toml:"binary"`
	Args       []string `toml:"args"`
	RootMarker string   `toml:"root_marker"`
	Timeout    Duration `toml:"timeout"`
}

type DiagnosticsConfig struct {
	Extensions []string `toml:"extensions"`
	Source     string   `toml:"source"`
}

type RefreshConfig struct {
	Debounce  Duration `toml:"debounce"`
	DropStale bool     `toml:"drop_stale"`
}

type CompletionConfig struct {
	SnippetStyle string `toml:"snippet_style"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Flow: FlowConfig{
			Binary:     "flow",
			Args:       []string{},
			RootMarker: project.FlowConfig,
		},
		Diagnostics: DiagnosticsConfig{
			Extensions: []string{".js"},
			Source:     "flow",
		},
		Completion: CompletionConfig{SnippetStyle: "lsp"},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Dir returns the flowdiag directory under the XDG config home.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "flowdiag")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "flowdiag")
	}
	return filepath.Join(home, ".config", "flowdiag")
}

// GlobalPath is the per-user configuration file.
func GlobalPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// LoadOptions controls which layers Load merges.
type LoadOptions struct {
	// WorkDir is where the upward search for .flowdiag.toml starts. Empty
	// skips the project layer.
	WorkDir string
	// Explicit is a file given on the command line; it must exist.
	Explicit string
	// SkipGlobal ignores the per-user file.
	SkipGlobal bool
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load merges defaults, the global file, the project file, the explicit file
// and the environment, in that order, and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()
	if !opts.SkipGlobal {
		if err := cfg.mergeFile(GlobalPath(), false); err != nil {
			return nil, err
		}
	}
	if opts.WorkDir != "" {
		path, ok, err := project.FindMarker(opts.WorkDir, project.SettingsFile)
		if err != nil {
			return nil, fmt.Errorf("locating %s: %w", project.SettingsFile, err)
		}
		if ok {
			if err := cfg.mergeFile(path, true); err != nil {
				return nil, err
			}
		}
	}
	if opts.Explicit != "" {
		if err := cfg.mergeFile(opts.Explicit, true); err != nil {
			return nil, err
		}
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if bin := strings.TrimSpace(getenv(EnvFlowBinary)); bin != "" {
		cfg.Flow.Binary = bin
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	c.Sources = append(c.Sources, path)
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Flow.Binary) == "" {
		return fmt.Errorf("%w: flow.binary is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Flow.RootMarker) == "" {
		return fmt.Errorf("%w: flow.root_marker is required", ErrInvalid)
	}
	if c.Flow.Timeout.Duration < 0 {
		return fmt.Errorf("%w: flow.timeout must not be negative", ErrInvalid)
	}
	if c.Refresh.Debounce.Duration < 0 {
		return fmt.Errorf("%w: refresh.debounce must not be negative", ErrInvalid)
	}
	if !slices.ContainsFunc(c.Diagnostics.Extensions, func(ext string) bool { return strings.TrimSpace(ext) != "" }) {
		return fmt.Errorf("%w: diagnostics.extensions must list at least one extension", ErrInvalid)
	}
	if _, err := completion.ParseStyle(c.Completion.SnippetStyle); err != nil {
		return fmt.Errorf("%w: completion.snippet_style: %w", ErrInvalid, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalid, c.Log.Format)
	}
	return nil
}

// SnippetStyle returns the parsed completion style. Validate has already
// rejected unknown values.
func (c *Config) SnippetStyle() completion.Style {
	style, _ := completion.ParseStyle(c.Completion.SnippetStyle)
	return style
}

// Encode writes c as TOML.
func Encode(w io.Writer, c *Config) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	return enc.Encode(c)
}
