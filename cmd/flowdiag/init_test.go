package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flowdiag/internal/config"
)

func TestInitWritesLoadableSettings(t *testing.T) {
	dir := isolate(t)
	out, stderr, err := execute(t, "init", "proj")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	path := filepath.Join(dir, "proj", ".flowdiag.toml")
	if !strings.Contains(out, path) {
		t.Fatalf("expected written path in output, got %q", out)
	}
	if !strings.Contains(stderr, "no .flowconfig") {
		t.Fatalf("expected missing .flowconfig note, got %q", stderr)
	}
	cfg, err := config.Load(config.LoadOptions{WorkDir: filepath.Join(dir, "proj"), SkipGlobal: true, Getenv: func(string) string { return "" }})
	if err != nil {
		t.Fatalf("load written settings: %v", err)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0] != path {
		t.Fatalf("expected settings to be loaded from %s, got %v", path, cfg.Sources)
	}
}

func TestInitRefusesOverwriteWithoutForce(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, ".flowdiag.toml")
	writeFile(t, path, "# mine\n")

	if _, _, err := execute(t, "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "# mine\n" {
		t.Fatalf("existing file was modified: %q", data)
	}

	if _, _, err := execute(t, "init", "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "[flow]") {
		t.Fatalf("expected defaults after --force, got %q", data)
	}
}

func TestInitHonorsConfiguredRootMarker(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "custom.toml"), "[flow]\nroot_marker = \".myflow\"\n")
	writeFile(t, filepath.Join(dir, ".myflow"), "")

	_, stderr, err := execute(t, "--config", filepath.Join(dir, "custom.toml"), "init", "sub")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if strings.Contains(stderr, "note:") {
		t.Fatalf("expected the custom marker to be found, got %q", stderr)
	}

	_, stderr, err = execute(t, "init", "other")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(stderr, "no .flowconfig found") {
		t.Fatalf("expected default marker note, got %q", stderr)
	}
}
