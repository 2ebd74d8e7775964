package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"

	"flowdiag/internal/completion"
)

func TestWorkspaceSettingsComeFromWorkspaceRoot(t *testing.T) {
	cwd := isolate(t)
	writeFile(t, filepath.Join(cwd, ".flowdiag.toml"), "[diagnostics]\nsource = \"from-cwd\"\n")
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	writeFile(t, filepath.Join(root, ".flowconfig"), "")
	writeFile(t, filepath.Join(root, ".flowdiag.toml"), `[flow]
binary = "/project/flow"

[diagnostics]
extensions = [".jsx"]
source = "flow-project"

[completion]
snippet_style = "legacy"
`)
	runner := &fakeRunner{out: map[string][]byte{root: []byte(`{"passed":true,"errors":[]}`)}}
	useFakeRunner(t, runner)

	cmd, _, err := newRootCmd().Find([]string{"lsp"})
	if err != nil {
		t.Fatalf("find lsp: %v", err)
	}
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	ws, err := workspaceSettings(cmd, root, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("workspace settings: %v", err)
	}
	if ws.Source != "flow-project" || ws.SnippetStyle != completion.StyleLegacy || !slices.Equal(ws.Extensions, []string{".jsx"}) {
		t.Fatalf("unexpected settings %+v", ws)
	}
	if _, err := ws.Analyzer.FindDiagnostics(context.Background(), filepath.Join(root, "a.jsx")); err != nil {
		t.Fatalf("find diagnostics: %v", err)
	}
	if len(runner.calls) != 1 || runner.calls[0].Binary != "/project/flow" {
		t.Fatalf("expected the workspace flow binary, got %+v", runner.calls)
	}
}

func TestWorkspaceSettingsReportBadConfig(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".flowdiag.toml"), "[completion]\nsnippet_style = \"fancy\"\n")

	cmd, _, err := newRootCmd().Find([]string{"lsp"})
	if err != nil {
		t.Fatalf("find lsp: %v", err)
	}
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := workspaceSettings(cmd, root, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatal("expected invalid snippet style to fail")
	}
}
