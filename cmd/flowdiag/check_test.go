package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"flowdiag/internal/diagfmt"
	"flowdiag/internal/flow"
)

func statusJSON(level, file string, line int, descr string) string {
	return `{"passed":false,"errors":[{"level":"` + level + `","message":[{"descr":"` + descr +
		`","path":"` + file + `","line":` + itoa(line) + `,"endline":` + itoa(line) + `,"start":1,"end":3}]}]}`
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCheckGroupsByProjectAndMergesInOrder(t *testing.T) {
	dir := isolate(t)
	projA := filepath.Join(dir, "a")
	projB := filepath.Join(dir, "b")
	writeFile(t, filepath.Join(projA, ".flowconfig"), "")
	writeFile(t, filepath.Join(projB, ".flowconfig"), "")
	fileA1 := filepath.Join(projA, "one.js")
	fileA2 := filepath.Join(projA, "two.js")
	fileB := filepath.Join(projB, "main.js")
	for _, f := range []string{fileA1, fileA2, fileB} {
		writeFile(t, f, "// @flow\n")
	}

	runner := &fakeRunner{out: map[string][]byte{
		projA: []byte(statusJSON("warning", fileA2, 1, "from a")),
		projB: []byte(statusJSON("warning", fileB, 1, "from b")),
	}}
	useFakeRunner(t, runner)

	out, _, err := execute(t, "check", "--format", "json", "b/main.js", "a/one.js", "a/two.js")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected one flow call per project, got %d", len(runner.calls))
	}
	var got diagfmt.DiagnosticsOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Count != 2 || len(got.Files) != 2 {
		t.Fatalf("unexpected output: %+v", got)
	}
	if got.Files[0].File != "b/main.js" || got.Files[1].File != "a/two.js" {
		t.Fatalf("expected argument order b then a, got %s, %s", got.Files[0].File, got.Files[1].File)
	}
}

func TestCheckExitsNonZeroOnErrors(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".flowconfig"), "")
	file := filepath.Join(dir, "main.js")
	writeFile(t, file, "// @flow\nbad();\n")
	useFakeRunner(t, &fakeRunner{out: map[string][]byte{
		dir: []byte(statusJSON("error", file, 2, "bad call")),
	}})

	out, _, err := execute(t, "check", "--format", "short", "main.js")
	if !errors.Is(err, errDiagnosticsFound) {
		t.Fatalf("expected errDiagnosticsFound, got %v", err)
	}
	if out != "main.js:2:1: error: bad call\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCheckPrettyPassed(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".flowconfig"), "")
	writeFile(t, filepath.Join(dir, "ok.js"), "// @flow\n")
	useFakeRunner(t, &fakeRunner{out: map[string][]byte{dir: []byte(`{"passed":true,"errors":[]}`)}})

	out, _, err := execute(t, "check", "ok.js")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if out != "No errors!\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCheckOutsideProjectWarns(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "loose.js"), "")
	runner := &fakeRunner{}
	useFakeRunner(t, runner)

	out, stderr, err := execute(t, "check", "--format", "short", "--flow", "/opt/flow", "loose.js")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if out != "" || len(runner.calls) != 0 {
		t.Fatalf("expected no output and no calls, got %q and %d calls", out, len(runner.calls))
	}
	if !strings.Contains(stderr, "not inside a flow project") {
		t.Fatalf("expected warning on stderr, got %q", stderr)
	}
}

func TestCheckServiceFailure(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".flowconfig"), "")
	writeFile(t, filepath.Join(dir, "main.js"), "")
	useFakeRunner(t, &fakeRunner{err: &flow.ExitError{Code: 6, Stderr: "server failed"}})

	_, _, err := execute(t, "check", "main.js")
	if !errors.Is(err, flow.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestCheckRejectsMissingFileAndBadFormat(t *testing.T) {
	isolate(t)
	useFakeRunner(t, &fakeRunner{})
	if _, _, err := execute(t, "check", "missing.js"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, _, err := execute(t, "check", "--format", "sarif", "missing.js"); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestCheckUsesProjectSettings(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".flowconfig"), "")
	writeFile(t, filepath.Join(dir, ".flowdiag.toml"), "[flow]\nbinary = \"/custom/flow\"\nargs = [\"--quiet\"]\n")
	writeFile(t, filepath.Join(dir, "main.js"), "")
	runner := &fakeRunner{out: map[string][]byte{dir: []byte(`{"passed":true}`)}}
	useFakeRunner(t, runner)

	if _, _, err := execute(t, "check", "main.js"); err != nil {
		t.Fatalf("check: %v", err)
	}
	call := runner.calls[0]
	if call.Binary != "/custom/flow" {
		t.Fatalf("expected configured binary, got %q", call.Binary)
	}
	if got := strings.Join(call.Args, " "); got != "status --json --from flowdiag --quiet "+dir {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestCheckTimings(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".flowconfig"), "")
	writeFile(t, filepath.Join(dir, "ok.js"), "")
	useFakeRunner(t, &fakeRunner{out: map[string][]byte{dir: []byte(`{"passed":true,"errors":[]}`)}})

	_, stderr, err := execute(t, "check", "--format", "short", "--timings", "ok.js")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{"project " + dir, "analyze", "normalize", "collect", "total"} {
		if !strings.Contains(stderr, want) {
			t.Fatalf("expected %q in timings, got %q", want, stderr)
		}
	}

	_, stderr, err = execute(t, "check", "--format", "json", "--timings", "ok.js")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var timings []projectTimingJSON
	if err := json.Unmarshal([]byte(stderr), &timings); err != nil {
		t.Fatalf("decode timings: %v\n%s", err, stderr)
	}
	if len(timings) != 1 || timings[0].Root != dir || len(timings[0].Timings.Phases) != 3 {
		t.Fatalf("unexpected timings: %+v", timings)
	}
	if timings[0].Timings.Phases[0].Name != "analyze" || timings[0].Timings.Phases[0].Note != dir {
		t.Fatalf("unexpected first phase: %+v", timings[0].Timings.Phases[0])
	}
}
