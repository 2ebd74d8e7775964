package diag

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"flowdiag/internal/flow"
)

func span(file string, sl, sc, el, ec int) *flow.Range {
	return &flow.Range{
		File:  file,
		Start: flow.Position{Line: sl, Column: sc},
		End:   flow.Position{Line: el, Column: ec},
	}
}

func report(msgs ...flow.Message) *flow.Report {
	return &flow.Report{Messages: msgs}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Fatalf("expected no entries for nil report, got %d", len(got))
	}
	if got := Normalize(&flow.Report{}); len(got) != 0 {
		t.Fatalf("expected no entries for empty report, got %d", len(got))
	}
}

func TestNormalizeSingleFile(t *testing.T) {
	got := Normalize(report(flow.Message{
		Level: "error",
		Components: []flow.MessageComponent{
			{Descr: flow.Descr("Cannot call foo")},
			{Descr: flow.Descr("context"), Range: span("a.js", 2, 3, 2, 6)},
		},
	}))
	want := []Entry{{
		File: "a.js",
		Diagnostic: Diagnostic{
			File:     "a.js",
			Range:    Range{Start: Position{Line: 2, Column: 3}, End: Position{Line: 2, Column: 6}},
			Message:  "Cannot call foo (context)",
			Severity: SevError,
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeTwoFilesMirrorSeeAlso(t *testing.T) {
	got := Normalize(report(flow.Message{
		Level: "error",
		Components: []flow.MessageComponent{
			{Descr: flow.Descr("X"), Range: span("a.js", 5, 1, 5, 4)},
			{Descr: flow.Descr("Y"), Range: span("b.js", 10, 2, 10, 8)},
		},
	}))
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].File != "a.js" || got[1].File != "b.js" {
		t.Fatalf("unexpected file order: %q, %q", got[0].File, got[1].File)
	}
	if want := "X (Y)\n\nSee also:\nb.js (line: 10)"; got[0].Diagnostic.Message != want {
		t.Fatalf("a.js message:\nwant %q\ngot  %q", want, got[0].Diagnostic.Message)
	}
	if want := "X (Y)\n\nSee also:\na.js (line: 5)"; got[1].Diagnostic.Message != want {
		t.Fatalf("b.js message:\nwant %q\ngot  %q", want, got[1].Diagnostic.Message)
	}
	if got[1].Diagnostic.Range.Start.Line != 10 {
		t.Fatalf("b.js anchored at wrong range: %+v", got[1].Diagnostic.Range)
	}
}

func TestNormalizeFirstRangePerFileWins(t *testing.T) {
	got := Normalize(report(flow.Message{
		Level: "warning",
		Components: []flow.MessageComponent{
			{Descr: flow.Descr("primary"), Range: span("a.js", 3, 1, 3, 2)},
			{Descr: flow.Descr("b first"), Range: span("b.js", 7, 1, 7, 2)},
			{Descr: flow.Descr("a again"), Range: span("a.js", 9, 1, 9, 2)},
			{Descr: flow.Descr("b again"), Range: span("b.js", 1, 1, 1, 2)},
			{Descr: flow.Descr("c"), Range: span("c.js", 4, 4, 4, 5)},
		},
	}))
	if len(got) != 3 {
		t.Fatalf("expected one entry per file, got %d", len(got))
	}
	if got[0].Diagnostic.Range.Start.Line != 3 {
		t.Fatalf("a.js anchor should be the first a.js range, got %+v", got[0].Diagnostic.Range)
	}
	want := "primary (b first a again b again c)\n\nSee also:\nb.js (line: 7)\nc.js (line: 4)"
	if got[0].Diagnostic.Message != want {
		t.Fatalf("a.js message:\nwant %q\ngot  %q", want, got[0].Diagnostic.Message)
	}
	want = "primary (b first a again b again c)\n\nSee also:\na.js (line: 3)\nb.js (line: 7)"
	if got[2].Diagnostic.Message != want {
		t.Fatalf("c.js message:\nwant %q\ngot  %q", want, got[2].Diagnostic.Message)
	}
	for _, e := range got {
		if e.Diagnostic.Severity != SevWarning {
			t.Fatalf("expected warning severity, got %v", e.Diagnostic.Severity)
		}
	}
}

func TestNormalizeRangelessMessage(t *testing.T) {
	got := Normalize(report(flow.Message{
		Level: "error",
		Components: []flow.MessageComponent{
			{Descr: flow.Descr("no location here")},
			{Descr: flow.Descr("nor here")},
		},
	}))
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %+v", got)
	}
}

func TestNormalizeMissingAndEmptyDescriptions(t *testing.T) {
	tests := []struct {
		name       string
		components []flow.MessageComponent
		want       string
	}{
		{
			name: "missing primary",
			components: []flow.MessageComponent{
				{Range: span("a.js", 1, 1, 1, 1)},
				{Descr: flow.Descr("ctx")},
			},
			want: " (ctx)",
		},
		{
			name: "empty primary",
			components: []flow.MessageComponent{
				{Descr: flow.Descr(""), Range: span("a.js", 1, 1, 1, 1)},
			},
			want: "",
		},
		{
			name: "empty and missing secondaries are skipped",
			components: []flow.MessageComponent{
				{Descr: flow.Descr("main"), Range: span("a.js", 1, 1, 1, 1)},
				{Descr: flow.Descr("")},
				{Range: span("a.js", 2, 1, 2, 1)},
				{Descr: flow.Descr("kept")},
			},
			want: "main (kept)",
		},
		{
			name: "only empty secondaries",
			components: []flow.MessageComponent{
				{Descr: flow.Descr("main"), Range: span("a.js", 1, 1, 1, 1)},
				{Descr: flow.Descr("")},
			},
			want: "main",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(report(flow.Message{Level: "error", Components: tt.components}))
			if len(got) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(got))
			}
			if got[0].Diagnostic.Message != tt.want {
				t.Fatalf("want %q, got %q", tt.want, got[0].Diagnostic.Message)
			}
		})
	}
}

func TestNormalizeSkipsEmptyFilePath(t *testing.T) {
	got := Normalize(report(flow.Message{
		Level: "error",
		Components: []flow.MessageComponent{
			{Descr: flow.Descr("x"), Range: span("", 1, 1, 1, 2)},
			{Descr: flow.Descr("y"), Range: span("a.js", 3, 1, 3, 2)},
		},
	}))
	if len(got) != 1 || got[0].File != "a.js" {
		t.Fatalf("expected only a.js, got %+v", got)
	}
	if got[0].Diagnostic.Message != "x (y)" {
		t.Fatalf("unexpected message %q", got[0].Diagnostic.Message)
	}
}

func TestNormalizeNoComponents(t *testing.T) {
	got := Normalize(report(flow.Message{Level: "error"}))
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}

func TestNormalizeMessagesStayInReportOrder(t *testing.T) {
	got := Normalize(report(
		flow.Message{Level: "error", Components: []flow.MessageComponent{{Descr: flow.Descr("first"), Range: span("b.js", 1, 1, 1, 1)}}},
		flow.Message{Level: "error", Components: []flow.MessageComponent{{Descr: flow.Descr("second"), Range: span("a.js", 1, 1, 1, 1)}}},
		flow.Message{Level: "error", Components: []flow.MessageComponent{{Descr: flow.Descr("third"), Range: span("b.js", 1, 1, 1, 1)}}},
	))
	var msgs []string
	for _, e := range got {
		msgs = append(msgs, e.Diagnostic.Message)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, msgs); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMapSeverity(t *testing.T) {
	tests := []struct {
		level string
		want  Severity
	}{
		{"error", SevError},
		{"warning", SevWarning},
		{"info", SevError},
		{"", SevError},
		{"Warning", SevError},
	}
	for _, tt := range tests {
		if got := MapSeverity(tt.level); got != tt.want {
			t.Errorf("MapSeverity(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSeverityLSP(t *testing.T) {
	if SevError.LSP() != 1 || SevWarning.LSP() != 2 || SevInfo.LSP() != 3 {
		t.Fatalf("unexpected LSP severities: %d %d %d", SevError.LSP(), SevWarning.LSP(), SevInfo.LSP())
	}
}
