package observ

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimerReport(t *testing.T) {
	timer := NewTimer()
	timer.now = fakeClock(2 * time.Millisecond)

	idx := timer.Begin("analyze")
	timer.End(idx, "a.js")
	idx = timer.Begin("publish")
	timer.End(idx, "")
	timer.End(42, "ignored")

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(report.Phases))
	}
	if report.Phases[0].Name != "analyze" || report.Phases[0].Note != "a.js" {
		t.Fatalf("unexpected first phase: %+v", report.Phases[0])
	}
	if report.Phases[0].DurationMS != 2 || report.TotalMS != 4 {
		t.Fatalf("unexpected durations: %+v", report)
	}
	summary := timer.Summary()
	if !strings.Contains(summary, "analyze") || !strings.Contains(summary, "// a.js") || !strings.Contains(summary, "total") {
		t.Fatalf("unexpected summary:\n%s", summary)
	}
}

func TestTimerEmptyReport(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("expected zero report, got %+v", r)
	}
}

func TestTimerLogAttr(t *testing.T) {
	timer := NewTimer()
	timer.now = fakeClock(time.Millisecond)
	timer.End(timer.Begin("normalize"), "")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("done", timer.LogAttr())
	out := buf.String()
	if !strings.Contains(out, "timings.normalize=1ms") || !strings.Contains(out, "timings.total=1ms") {
		t.Fatalf("unexpected log output %q", out)
	}
}
