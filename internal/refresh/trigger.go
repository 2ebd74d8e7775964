// Package refresh runs the analyze, normalize, collect and publish pipeline
// in response to editor events.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"flowdiag/internal/diag"
	"flowdiag/internal/flow"
	"flowdiag/internal/logging"
	"flowdiag/internal/observ"
	"flowdiag/internal/publish"
)

// Document is the editor document a refresh is about.
type Document struct {
	Path string
}

// Outcome says how a refresh ended.
type Outcome uint8

const (
	OutcomePublished Outcome = iota
	// OutcomeNoDocument means there was no document to check.
	OutcomeNoDocument
	// OutcomeUnsupported means the document type is not analyzed.
	OutcomeUnsupported
	// OutcomeFailed means analysis or a pipeline stage failed; nothing was published.
	OutcomeFailed
	// OutcomeSuperseded means a newer refresh made this one obsolete.
	OutcomeSuperseded
)

func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeNoDocument:
		return "no-document"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeFailed:
		return "failed"
	case OutcomeSuperseded:
		return "superseded"
	}
	return "unknown"
}

// DefaultExtensions are the file extensions analyzed when none are configured.
var DefaultExtensions = []string{".js"}

// Options configures a Trigger.
type Options struct {
	Analyzer  flow.Analyzer
	Publisher *publish.Publisher
	// Extensions lists analyzable file extensions including the dot.
	Extensions []string
	// Debounce coalesces asynchronous requests arriving within the window;
	// the last document wins. Zero runs every request.
	Debounce time.Duration
	// DropStale discards results of refreshes older than one already
	// published. Without it the last refresh to finish wins.
	DropStale bool
	Logger    *slog.Logger
	// OnResult, if set, is called after every refresh.
	OnResult func(doc *Document, outcome Outcome, err error)
}

// Trigger reacts to refresh requests. It is safe for concurrent use.
type Trigger struct {
	backend    atomic.Pointer[backend]
	publisher  *publish.Publisher
	debounce   time.Duration
	dropStale  bool
	log        *slog.Logger
	onResult   func(*Document, Outcome, error)

	wg            sync.WaitGroup
	mu            sync.Mutex
	debounceTimer *time.Timer
	seq           atomic.Uint64
}

// New constructs a Trigger.
func New(opts Options) (*Trigger, error) {
	if opts.Analyzer == nil {
		return nil, errors.New("refresh: analyzer is required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("refresh: publisher is required")
	}
	if opts.Debounce < 0 {
		return nil, fmt.Errorf("refresh: negative debounce %s", opts.Debounce)
	}
	t := &Trigger{
		publisher: opts.Publisher,
		debounce:  opts.Debounce,
		dropStale: opts.DropStale,
		log:       logging.OrDiscard(opts.Logger).With("component", "refresh"),
		onResult:  opts.OnResult,
	}
	t.backend.Store(&backend{analyzer: opts.Analyzer, extensions: extensionSet(opts.Extensions)})
	return t, nil
}

// backend is the part of a Trigger that Reconfigure replaces as a whole.
type backend struct {
	analyzer   flow.Analyzer
	extensions map[string]struct{}
}

func (b *backend) supports(path string) bool {
	_, ok := b.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func extensionSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// Reconfigure swaps the analyzer and the extension filter for refreshes that
// start afterwards. A nil analyzer keeps the current one; empty extensions
// mean DefaultExtensions.
func (t *Trigger) Reconfigure(analyzer flow.Analyzer, extensions []string) {
	next := &backend{analyzer: analyzer, extensions: extensionSet(extensions)}
	if next.analyzer == nil {
		next.analyzer = t.backend.Load().analyzer
	}
	t.backend.Store(next)
}

// Supports reports whether path has an analyzable extension.
func (t *Trigger) Supports(path string) bool {
	return t.backend.Load().supports(path)
}

// OnRefreshRequested starts a refresh in the background and returns at once.
func (t *Trigger) OnRefreshRequested(ctx context.Context, doc *Document) {
	if t.debounce <= 0 {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			_, _ = t.Refresh(ctx, doc)
		}()
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.debounceTimer != nil && t.debounceTimer.Stop() {
		t.wg.Done()
	}
	t.wg.Add(1)
	t.debounceTimer = time.AfterFunc(t.debounce, func() {
		defer t.wg.Done()
		_, _ = t.Refresh(ctx, doc)
	})
}

// Wait blocks until every background refresh, including debounced ones, has
// finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}

// Refresh runs one refresh synchronously. A non-nil error is returned only
// with OutcomeFailed; the previous diagnostics then stay published.
func (t *Trigger) Refresh(ctx context.Context, doc *Document) (outcome Outcome, err error) {
	defer func() {
		if t.onResult != nil {
			t.onResult(doc, outcome, err)
		}
	}()
	if doc == nil || doc.Path == "" {
		t.log.Debug("refresh skipped", "reason", OutcomeNoDocument)
		return OutcomeNoDocument, nil
	}
	b := t.backend.Load()
	if !b.supports(doc.Path) {
		t.log.Debug("refresh skipped", "reason", OutcomeUnsupported, "file", doc.Path)
		return OutcomeUnsupported, nil
	}

	seq := t.seq.Add(1)
	timer := observ.NewTimer()
	files, err := t.run(ctx, b.analyzer, seq, doc, timer)
	if err != nil {
		t.log.Error("refresh failed", "file", doc.Path, "seq", seq, "err", err)
		return OutcomeFailed, err
	}
	if files == nil {
		t.log.Debug("refresh superseded", "file", doc.Path, "seq", seq)
		return OutcomeSuperseded, nil
	}
	t.log.Debug("refresh done", "file", doc.Path, "seq", seq, "files", *files, timer.LogAttr())
	return OutcomePublished, nil
}

// run returns the number of published files, or nil when the result was
// dropped as stale.
func (t *Trigger) run(ctx context.Context, an flow.Analyzer, seq uint64, doc *Document, timer *observ.Timer) (files *int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panic: %v", r)
		}
	}()
	if t.superseded(seq) {
		return nil, nil
	}

	idx := timer.Begin("analyze")
	report, err := an.FindDiagnostics(ctx, doc.Path)
	timer.End(idx, doc.Path)
	if err != nil {
		return nil, err
	}

	idx = timer.Begin("normalize")
	entries := diag.Normalize(report)
	timer.End(idx, "")

	idx = timer.Begin("collect")
	byFile := diag.Collect(entries)
	timer.End(idx, "")

	idx = timer.Begin("publish")
	defer timer.End(idx, "")
	if t.dropStale {
		if t.superseded(seq) {
			return nil, nil
		}
		set, ok := t.publisher.PublishSeq(seq, byFile)
		if !ok {
			return nil, nil
		}
		n := set.Len()
		return &n, nil
	}
	n := t.publisher.Publish(byFile).Len()
	return &n, nil
}

func (t *Trigger) superseded(seq uint64) bool {
	return t.dropStale && seq < t.seq.Load()
}
