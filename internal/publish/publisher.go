// Package publish holds the single live set of published diagnostics and
// replaces it atomically.
package publish

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"flowdiag/internal/diag"
	"flowdiag/internal/logging"
)

// Sink is the presentation layer. Apply is called after every swap with the
// previous and the new set, in swap order. Files in prev that are missing
// from next must end up showing nothing.
type Sink interface {
	Apply(prev, next *Set) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(prev, next *Set) error

// Apply implements Sink.
func (f SinkFunc) Apply(prev, next *Set) error { return f(prev, next) }

// Options configures a Publisher.
type Options struct {
	Sink   Sink
	Logger *slog.Logger
}

// Publisher owns the live Set. Readers never block; writers are serialized.
type Publisher struct {
	writeMu    sync.Mutex
	current    atomic.Pointer[Set]
	nextID     uint64
	appliedSeq uint64
	sink       Sink
	log        *slog.Logger
}

// New returns a Publisher holding an empty set.
func New(opts Options) *Publisher {
	p := &Publisher{
		sink: opts.Sink,
		log:  logging.OrDiscard(opts.Logger).With("component", "publish"),
	}
	p.current.Store(newSet(0, &diag.FileMap{}))
	return p
}

// Current returns the live set.
func (p *Publisher) Current() *Set {
	return p.current.Load()
}

// Diagnostics returns the live diagnostics for file.
func (p *Publisher) Diagnostics(file string) []diag.Diagnostic {
	return p.current.Load().Get(file)
}

// Publish replaces the live set with one built from m. A nil or empty m
// clears everything.
func (p *Publisher) Publish(m *diag.FileMap) *Set {
	set, _ := p.publish(0, m)
	return set
}

// PublishSeq is Publish for sequenced refreshes: it refuses results whose seq
// is older than one already published and reports whether it published.
func (p *Publisher) PublishSeq(seq uint64, m *diag.FileMap) (*Set, bool) {
	return p.publish(seq, m)
}

// Clear publishes an empty set.
func (p *Publisher) Clear() *Set {
	return p.Publish(nil)
}

func (p *Publisher) publish(seq uint64, m *diag.FileMap) (*Set, bool) {
	if m == nil {
		m = &diag.FileMap{}
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if seq != 0 {
		if seq < p.appliedSeq {
			p.log.Debug("discard stale publish", "seq", seq, "applied", p.appliedSeq)
			return p.current.Load(), false
		}
		p.appliedSeq = seq
	}
	p.nextID++
	next := newSet(p.nextID, m)
	prev := p.current.Swap(next)
	if p.sink != nil {
		if err := p.applySink(prev, next); err != nil {
			p.log.Error("presentation update failed", "set", next.ID(), "err", err)
		}
	}
	prev.dispose()
	p.log.Debug("published", "set", next.ID(), "files", next.Len(), "diagnostics", next.Count())
	return next, true
}

func (p *Publisher) applySink(prev, next *Set) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return p.sink.Apply(prev, next)
}
