package refresh

import (
	"slices"
	"sync"
)

// Hub is an EventSource driven by explicit calls, for hosts such as the LSP
// server that learn about focus and saves from a protocol.
type Hub struct {
	mu      sync.Mutex
	active  *Document
	nextID  int
	changed map[int]func(*Document)
	saved   map[int]func(*Document)
}

var _ EventSource = (*Hub)(nil)

// NewHub returns a Hub with no active document.
func NewHub() *Hub {
	return &Hub{
		changed: make(map[int]func(*Document)),
		saved:   make(map[int]func(*Document)),
	}
}

// ActiveDocument implements EventSource.
func (h *Hub) ActiveDocument() *Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil
	}
	doc := *h.active
	return &doc
}

// OnActiveDocumentChanged implements EventSource.
func (h *Hub) OnActiveDocumentChanged(fn func(*Document)) func() {
	return h.subscribe(h.changed, fn)
}

// OnDocumentSaved implements EventSource.
func (h *Hub) OnDocumentSaved(fn func(*Document)) func() {
	return h.subscribe(h.saved, fn)
}

func (h *Hub) subscribe(into map[int]func(*Document), fn func(*Document)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	into[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(into, id)
		h.mu.Unlock()
	}
}

// SetActive records doc as the active document and notifies subscribers.
// A nil doc means no document has focus.
func (h *Hub) SetActive(doc *Document) {
	h.mu.Lock()
	if doc != nil {
		d := *doc
		h.active = &d
	} else {
		h.active = nil
	}
	fns := h.snapshot(h.changed)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(doc)
	}
}

// ClearActiveIf drops the active document if it is path, without notifying.
func (h *Hub) ClearActiveIf(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active != nil && h.active.Path == path {
		h.active = nil
		return true
	}
	return false
}

// Saved notifies save subscribers.
func (h *Hub) Saved(doc *Document) {
	h.mu.Lock()
	fns := h.snapshot(h.saved)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(doc)
	}
}

func (h *Hub) snapshot(m map[int]func(*Document)) []func(*Document) {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(*Document), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m[id])
	}
	return fns
}
