package refresh

import (
	"context"
	"sync"
)

// EventSource is the editor side of the trigger.
type EventSource interface {
	// ActiveDocument returns the focused document, or nil.
	ActiveDocument() *Document
	// OnActiveDocumentChanged subscribes fn; doc is nil when focus leaves
	// all documents. The returned func unsubscribes.
	OnActiveDocumentChanged(fn func(doc *Document)) (dispose func())
	// OnDocumentSaved subscribes fn. The returned func unsubscribes.
	OnDocumentSaved(fn func(doc *Document)) (dispose func())
}

// Bind subscribes t to src and refreshes the currently active document, if
// any. Saving any document refreshes the active one. The returned func
// disposes every subscription.
func (t *Trigger) Bind(ctx context.Context, src EventSource) (dispose func()) {
	if doc := src.ActiveDocument(); doc != nil {
		t.OnRefreshRequested(ctx, doc)
	}
	disposers := []func(){
		src.OnActiveDocumentChanged(func(doc *Document) {
			t.OnRefreshRequested(ctx, doc)
		}),
		src.OnDocumentSaved(func(*Document) {
			if active := src.ActiveDocument(); active != nil {
				t.OnRefreshRequested(ctx, active)
			}
		}),
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, d := range disposers {
				d()
			}
		})
	}
}
