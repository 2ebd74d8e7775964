package publish

import (
	"slices"
	"sync/atomic"

	"flowdiag/internal/diag"
)

// Set is an immutable snapshot of published diagnostics. A disposed set stays
// readable for callers that still hold it; it is simply no longer live.
type Set struct {
	id       uint64
	files    []string
	byFile   map[string][]diag.Diagnostic
	count    int
	disposed atomic.Bool
}

func newSet(id uint64, m *diag.FileMap) *Set {
	s := &Set{
		id:     id,
		byFile: make(map[string][]diag.Diagnostic, m.Len()),
	}
	for _, file := range m.Files() {
		list := slices.Clone(m.Get(file))
		if len(list) == 0 {
			continue
		}
		s.files = append(s.files, file)
		s.byFile[file] = list
		s.count += len(list)
	}
	return s
}

// ID increases by one with every publish. The initial empty set has ID 0.
func (s *Set) ID() uint64 { return s.id }

// Files returns the files with diagnostics in first-seen order.
func (s *Set) Files() []string {
	return slices.Clone(s.files)
}

// Get returns a copy of the diagnostics for file.
func (s *Set) Get(file string) []diag.Diagnostic {
	return slices.Clone(s.byFile[file])
}

// Has reports whether file has diagnostics in this set.
func (s *Set) Has(file string) bool {
	_, ok := s.byFile[file]
	return ok
}

// Len returns the number of files.
func (s *Set) Len() int {
	return len(s.files)
}

// Count returns the number of diagnostics.
func (s *Set) Count() int {
	return s.count
}

// Disposed reports whether the set has been replaced and released.
func (s *Set) Disposed() bool { return s.disposed.Load() }

func (s *Set) dispose() {
	s.disposed.Store(true)
}
