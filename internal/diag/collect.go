package diag

// FileMap groups diagnostics by file. Files keep the order in which their
// first diagnostic was added; diagnostics keep insertion order.
type FileMap struct {
	files OrderedMap[[]Diagnostic]
	count int
}

// Collect groups entries by file. Identical diagnostics from different
// messages are all kept.
func Collect(entries []Entry) *FileMap {
	m := &FileMap{}
	for _, e := range entries {
		m.add(e.File, e.Diagnostic)
	}
	return m
}

// Add appends d under d.File.
func (m *FileMap) Add(d Diagnostic) {
	m.add(d.File, d)
}

func (m *FileMap) add(file string, d Diagnostic) {
	m.files.Update(file, func(old []Diagnostic) []Diagnostic {
		return append(old, d)
	})
	m.count++
}

// Merge appends every diagnostic of other, file by file.
func (m *FileMap) Merge(other *FileMap) {
	if other == nil {
		return
	}
	for _, file := range other.Files() {
		for _, d := range other.Get(file) {
			m.add(file, d)
		}
	}
}

// Files returns the files in first-seen order. Callers must not modify it.
func (m *FileMap) Files() []string {
	if m == nil {
		return nil
	}
	return m.files.Keys()
}

// Get returns the diagnostics for file. Callers must not modify the slice.
func (m *FileMap) Get(file string) []Diagnostic {
	if m == nil {
		return nil
	}
	list, _ := m.files.Get(file)
	return list
}

// Len returns the number of files.
func (m *FileMap) Len() int {
	if m == nil {
		return 0
	}
	return m.files.Len()
}

// Count returns the number of diagnostics across all files.
func (m *FileMap) Count() int {
	if m == nil {
		return 0
	}
	return m.count
}

// HasErrors reports whether any diagnostic has Severity >= SevError.
func (m *FileMap) HasErrors() bool {
	for _, file := range m.Files() {
		for _, d := range m.Get(file) {
			if d.Severity >= SevError {
				return true
			}
		}
	}
	return false
}
