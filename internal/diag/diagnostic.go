package diag

// Position is a 1-based line/column pair.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a span inside a single file. End.Column is inclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Diagnostic struct {
	File     string
	Range    Range
	Message  string
	Severity Severity
}

// Entry is one Normalize result, keyed by the file it belongs to.
type Entry struct {
	File       string
	Diagnostic Diagnostic
}
