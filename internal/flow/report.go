package flow

// Position is a 1-based line/column pair as reported by Flow.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a source span inside File. End.Column is inclusive.
type Range struct {
	File  string   `json:"file"`
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// MessageComponent is one fragment of a message. Either field may be absent.
type MessageComponent struct {
	Descr *string `json:"descr,omitempty"`
	Range *Range  `json:"range,omitempty"`
}

// Message is one logical problem. The first component carries the primary
// description, the rest add context and locations.
type Message struct {
	Level      string             `json:"level"`
	Components []MessageComponent `json:"messageComponents"`
}

// Report is the result of one analysis call. A nil *Report means no report.
type Report struct {
	Passed   bool      `json:"passed"`
	Messages []Message `json:"messages"`
}

// Descr returns a pointer to s, for building components in code and tests.
func Descr(s string) *string {
	return &s
}
