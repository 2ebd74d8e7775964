package diag

import (
	"strconv"
	"strings"

	"flowdiag/internal/flow"
)

// Normalize flattens every message of report into one Entry per file the
// message mentions. A nil report or one without messages yields nothing.
func Normalize(report *flow.Report) []Entry {
	if report == nil || len(report.Messages) == 0 {
		return nil
	}
	var out []Entry
	for i := range report.Messages {
		out = appendMessage(out, &report.Messages[i])
	}
	return out
}

func appendMessage(out []Entry, msg *flow.Message) []Entry {
	var anchors OrderedMap[flow.Range]
	for _, c := range msg.Components {
		if c.Range == nil || c.Range.File == "" {
			continue
		}
		anchors.Put(c.Range.File, *c.Range)
	}
	if anchors.Len() == 0 {
		return out
	}

	text := combinedDescription(msg.Components)
	severity := MapSeverity(msg.Level)
	files := anchors.Keys()
	for _, file := range files {
		anchor, _ := anchors.Get(file)
		message := text
		if others := seeAlso(file, files, &anchors); others != "" {
			message += "\n\nSee also:\n" + others
		}
		out = append(out, Entry{
			File: file,
			Diagnostic: Diagnostic{
				File:     file,
				Range:    fromFlowRange(anchor),
				Message:  message,
				Severity: severity,
			},
		})
	}
	return out
}

// combinedDescription is the primary description followed by the non-empty
// descriptions of the remaining components in parentheses.
func combinedDescription(components []flow.MessageComponent) string {
	if len(components) == 0 {
		return ""
	}
	full := ""
	if components[0].Descr != nil {
		full = *components[0].Descr
	}
	var parts []string
	for _, c := range components[1:] {
		if c.Descr != nil && *c.Descr != "" {
			parts = append(parts, *c.Descr)
		}
	}
	if sub := strings.Join(parts, " "); sub != "" {
		full += " (" + sub + ")"
	}
	return full
}

func seeAlso(self string, files []string, anchors *OrderedMap[flow.Range]) string {
	var b strings.Builder
	for _, other := range files {
		if other == self {
			continue
		}
		anchor, _ := anchors.Get(other)
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(other)
		b.WriteString(" (line: ")
		b.WriteString(strconv.Itoa(anchor.Start.Line))
		b.WriteByte(')')
	}
	return b.String()
}

func fromFlowRange(r flow.Range) Range {
	return Range{
		Start: Position{Line: r.Start.Line, Column: r.Start.Column},
		End:   Position{Line: r.End.Line, Column: r.End.Column},
	}
}
