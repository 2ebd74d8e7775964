package diagfmt

import (
	"encoding/json"
	"io"
	"strings"

	"flowdiag/internal/diag"
)

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Severity string     `json:"severity"`
	Message  string     `json:"message"`
	Range    diag.Range `json:"range"`
}

// FileJSON groups the diagnostics of one file.
type FileJSON struct {
	File        string           `json:"file"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

// DiagnosticsOutput is the root of JSON output. Count is the total number of
// diagnostics even when Max truncated Files.
type DiagnosticsOutput struct {
	Files     []FileJSON `json:"files"`
	Count     int        `json:"count"`
	Truncated bool       `json:"truncated,omitempty"`
}

// BuildJSON converts files into the JSON output structure.
func BuildJSON(files *diag.FileMap, opts Options) DiagnosticsOutput {
	out := DiagnosticsOutput{Files: []FileJSON{}, Count: files.Count()}
	printed := 0
	for _, file := range files.Files() {
		entry := FileJSON{File: opts.displayPath(file)}
		for _, d := range files.Get(file) {
			if opts.Max > 0 && printed >= opts.Max {
				out.Truncated = true
				break
			}
			printed++
			entry.Diagnostics = append(entry.Diagnostics, DiagnosticJSON{
				Severity: strings.ToLower(d.Severity.String()),
				Message:  d.Message,
				Range:    d.Range,
			})
		}
		if len(entry.Diagnostics) > 0 {
			out.Files = append(out.Files, entry)
		}
		if out.Truncated {
			break
		}
	}
	return out
}

// JSON writes files as indented JSON.
func JSON(w io.Writer, files *diag.FileMap, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildJSON(files, opts))
}

// Write renders files in format.
func Write(w io.Writer, files *diag.FileMap, format Format, opts Options) error {
	switch format {
	case FormatShort:
		return Short(w, files, opts)
	case FormatJSON:
		return JSON(w, files, opts)
	default:
		return Pretty(w, files, opts)
	}
}
