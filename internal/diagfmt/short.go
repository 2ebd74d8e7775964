package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"flowdiag/internal/diag"
)

// Short writes one line per diagnostic with message newlines flattened.
func Short(w io.Writer, files *diag.FileMap, opts Options) error {
	printed := 0
	for _, file := range files.Files() {
		for _, d := range files.Get(file) {
			if opts.Max > 0 && printed >= opts.Max {
				return nil
			}
			printed++
			msg := strings.ReplaceAll(strings.TrimRight(d.Message, "\n"), "\n", " | ")
			if _, err := fmt.Fprintf(w, "%s:%d:%d: %s: %s\n",
				opts.displayPath(file), d.Range.Start.Line, d.Range.Start.Column,
				strings.ToLower(d.Severity.String()), msg); err != nil {
				return err
			}
		}
	}
	return nil
}
