package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"flowdiag/internal/diag"
)

type palette struct {
	path    *color.Color
	err     *color.Color
	warning *color.Color
	info    *color.Color
	gutter  *color.Color
	caret   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		path:    color.New(color.Bold),
		err:     color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		gutter:  color.New(color.FgBlue),
		caret:   color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.path, p.err, p.warning, p.info, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warning
	}
	return p.info
}

// Pretty writes diagnostics for humans:
//
//	path:line:col: SEVERITY: first message line
//	    further message lines
//	   3 | source line
//	     |     ^~~~
//
// followed by a summary line.
func Pretty(w io.Writer, files *diag.FileMap, opts Options) error {
	pal := newPalette(opts.Color)
	src := newSourceCache(opts)
	var errs, warnings, printed int
	for _, file := range files.Files() {
		for _, d := range files.Get(file) {
			switch d.Severity {
			case diag.SevError:
				errs++
			case diag.SevWarning:
				warnings++
			}
			if opts.Max > 0 && printed >= opts.Max {
				continue
			}
			printed++
			if err := writePretty(w, pal, src, file, d, opts); err != nil {
				return err
			}
		}
	}
	if hidden := files.Count() - printed; hidden > 0 {
		if _, err := fmt.Fprintf(w, "... and %d more diagnostics\n", hidden); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, summary(errs, warnings))
	return err
}

func writePretty(w io.Writer, pal palette, src *sourceCache, file string, d diag.Diagnostic, opts Options) error {
	first, rest, _ := strings.Cut(d.Message, "\n")
	var b strings.Builder
	b.WriteString(pal.path.Sprintf("%s:%d:%d:", opts.displayPath(file), d.Range.Start.Line, d.Range.Start.Column))
	b.WriteByte(' ')
	b.WriteString(pal.severity(d.Severity).Sprint(d.Severity.String()))
	b.WriteString(": ")
	b.WriteString(first)
	b.WriteByte('\n')
	if rest != "" {
		for _, line := range strings.Split(rest, "\n") {
			if line == "" {
				b.WriteByte('\n')
				continue
			}
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if opts.Context {
		if line, ok := src.line(file, d.Range.Start.Line); ok {
			writeContext(&b, pal, line, d.Range)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeContext prints line with a gutter and an underline from the start
// column to the inclusive end column, or to the end of the line when the
// range spans several lines.
func writeContext(b *strings.Builder, pal palette, line string, r diag.Range) {
	runes := []rune(strings.TrimRight(line, "\r"))
	gutter := fmt.Sprintf("%4d | ", r.Start.Line)
	blank := strings.Repeat(" ", len(gutter)-2) + "| "

	start := clamp(r.Start.Column-1, 0, len(runes))
	end := len(runes)
	if r.End.Line == r.Start.Line {
		end = clamp(r.End.Column, start, len(runes))
	}

	b.WriteString(pal.gutter.Sprint(gutter))
	b.WriteString(string(runes))
	b.WriteByte('\n')
	b.WriteString(pal.gutter.Sprint(blank))
	b.WriteString(padding(runes[:start]))
	b.WriteString(pal.caret.Sprint(underline(runewidth.StringWidth(string(runes[start:end])))))
	b.WriteByte('\n')
}

// padding reproduces the layout of prefix in spaces, keeping tabs so the
// underline lines up with the source in any tab width.
func padding(prefix []rune) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func underline(width int) string {
	if width <= 1 {
		return "^"
	}
	return "^" + strings.Repeat("~", width-1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func summary(errs, warnings int) string {
	if errs == 0 && warnings == 0 {
		return "No errors!"
	}
	return fmt.Sprintf("%s, %s", plural(errs, "error"), plural(warnings, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

type sourceCache struct {
	opts  Options
	lines map[string][]string
}

func newSourceCache(opts Options) *sourceCache {
	return &sourceCache{opts: opts, lines: make(map[string][]string)}
}

func (c *sourceCache) line(file string, n int) (string, bool) {
	lines, ok := c.lines[file]
	if !ok {
		data, err := c.opts.readFile(file)
		if err == nil {
			lines = strings.Split(string(data), "\n")
		}
		c.lines[file] = lines
	}
	if n < 1 || n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}
