// Package completion maps Flow autocomplete suggestions to editor completion
// items.
package completion

import (
	"fmt"
	"regexp"
	"strings"

	"flowdiag/internal/flow"
)

// Kind is an LSP CompletionItemKind.
type Kind int

const (
	KindFunction Kind = 3
	KindVariable Kind = 6
	KindClass    Kind = 7
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindVariable:
		return "variable"
	case KindClass:
		return "class"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// InsertFormat is an LSP InsertTextFormat.
type InsertFormat int

const (
	FormatPlainText InsertFormat = 1
	FormatSnippet   InsertFormat = 2
)

// Style selects the placeholder syntax written into function snippets.
type Style uint8

const (
	// StyleLSP keeps ${n:name} tab stops and appends the final $0 stop.
	StyleLSP Style = iota
	// StyleLegacy writes {{name}} placeholders followed by an empty {{}}
	// stop, for editors that predate LSP snippets.
	StyleLegacy
)

func (s Style) String() string {
	if s == StyleLegacy {
		return "legacy"
	}
	return "lsp"
}

// ParseStyle parses "lsp" or "legacy". Empty means StyleLSP.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lsp":
		return StyleLSP, nil
	case "legacy":
		return StyleLegacy, nil
	}
	return StyleLSP, fmt.Errorf("unknown snippet style %q (must be lsp or legacy)", name)
}

// Item is one completion entry.
type Item struct {
	Label            string       `json:"label"`
	Detail           string       `json:"detail,omitempty"`
	Kind             Kind         `json:"kind"`
	InsertText       string       `json:"insertText,omitempty"`
	InsertTextFormat InsertFormat `json:"insertTextFormat,omitempty"`
}

// KindOf classifies a suggestion: functions by type, classes by Flow's
// "[class: " description marker, everything else as a variable.
func KindOf(typ, description string) Kind {
	if typ == "function" {
		return KindFunction
	}
	if strings.Contains(description, "[class: ") {
		return KindClass
	}
	return KindVariable
}

var tabStopOpen = regexp.MustCompile(`\$\{\d+:`)

// RewriteSnippet converts a ${n:name} snippet into style.
func RewriteSnippet(snippet string, style Style) string {
	if style == StyleLegacy {
		out := tabStopOpen.ReplaceAllString(snippet, "{{")
		out = strings.ReplaceAll(out, "}", "}}")
		return out + "{{}}"
	}
	return snippet + "$0"
}

// Items converts suggestions in order.
func Items(suggestions []flow.Suggestion, style Style) []Item {
	items := make([]Item, 0, len(suggestions))
	for _, s := range suggestions {
		item := Item{
			Label:  s.DisplayText,
			Detail: s.Description,
			Kind:   KindOf(s.Type, s.Description),
		}
		if item.Kind == KindFunction && s.Snippet != "" {
			item.InsertText = RewriteSnippet(s.Snippet, style)
			item.InsertTextFormat = FormatPlainText
			if style == StyleLSP {
				item.InsertTextFormat = FormatSnippet
			}
		}
		items = append(items, item)
	}
	return items
}
