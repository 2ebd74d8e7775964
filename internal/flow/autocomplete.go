package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Suggestion is a single autocomplete candidate.
type Suggestion struct {
	DisplayText string
	Description string
	Type        string
	Snippet     string
}

// AutocompleteRequest describes a completion point. Line and Column are
// 0-based, as editors report them.
type AutocompleteRequest struct {
	Path     string
	Contents string
	Line     int
	Column   int
	Prefix   string
}

type autocompleteOutput struct {
	Result []autocompleteEntry `json:"result"`
}

type autocompleteEntry struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	FuncDetails *funcDetails `json:"func_details,omitempty"`
}

type funcDetails struct {
	Params     []funcParam `json:"params"`
	ReturnType string      `json:"return_type"`
}

type funcParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ParseAutocomplete decodes `flow autocomplete --json` output and keeps the
// entries matching prefix.
func ParseAutocomplete(data []byte, prefix string) ([]Suggestion, error) {
	var out autocompleteOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	suggestions := make([]Suggestion, 0, len(out.Result))
	for _, entry := range out.Result {
		if !matchesPrefix(entry.Name, prefix) {
			continue
		}
		suggestions = append(suggestions, suggestionFromEntry(entry))
	}
	return suggestions, nil
}

func suggestionFromEntry(entry autocompleteEntry) Suggestion {
	s := Suggestion{
		DisplayText: entry.Name,
		Description: entry.Type,
	}
	if entry.FuncDetails == nil {
		s.Snippet = entry.Name
		return s
	}
	s.Type = "function"
	var b strings.Builder
	b.WriteString(entry.Name)
	b.WriteByte('(')
	for i, p := range entry.FuncDetails.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("${")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte(':')
		b.WriteString(p.Name)
		b.WriteByte('}')
	}
	b.WriteByte(')')
	s.Snippet = b.String()
	return s
}

// "." is what editors send right after a member access; it filters nothing.
func matchesPrefix(name, prefix string) bool {
	if prefix == "" || prefix == "." {
		return true
	}
	return strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix))
}
