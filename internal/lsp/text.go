package lsp

import "unicode/utf8"

// applyChanges applies incremental or full content changes in order.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := max(offsetForPosition(text, change.Range.End), start)
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// offsetForPosition maps an LSP position, whose character is counted in
// UTF-16 code units, to a byte offset clamped to the line and the text.
func offsetForPosition(text string, pos position) int {
	i := 0
	for line := uint32(0); line < pos.Line; line++ {
		for i < len(text) && text[i] != '\n' {
			i++
		}
		if i >= len(text) {
			return len(text)
		}
		i++
	}
	var units uint32
	for i < len(text) && text[i] != '\n' {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := uint32(1)
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}
