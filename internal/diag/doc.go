// Package diag turns Flow reports into per-file diagnostics.
//
// # Purpose
//
//   - Normalize flattens each multi-location Flow message into one Diagnostic
//     per implicated file, with a combined human-readable message.
//   - Collect groups those diagnostics by file, keeping discovery order.
//
// # Scope
//
// Package diag does no IO and knows nothing about editors. Publishing lives in
// internal/publish, rendering in internal/diagfmt and internal/lsp.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - File: path of the file the diagnostic is shown in.
//   - Range: the anchor: the first range of the message that lies in File.
//     Lines and columns are 1-based, End.Column is inclusive, as Flow reports.
//   - Message: primary description, then the other descriptions in
//     parentheses, then a "See also" list naming the other files.
//   - Severity: Info, Warning or Error, see severity.go.
//
// A message that mentions N distinct files yields exactly N diagnostics, one
// per file. A message with no located component yields none.
//
// # Ordering
//
// All orderings are first-seen orderings. Files appear in the order their
// first diagnostic was produced, and diagnostics within a file appear in the
// order messages occur in the report. Nothing is sorted by position.
package diag
