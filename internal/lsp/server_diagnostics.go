package lsp

import (
	"errors"
	"math"

	"fortio.org/safecast"

	"flowdiag/internal/diag"
	"flowdiag/internal/publish"
)

// diagnosticSink pushes every published set to the client: each file in the
// new set gets its list, each file that dropped out gets an empty list.
type diagnosticSink struct {
	server *Server
}

func (k *diagnosticSink) Apply(prev, next *publish.Set) error {
	var errs []error
	for _, file := range next.Files() {
		list := k.server.toLSPDiagnostics(next.Get(file))
		if err := k.server.sendPublish(pathToURI(file), list); err != nil {
			errs = append(errs, err)
		}
	}
	for _, file := range prev.Files() {
		if next.Has(file) {
			continue
		}
		if err := k.server.sendPublish(pathToURI(file), nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	s.log.Debug("publishDiagnostics", "uri", uri, "diags", len(list))
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: list,
	})
}

func (s *Server) toLSPDiagnostics(diags []diag.Diagnostic) []lspDiagnostic {
	source := s.diagnosticSource()
	out := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, lspDiagnostic{
			Range:    toLSPRange(d.Range),
			Severity: d.Severity.LSP(),
			Source:   source,
			Message:  d.Message,
		})
	}
	return out
}

// toLSPRange converts 1-based Flow positions to 0-based LSP ones. Flow end
// columns are inclusive and LSP ends are exclusive, so the end column keeps
// its value.
func toLSPRange(r diag.Range) lspRange {
	return lspRange{
		Start: position{Line: toUint32(r.Start.Line - 1), Character: toUint32(r.Start.Column - 1)},
		End:   position{Line: toUint32(r.End.Line - 1), Character: toUint32(r.End.Column)},
	}
}

func toUint32(v int) uint32 {
	n, err := safecast.Conv[uint32](v)
	if err != nil {
		if v < 0 {
			return 0
		}
		return math.MaxUint32
	}
	return n
}
