package lsp

import (
	"encoding/json"
	"errors"

	"fortio.org/safecast"

	"flowdiag/internal/completion"
	"flowdiag/internal/flow"
)

func (s *Server) handleCompletion(msg *rpcMessage) error {
	completer, style := s.completion()
	if completer == nil {
		return s.sendError(msg.ID, codeMethodNotFound, "completion not enabled")
	}
	var params completionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	path := uriToPath(params.TextDocument.URI)
	text, ok := s.documentText(path)
	if path == "" || !ok {
		return s.sendResponse(msg.ID, completionList{Items: []completionItem{}})
	}
	line, errLine := safecast.Conv[int](params.Position.Line)
	col, errCol := safecast.Conv[int](params.Position.Character)
	if err := errors.Join(errLine, errCol); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "position out of range")
	}

	suggestions, err := completer.Autocomplete(s.baseCtx, flow.AutocompleteRequest{
		Path:     path,
		Contents: text,
		Line:     line,
		Column:   col,
		Prefix:   ".",
	})
	if err != nil {
		s.log.Warn("autocomplete failed", "file", path, "err", err)
		return s.sendError(msg.ID, codeRequestFailed, err.Error())
	}
	items := completion.Items(suggestions, style)
	list := completionList{Items: make([]completionItem, 0, len(items))}
	for _, it := range items {
		list.Items = append(list.Items, completionItem{
			Label:            it.Label,
			Kind:             int(it.Kind),
			Detail:           it.Detail,
			InsertText:       it.InsertText,
			InsertTextFormat: int(it.InsertTextFormat),
		})
	}
	return s.sendResponse(msg.ID, list)
}
