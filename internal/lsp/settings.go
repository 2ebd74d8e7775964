package lsp

import (
	"encoding/json"
	"log/slog"
)

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.log.Warn("ignoring malformed settings", "err", err)
		return
	}
	if settings.FlowDiag.Trace == nil || s.levelVar == nil {
		return
	}
	if *settings.FlowDiag.Trace {
		s.levelVar.Set(slog.LevelDebug)
	} else {
		s.levelVar.Set(s.baseLevel)
	}
	s.log.Info("trace setting changed", "trace", *settings.FlowDiag.Trace)
}
