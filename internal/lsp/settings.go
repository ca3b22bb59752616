package lsp

import (
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"

	"fishls/internal/config"
)

func (s *Server) handleDidChangeConfiguration(req *jsonrpc2.Request) error {
	if req.Params == nil {
		return nil
	}
	var params struct {
		Settings json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		s.logf("didChangeConfiguration: %v", err)
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

// applySettings merges a client settings payload into the live
// configuration. Invalid payloads are logged and leave it unchanged.
func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	prev := s.config.Snapshot()
	next, err := config.ApplySettings(prev, raw)
	if err != nil {
		s.logf("settings: %v", err)
		return
	}
	if next == prev {
		return
	}
	s.config.Set(next)
	s.republishAll(true)
}
