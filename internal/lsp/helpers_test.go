package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"flowdiag/internal/flow"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]byte(nil), b.buf.Bytes()...)
	b.buf.Reset()
	return out
}

type fakeFlow struct {
	mu          sync.Mutex
	calls       []string
	reports     map[string]*flow.Report
	err         error
	suggestions []flow.Suggestion
	lastReq     flow.AutocompleteRequest
}

func (f *fakeFlow) FindDiagnostics(ctx context.Context, path string) (*flow.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	return f.reports[path], f.err
}

func (f *fakeFlow) Autocomplete(ctx context.Context, req flow.AutocompleteRequest) ([]flow.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	return f.suggestions, f.err
}

func (f *fakeFlow) setReport(path string, r *flow.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reports == nil {
		f.reports = make(map[string]*flow.Report)
	}
	f.reports[path] = r
}

func (f *fakeFlow) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestServer(t *testing.T, fake *fakeFlow, opts ServerOptions) (*Server, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	opts.Analyzer = fake
	if opts.Completer == nil {
		opts.Completer = fake
	}
	server, err := NewServer(bytes.NewReader(nil), out, opts)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(server.close)
	return server, out
}

// tempPath returns a canonical path for name inside a fresh directory.
func tempPath(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("// @flow\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return canonicalPath(path)
}

func call(t *testing.T, s *Server, method string, params any) {
	t.Helper()
	callID(t, s, nil, method, params)
}

func callID(t *testing.T, s *Server, id json.RawMessage, method string, params any) {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal %s params: %v", method, err)
		}
		raw = data
	}
	if err := s.handleMessage(&rpcMessage{JSONRPC: "2.0", ID: id, Method: method, Params: raw}); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func readAll(t *testing.T, data []byte) []rpcMessage {
	t.Helper()
	reader := bufio.NewReader(bytes.NewReader(data))
	var msgs []rpcMessage
	for {
		payload, err := readMessage(reader)
		if errors.Is(err, io.EOF) {
			return msgs
		}
		if err != nil {
			t.Fatalf("read message: %v", err)
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		msgs = append(msgs, msg)
	}
}

func publishes(t *testing.T, msgs []rpcMessage) []publishDiagnosticsParams {
	t.Helper()
	var out []publishDiagnosticsParams
	for _, msg := range msgs {
		if msg.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params publishDiagnosticsParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			t.Fatalf("decode publish params: %v", err)
		}
		out = append(out, params)
	}
	return out
}

func twoFileReport(a, b string) *flow.Report {
	return &flow.Report{Messages: []flow.Message{{
		Level: "warning",
		Components: []flow.MessageComponent{
			{Descr: flow.Descr("string"), Range: &flow.Range{File: a, Start: flow.Position{Line: 2, Column: 3}, End: flow.Position{Line: 2, Column: 6}}},
			{Descr: flow.Descr("is incompatible with")},
			{Descr: flow.Descr("number"), Range: &flow.Range{File: b, Start: flow.Position{Line: 7, Column: 1}, End: flow.Position{Line: 7, Column: 4}}},
		},
	}}}
}
