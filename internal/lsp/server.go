package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"flowdiag/internal/completion"
	"flowdiag/internal/flow"
	"flowdiag/internal/logging"
	"flowdiag/internal/publish"
	"flowdiag/internal/refresh"
	"flowdiag/internal/version"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// MethodDidChangeActiveDocument is the client notification sent when editor
// focus moves to another document, or to none.
const MethodDidChangeActiveDocument = "flowdiag/didChangeActiveDocument"

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Analyzer  flow.Analyzer
	Completer flow.Completer
	// Extensions are the analyzable file extensions; defaults to .js.
	Extensions   []string
	Debounce     time.Duration
	DropStale    bool
	SnippetStyle completion.Style
	// Source labels published diagnostics; defaults to "flow".
	Source string
	Logger *slog.Logger
	// LevelVar, when set, is raised to debug by the flowdiag.trace setting.
	LevelVar *slog.LevelVar
	// LoadWorkspace, when set, is called with the root the client reports in
	// initialize. Its settings replace the launch settings above.
	LoadWorkspace func(root string) (WorkspaceSettings, error)
}

// WorkspaceSettings are the per-workspace parts of ServerOptions.
type WorkspaceSettings struct {
	Analyzer     flow.Analyzer
	Completer    flow.Completer
	Extensions   []string
	SnippetStyle completion.Style
	Source       string
}

// Server handles stdio JSON-RPC for flowdiag.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	mu     sync.Mutex

	openDocs          map[string]string
	versions          map[string]int
	workspaceRoot     string
	shutdownRequested bool

	hub          *refresh.Hub
	trigger      *refresh.Trigger
	publisher    *publish.Publisher
	completer    flow.Completer
	snippetStyle completion.Style
	source       string
	log          *slog.Logger
	levelVar     *slog.LevelVar
	baseLevel    slog.Level
	loadWS       func(root string) (WorkspaceSettings, error)

	baseCtx context.Context
	cancel  context.CancelFunc
	unbind  func()
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) (*Server, error) {
	if opts.Analyzer == nil {
		return nil, errors.New("lsp: analyzer is required")
	}
	log := logging.OrDiscard(opts.Logger).With("component", "lsp")
	s := &Server{
		in:           bufio.NewReader(in),
		out:          bufio.NewWriter(out),
		openDocs:     make(map[string]string),
		versions:     make(map[string]int),
		hub:          refresh.NewHub(),
		completer:    opts.Completer,
		snippetStyle: opts.SnippetStyle,
		source:       sourceOrDefault(opts.Source),
		log:          log,
		levelVar:     opts.LevelVar,
		loadWS:       opts.LoadWorkspace,
	}
	if s.levelVar != nil {
		s.baseLevel = s.levelVar.Level()
	}
	s.publisher = publish.New(publish.Options{
		Sink:   &diagnosticSink{server: s},
		Logger: opts.Logger,
	})
	trigger, err := refresh.New(refresh.Options{
		Analyzer:   opts.Analyzer,
		Publisher:  s.publisher,
		Extensions: opts.Extensions,
		Debounce:   opts.Debounce,
		DropStale:  opts.DropStale,
		Logger:     opts.Logger,
		OnResult: func(doc *refresh.Document, outcome refresh.Outcome, err error) {
			if err != nil {
				s.logMessage(messageTypeError, fmt.Sprintf("flow diagnostics for %s failed: %v", doc.Path, err))
			}
		},
	})
	if err != nil {
		return nil, err
	}
	s.trigger = trigger
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	s.unbind = s.trigger.Bind(s.baseCtx, s.hub)
	return s, nil
}

func sourceOrDefault(source string) string {
	if source == "" {
		return "flow"
	}
	return source
}

// Publisher exposes the server's published diagnostics.
func (s *Server) Publisher() *publish.Publisher {
	return s.publisher
}

// Run serves LSP requests until exit or end of input.
func (s *Server) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()
	defer s.close()
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.log.Warn("failed to parse message", "err", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

// close stops background work and waits for in-flight refreshes.
func (s *Server) close() {
	s.unbind()
	s.cancel()
	s.trigger.Wait()
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		s.mu.Lock()
		requested := s.shutdownRequested
		s.mu.Unlock()
		if requested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case MethodDidChangeActiveDocument:
		return s.handleDidChangeActiveDocument(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	root := ""
	if params.RootURI != "" {
		root = uriToPath(params.RootURI)
	}
	if root == "" && params.RootPath != "" {
		root = canonicalPath(params.RootPath)
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()
	s.log.Info("initialize", "root", root)
	loadErr := s.loadWorkspace(root)

	var caps serverCapabilities
	caps.TextDocumentSync = textDocumentSyncOptions{
		OpenClose: true,
		Change:    2,
		Save:      saveOptions{IncludeText: true},
	}
	if completer, _ := s.completion(); completer != nil {
		caps.CompletionProvider = &completionOptions{TriggerCharacters: []string{"."}}
	}
	if err := s.sendResponse(msg.ID, initializeResult{
		Capabilities: caps,
		ServerInfo:   serverInfo{Name: "flowdiag", Version: version.Plain()},
	}); err != nil {
		return err
	}
	if loadErr != nil {
		s.logMessage(messageTypeWarning, fmt.Sprintf("workspace settings for %s not loaded: %v", root, loadErr))
	}
	// Clients may name the focused document up front so the first
	// diagnostics do not wait for a focus change.
	var init initializationOptions
	if len(params.InitializationOptions) > 0 && json.Unmarshal(params.InitializationOptions, &init) == nil && init.ActiveDocument != "" {
		if path := uriToPath(init.ActiveDocument); path != "" {
			s.hub.SetActive(&refresh.Document{Path: path})
		}
	}
	return nil
}

// loadWorkspace applies the settings of the workspace at root. On error the
// launch settings stay in effect.
func (s *Server) loadWorkspace(root string) error {
	if s.loadWS == nil || root == "" {
		return nil
	}
	ws, err := s.loadWS(root)
	if err != nil {
		s.log.Warn("workspace settings not loaded", "root", root, "err", err)
		return err
	}
	s.trigger.Reconfigure(ws.Analyzer, ws.Extensions)
	s.mu.Lock()
	if ws.Completer != nil {
		s.completer = ws.Completer
	}
	s.snippetStyle = ws.SnippetStyle
	s.source = sourceOrDefault(ws.Source)
	s.mu.Unlock()
	s.log.Debug("workspace settings loaded", "root", root, "source", ws.Source, "extensions", ws.Extensions)
	return nil
}

func (s *Server) completion() (flow.Completer, completion.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completer, s.snippetStyle
}

func (s *Server) diagnosticSource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// WorkspaceRoot returns the root reported by the client in initialize.
func (s *Server) WorkspaceRoot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceRoot
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.unbind()
	s.trigger.Wait()
	s.publisher.Clear()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	s.mu.Lock()
	s.openDocs[path] = params.TextDocument.Text
	s.versions[path] = params.TextDocument.Version
	s.mu.Unlock()
	s.hub.SetActive(&refresh.Document{Path: path})
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	s.mu.Lock()
	s.openDocs[path] = applyChanges(s.openDocs[path], params.ContentChanges)
	s.versions[path] = params.TextDocument.Version
	s.mu.Unlock()
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	if params.Text != nil {
		s.mu.Lock()
		s.openDocs[path] = *params.Text
		s.mu.Unlock()
	}
	s.hub.Saved(&refresh.Document{Path: path})
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.openDocs, path)
	delete(s.versions, path)
	s.mu.Unlock()
	s.hub.ClearActiveIf(path)
	return nil
}

func (s *Server) handleDidChangeActiveDocument(msg *rpcMessage) error {
	var params activeDocumentParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return err
		}
	}
	if params.TextDocument == nil {
		s.hub.SetActive(nil)
		return nil
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		s.hub.SetActive(nil)
		return nil
	}
	s.hub.SetActive(&refresh.Document{Path: path})
	return nil
}

func (s *Server) documentText(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.openDocs[path]
	return text, ok
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

const (
	messageTypeError   = 1
	messageTypeWarning = 2
)

// logMessage mirrors a message into the client's output channel.
func (s *Server) logMessage(kind int, text string) {
	if err := s.sendNotification("window/logMessage", map[string]any{"type": kind, "message": text}); err != nil {
		s.log.Warn("failed to send log message", "err", err)
	}
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}
