// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pinnaclelabs/mcpengine/internal/json"
)

// Role distinguishes which end of a connection a Session represents.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// initState is the lifecycle state machine a server-role Session moves
// through: uninitialized -> initializing -> initialized -> terminated. A
// client-role Session skips initializing; either role becomes terminated
// when it closes.
type initState int32

const (
	stateUninitialized initState = iota
	stateInitializing
	stateInitialized
	stateTerminated
)

// pendingRequest is owned by the sending Session for the lifetime of one
// outgoing request: it begins at send and ends on response arrival,
// timeout, cancellation, or transport close.
type pendingRequest struct {
	id       JSONRPCID
	result   chan rpcResult
	progress func(*ProgressNotificationParams)
	cancel   context.CancelFunc
}

type rpcResult struct {
	raw json.RawMessage
	err error
}

// CallOptions configures an outgoing request.
type CallOptions struct {
	// Timeout bounds how long to wait for a response; zero means no
	// timeout beyond ctx's own deadline.
	Timeout time.Duration
	// Progress, if non-nil, is called for every notifications/progress
	// that arrives bearing this request's progress token. Registering a
	// callback causes the engine to attach a progress token (the request
	// id) to params._meta.
	Progress func(*ProgressNotificationParams)
}

// Session is one established, bidirectional JSON-RPC conversation: the
// protocol engine's view of a connection, independent of which transport
// carries it and independent of whether this process is playing the
// client or server role. It owns request-id allocation, response
// correlation, the incoming-method handler registry, and cancellation
// propagation.
type Session struct {
	role Role
	conn Connection

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[JSONRPCID]*pendingRequest
	// cancelFuncs lets an incoming notifications/cancelled stop the
	// context passed to the matching in-flight handler task.
	cancelFuncs map[JSONRPCID]context.CancelFunc
	closed      bool
	closeErr    error

	handlers map[string]Handler

	state           atomic.Int32
	protocolVersion string

	clientCapabilities *ClientCapabilities
	serverCapabilities *ServerCapabilities

	// InitializeParams/Result captured from the handshake, for callers
	// that need to inspect what was negotiated.
	InitializeParams  *InitializeParams
	InitializeResult  *InitializeResult

	logger *slog.Logger
	done   chan struct{}
}

func newSession(role Role, conn Connection, handlers map[string]Handler) *Session {
	return newSessionWithLogger(role, conn, handlers, defaultLogger)
}

func newSessionWithLogger(role Role, conn Connection, handlers map[string]Handler, logger *slog.Logger) *Session {
	if logger == nil {
		logger = defaultLogger
	}
	s := &Session{
		role:        role,
		conn:        conn,
		pending:     make(map[JSONRPCID]*pendingRequest),
		cancelFuncs: make(map[JSONRPCID]context.CancelFunc),
		handlers:    handlers,
		logger:      logger,
		done:        make(chan struct{}),
	}
	if role == RoleClient {
		s.state.Store(int32(stateUninitialized))
	}
	return s
}

// ID returns the transport-level session id, or "" if the transport has
// none (stdio, in-memory).
func (s *Session) ID() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.SessionID()
}

func (s *Session) setState(v initState) { s.state.Store(int32(v)) }
func (s *Session) getState() initState  { return initState(s.state.Load()) }

// run starts the receive loop; it blocks until the connection closes or
// ctx is done. Callers typically invoke this in its own goroutine.
func (s *Session) run(ctx context.Context) error {
	defer close(s.done)
	for {
		tm, err := s.conn.Read(ctx)
		if err != nil {
			s.closeWith(err)
			return err
		}
		s.dispatch(ctx, tm.Message)
	}
}

func (s *Session) dispatch(ctx context.Context, msg JSONRPCMessage) {
	switch m := msg.(type) {
	case *JSONRPCResponse:
		s.completeRequest(m)
	case *JSONRPCRequest:
		go s.handleRequest(ctx, m)
	case *JSONRPCNotification:
		s.handleNotification(ctx, m)
	}
}

func (s *Session) completeRequest(resp *JSONRPCResponse) {
	s.mu.Lock()
	pr, ok := s.pending[resp.ID]
	if ok {
		delete(s.pending, resp.ID)
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("dropping response for unknown request id", "id", resp.ID)
		return
	}
	var res rpcResult
	if resp.Error != nil {
		res.err = resp.Error
	} else {
		res.raw = resp.Result
	}
	pr.result <- res
}

func (s *Session) handleNotification(ctx context.Context, n *JSONRPCNotification) {
	switch n.Method {
	case notificationCancelled:
		var p CancelledParams
		if err := json.Unmarshal(n.Params, &p); err != nil {
			return
		}
		id, err := decodeRequestID(p.RequestID)
		if err != nil {
			return
		}
		s.mu.Lock()
		cancel, ok := s.cancelFuncs[id]
		s.mu.Unlock()
		if ok {
			cancel()
		}
	case notificationProgress:
		var p ProgressNotificationParams
		if err := json.Unmarshal(n.Params, &p); err != nil {
			return
		}
		id, err := decodeRequestID(p.ProgressToken)
		if err != nil {
			return
		}
		s.mu.Lock()
		pr, ok := s.pending[id]
		s.mu.Unlock()
		if ok && pr.progress != nil {
			pr.progress(&p)
		}
	case notificationInitialized:
		s.setState(stateInitialized)
	default:
		if h, ok := s.handlers[n.Method]; ok {
			req := &Request{Session: s, Method: n.Method, Params: n.Params, id: JSONRPCID{}}
			_, _ = h(ctx, req)
		}
	}
}

func (s *Session) handleRequest(ctx context.Context, r *JSONRPCRequest) {
	reqCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFuncs[r.ID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancelFuncs, r.ID)
		s.mu.Unlock()
		cancel()
	}()

	result, err := s.callHandler(reqCtx, r.Method, r.Params, r.ID)
	resp := &JSONRPCResponse{ID: r.ID}
	if err != nil {
		resp.Error = toWireError(err)
	} else {
		raw, merr := json.Marshal(result)
		if merr != nil {
			resp.Error = toWireError(merr)
		} else {
			resp.Result = raw
		}
	}
	_ = s.conn.Write(ctx, resp, WriteOptions{RelatedRequestID: r.ID, RelatedSessionID: s.ID()})
}

func (s *Session) callHandler(ctx context.Context, method string, params json.RawMessage, id JSONRPCID) (any, error) {
	if method == methodPing {
		return struct{}{}, nil
	}
	if s.role == RoleServer && method != methodInitialize && s.getState() == stateUninitialized {
		return nil, ErrNotInitialized
	}
	if h, ok := s.handlers[method]; ok {
		req := &Request{Session: s, Method: method, Params: params, id: id}
		return h(ctx, req)
	}
	return nil, jsonrpc2MethodNotFound(method)
}

// Call issues a request and blocks for the response.
func (s *Session) Call(ctx context.Context, method string, params any, opts CallOptions) (json.RawMessage, error) {
	paramBytes, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	id := newInt64ID(s.nextID.Add(1))

	if opts.Progress != nil {
		paramBytes, err = mergeProgressToken(paramBytes, id.Raw())
		if err != nil {
			return nil, err
		}
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	pr := &pendingRequest{id: id, result: make(chan rpcResult, 1), progress: opts.Progress}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	s.pending[id] = pr
	s.mu.Unlock()

	req := &JSONRPCRequest{ID: id, Method: method, Params: paramBytes}
	if err := s.conn.Write(ctx, req, WriteOptions{RelatedSessionID: s.ID()}); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, &TransportError{Cause: err}
	}

	select {
	case res := <-pr.result:
		return res.raw, res.err
	case <-reqCtx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		_ = s.Notify(ctx, notificationCancelled, &CancelledParams{RequestID: id.Raw(), Reason: "context done"})
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, ErrRequestTimeout
		}
		return nil, ErrCancelled
	}
}

// Notify sends a one-way notification; no response is expected.
func (s *Session) Notify(ctx context.Context, method string, params any) error {
	paramBytes, err := json.Marshal(params)
	if err != nil {
		return err
	}
	n := &JSONRPCNotification{Method: method, Params: paramBytes}
	if err := s.conn.Write(ctx, n, WriteOptions{RelatedSessionID: s.ID()}); err != nil {
		return &TransportError{Cause: err}
	}
	return nil
}

// NotifyProgress sends a notifications/progress to the peer.
func (s *Session) NotifyProgress(ctx context.Context, p *ProgressNotificationParams) error {
	return s.Notify(ctx, notificationProgress, p)
}

// Close terminates the session and its underlying connection.
func (s *Session) Close() error {
	s.closeWith(ErrConnectionClosed)
	return s.conn.Close()
}

func (s *Session) closeWith(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.closeErr = err
	pending := s.pending
	s.pending = make(map[JSONRPCID]*pendingRequest)
	s.mu.Unlock()

	for _, pr := range pending {
		pr.result <- rpcResult{err: ErrConnectionClosed}
	}
	s.setState(stateTerminated)
}

// Done returns a channel closed once the session's receive loop exits.
func (s *Session) Done() <-chan struct{} { return s.done }

func decodeRequestID(v any) (JSONRPCID, error) {
	switch t := v.(type) {
	case string:
		return newStringID(t), nil
	case float64:
		return newInt64ID(int64(t)), nil
	case int64:
		return newInt64ID(t), nil
	default:
		return JSONRPCID{}, fmt.Errorf("mcp: unrecognized request id type %T", v)
	}
}

func jsonrpc2MethodNotFound(method string) error {
	return &JSONRPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
}

func toWireError(err error) *JSONRPCError {
	if we, ok := err.(*JSONRPCError); ok {
		return we
	}
	switch err {
	case ErrNotInitialized, ErrAlreadyInitialized:
		return &JSONRPCError{Code: CodeInvalidRequest, Message: err.Error()}
	}
	return &JSONRPCError{Code: CodeInternalError, Message: err.Error()}
}

// SessionState is the persisted subset of a Session's negotiated state,
// used by SessionStore to survive process restarts in stateful
// Streamable-HTTP deployments.
type SessionState struct {
	InitializeParams *InitializeParams `json:"initializeParams"`
	LogLevel         LoggingLevel      `json:"logLevel"`
	ProtocolVersion  string            `json:"protocolVersion"`
}

// LoggingLevel is the RFC 5424 severity level a client may request via
// logging/setLevel. The logging capability itself is an external
// collaborator; this engine only threads the level through SessionState.
type LoggingLevel string

// SessionStore persists and retrieves SessionState, keyed by session id.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Store(ctx context.Context, sessionID string, state *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// MemorySessionStore is an in-memory SessionStore. Safe for concurrent use.
type MemorySessionStore struct {
	mu    sync.Mutex
	store map[string]*SessionState
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{store: make(map[string]*SessionState)}
}

func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	s.mu.Lock()
	stored, ok := s.store[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, fs.ErrNotExist
	}
	var cp SessionState
	if err := remarshal(stored, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *MemorySessionStore) Store(ctx context.Context, sessionID string, state *SessionState) error {
	var cp SessionState
	if err := remarshal(state, &cp); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[sessionID] = &cp
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, sessionID)
	return nil
}
