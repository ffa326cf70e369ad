// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// UUIDSessionIDGenerator is a SessionIDGenerator that mints a random UUID
// per session. It is the usual choice for StreamableServerOptions.
func UUIDSessionIDGenerator() (string, error) {
	return uuid.New().String(), nil
}

// RandomSessionIDGenerator is a SessionIDGenerator that mints a random
// token without pulling in a UUID format, for callers that don't need
// RFC 4122 session ids.
func RandomSessionIDGenerator() (string, error) {
	return randText(), nil
}

// StreamableServerOptions configures a StreamableHTTPHandler.
type StreamableServerOptions struct {
	// SessionIDGenerator, if non-nil, puts the handler in stateful mode:
	// every new session is assigned an id by calling it, sessions are
	// tracked, and server-to-client requests, GET streams, and
	// resumability are all available. If nil, the handler runs in
	// stateless mode: DELETE and GET are both rejected, and Mcp-Session-Id
	// is never sent or required.
	SessionIDGenerator func() (string, error)
	// OnSessionInitialized, if non-nil, is called once a session's
	// initialize handshake completes.
	OnSessionInitialized func(*Session)
	// OnSessionClosed, if non-nil, is called whenever a session is
	// removed, whether by DELETE or by the transport detecting closure.
	OnSessionClosed func(sessionID string)
	// JSONResponse, if true, returns POST responses as a single JSON body
	// instead of opening an SSE stream.
	JSONResponse bool
	// EventStore, if non-nil, backs GET-stream resumability via
	// Last-Event-ID. Only meaningful in stateful mode.
	EventStore EventStore
	// DNSRebindingProtection guards against rebinding attacks; nil means
	// NoDNSRebindingProtection.
	DNSRebindingProtection *DNSRebindingProtection
	// RetryInterval is advertised to clients via the SSE `retry:` field
	// on the GET stream's priming event.
	RetryInterval time.Duration
	// Metrics, if non-nil, receives session and event-store counters.
	Metrics *Metrics
	// MaxBodyBytes bounds POST request bodies; see effectiveMaxBodyBytes
	// for the zero/negative conventions. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func (o *StreamableServerOptions) stateful() bool { return o != nil && o.SessionIDGenerator != nil }

// StreamableHTTPHandler is an http.Handler implementing the Streamable-HTTP
// server transport: a single endpoint accepting POST (submit), GET (open
// the server->client stream), and DELETE (terminate).
type StreamableHTTPHandler struct {
	getServer func(*http.Request) *Server
	opts      StreamableServerOptions

	mu       sync.Mutex
	sessions map[string]*streamableServerTransport

	// statelessTransport lazily holds the single shared transport used
	// when the handler runs without a session id generator.
	statelessOnce      sync.Once
	statelessTransport *streamableServerTransport
}

// NewStreamableHTTPHandler returns a handler that looks up or creates a
// Server for each incoming request via getServer.
func NewStreamableHTTPHandler(getServer func(*http.Request) *Server, opts *StreamableServerOptions) *StreamableHTTPHandler {
	assert(getServer != nil, "NewStreamableHTTPHandler: getServer is nil")
	h := &StreamableHTTPHandler{getServer: getServer, sessions: make(map[string]*streamableServerTransport)}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// CloseAll closes every tracked session's transport.
func (h *StreamableHTTPHandler) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*streamableServerTransport)
	h.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

func (h *StreamableHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := req.Header.Get("Mcp-Session-Id")
	var transport *streamableServerTransport
	if h.opts.stateful() && sessionID != "" {
		h.mu.Lock()
		transport = h.sessions[sessionID]
		h.mu.Unlock()
		if transport == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
	}

	if res := h.opts.DNSRebindingProtection.check(req); res != nil && !(req.Method == http.MethodDelete && transport != nil) {
		http.Error(w, res.body, res.status)
		return
	}

	if v := req.Header.Get("MCP-Protocol-Version"); v != "" && !isSupportedVersion(v) {
		http.Error(w, "unsupported protocol version", http.StatusBadRequest)
		return
	}

	if req.Method == http.MethodDelete {
		h.serveDelete(w, req, sessionID, transport)
		return
	}

	accept := strings.Split(strings.Join(req.Header.Values("Accept"), ","), ",")
	var jsonOK, streamOK bool
	for _, c := range accept {
		switch strings.TrimSpace(c) {
		case "application/json":
			jsonOK = true
		case "text/event-stream":
			streamOK = true
		}
	}

	if req.Method == http.MethodGet {
		if !streamOK {
			http.Error(w, "Accept must contain text/event-stream", http.StatusNotAcceptable)
			return
		}
		if !h.opts.stateful() {
			w.Header().Set("Allow", "POST")
			http.Error(w, "GET not supported in stateless mode", http.StatusMethodNotAllowed)
			return
		}
		if transport == nil {
			http.Error(w, "not initialized", http.StatusBadRequest)
			return
		}
		transport.serveGET(w, req, &h.opts)
		return
	}

	// POST.
	if h.opts.JSONResponse {
		if !jsonOK {
			http.Error(w, "Accept must contain application/json", http.StatusNotAcceptable)
			return
		}
	} else if !jsonOK || !streamOK {
		http.Error(w, "Accept must contain both application/json and text/event-stream", http.StatusNotAcceptable)
		return
	}
	if ct := req.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	if transport == nil {
		transport = h.newTransportFor(req)
	}
	transport.servePOST(w, req, &h.opts, h.track(transport))
}

// track returns a callback the transport invokes once it has determined
// (from the POST body) whether this request is creating a new session,
// so the handler can register it under its freshly allocated id.
func (h *StreamableHTTPHandler) track(t *streamableServerTransport) func() {
	return func() {
		if !h.opts.stateful() || t.id == "" {
			return
		}
		h.mu.Lock()
		h.sessions[t.id] = t
		h.mu.Unlock()
	}
}

func (h *StreamableHTTPHandler) newTransportFor(req *http.Request) *streamableServerTransport {
	if !h.opts.stateful() {
		h.statelessOnce.Do(func() {
			h.statelessTransport = newStreamableServerTransport("", nil, h.opts.Metrics)
			server := h.getServer(req)
			go h.runSession(server, context.Background(), h.statelessTransport)
		})
		return h.statelessTransport
	}
	t := newStreamableServerTransport("", h.opts.EventStore, h.opts.Metrics)
	server := h.getServer(req)
	go h.runSession(server, context.Background(), t)
	return t
}

func (h *StreamableHTTPHandler) runSession(server *Server, ctx context.Context, t *streamableServerTransport) {
	sess, err := server.Connect(ctx, t)
	if err != nil {
		return
	}
	h.opts.Metrics.sessionOpened()
	if h.opts.OnSessionInitialized != nil {
		h.opts.OnSessionInitialized(sess)
	}
	<-sess.Done()
	h.opts.Metrics.sessionClosed()
	if h.opts.stateful() {
		h.mu.Lock()
		delete(h.sessions, t.id)
		h.mu.Unlock()
		if h.opts.OnSessionClosed != nil {
			h.opts.OnSessionClosed(t.id)
		}
	}
}

func (h *StreamableHTTPHandler) serveDelete(w http.ResponseWriter, req *http.Request, sessionID string, transport *streamableServerTransport) {
	if !h.opts.stateful() {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "DELETE not supported in stateless mode", http.StatusMethodNotAllowed)
		return
	}
	if transport == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	// Closing the transport ends the session's receive loop; runSession
	// then reports the closure through OnSessionClosed.
	transport.Close()
	w.WriteHeader(http.StatusOK)
}

// streamID identifies one logical SSE stream within a session: 0 is the
// GET stream, anything else is the stream opened by one POST request.
type streamID int64

type bufferedEvent struct {
	seq   int64
	event sseEvent
}

// streamableServerTransport implements Connection for one Streamable-HTTP
// session, multiplexing one incoming message queue across however many
// concurrent HTTP requests (POSTs and at most one GET) are attached to it.
type streamableServerTransport struct {
	id         string
	eventStore EventStore
	metrics    *Metrics

	initialized atomic.Bool

	incoming chan JSONRPCMessage

	mu             sync.Mutex
	closed         bool
	done           chan struct{}
	nextEventSeq   atomic.Int64
	nextStreamID   atomic.Int64
	outgoing       map[streamID][]bufferedEvent
	signals        map[streamID]chan struct{}
	requestStreams map[JSONRPCID]streamID
	streamRequests map[streamID]map[JSONRPCID]struct{}
	getStreamOpen  bool
}

func newStreamableServerTransport(id string, store EventStore, metrics *Metrics) *streamableServerTransport {
	return &streamableServerTransport{
		id:             id,
		eventStore:     store,
		metrics:        metrics,
		incoming:       make(chan JSONRPCMessage, 16),
		done:           make(chan struct{}),
		outgoing:       make(map[streamID][]bufferedEvent),
		signals:        make(map[streamID]chan struct{}),
		requestStreams: make(map[JSONRPCID]streamID),
		streamRequests: make(map[streamID]map[JSONRPCID]struct{}),
	}
}

func (t *streamableServerTransport) Connect(ctx context.Context) (Connection, error) { return t, nil }

func (t *streamableServerTransport) Read(ctx context.Context) (*TransportMessage, error) {
	select {
	case msg, ok := <-t.incoming:
		if !ok {
			return nil, io.EOF
		}
		return &TransportMessage{Message: msg, SessionID: t.id}, nil
	case <-t.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *streamableServerTransport) Write(ctx context.Context, msg JSONRPCMessage, opts WriteOptions) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrConnectionClosed
	}
	sid, ok := t.requestStreams[opts.RelatedRequestID]
	if !ok {
		if t.getStreamOpen {
			sid = 0
		} else {
			t.mu.Unlock()
			return nil // no destination stream: drop per policy
		}
	}
	if resp, ok := msg.(*JSONRPCResponse); ok {
		if reqs, ok := t.streamRequests[sid]; ok {
			delete(reqs, resp.ID)
		}
		delete(t.requestStreams, resp.ID)
	}
	data, err := writeMessage(msg)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	seq := t.nextEventSeq.Add(1)
	ev := sseEvent{id: strconv.FormatInt(seq, 10), data: data}
	if t.eventStore != nil {
		storeID := fmt.Sprintf("%s/%d", t.id, sid)
		if eid, err := t.eventStore.StoreEvent(ctx, storeID, data); err == nil {
			ev.id = eid
			t.metrics.eventStored()
		}
	}
	t.outgoing[sid] = append(t.outgoing[sid], bufferedEvent{seq: seq, event: ev})
	signal := t.signals[sid]
	t.mu.Unlock()
	if signal != nil {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
	return nil
}

func (t *streamableServerTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	close(t.done)
	return nil
}

func (t *streamableServerTransport) SessionID() string { return t.id }

// SupportsServerToClientRequests reports true only for a stateful session,
// the one mode in which the server can reach the client outside a POST.
func (t *streamableServerTransport) SupportsServerToClientRequests() bool { return t.id != "" }

func (t *streamableServerTransport) serveGET(w http.ResponseWriter, req *http.Request, opts *StreamableServerOptions) {
	t.mu.Lock()
	if t.getStreamOpen {
		t.mu.Unlock()
		http.Error(w, "a GET stream is already open for this session", http.StatusConflict)
		return
	}
	t.getStreamOpen = true
	// Live delivery starts after the events already buffered for earlier
	// GET connections; missed events come only from the event store replay.
	nextIdx := len(t.outgoing[0])
	signal := make(chan struct{}, 1)
	t.signals[0] = signal
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.getStreamOpen = false
		delete(t.signals, 0)
		t.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	if t.id != "" {
		w.Header().Set("Mcp-Session-Id", t.id)
	}
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	if lastEventID := req.Header.Get("Last-Event-ID"); lastEventID != "" && t.eventStore != nil {
		_, err := t.eventStore.ReplayEventsAfter(req.Context(), lastEventID, func(eventID string, payload []byte) error {
			_, err := writeEvent(w, sseEvent{id: eventID, data: payload})
			if flusher != nil {
				flusher.Flush()
			}
			return err
		})
		if err != nil {
			return
		}
	} else {
		// The priming event's id, when an event store is configured, gives
		// the client an anchor to resume from.
		priming := sseEvent{retry: opts.RetryInterval}
		if t.eventStore != nil {
			if eid, err := t.eventStore.StoreEvent(req.Context(), fmt.Sprintf("%s/%d", t.id, 0), nil); err == nil {
				priming.id = eid
			}
		}
		if _, err := writeEvent(w, priming); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	for {
		t.mu.Lock()
		pending := t.outgoing[0][nextIdx:]
		t.mu.Unlock()
		for _, be := range pending {
			if _, err := writeEvent(w, be.event); err != nil {
				return
			}
			nextIdx++
		}
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case <-signal:
		case <-t.done:
			return
		case <-req.Context().Done():
			return
		}
	}
}

func (t *streamableServerTransport) servePOST(w http.ResponseWriter, req *http.Request, opts *StreamableServerOptions, onSessionAssigned func()) {
	if req.Header.Get("Last-Event-ID") != "" {
		http.Error(w, "Last-Event-ID not valid on POST", http.StatusBadRequest)
		return
	}
	reader := req.Body
	if limit := effectiveMaxBodyBytes(opts.MaxBodyBytes); limit > 0 {
		reader = http.MaxBytesReader(w, req.Body, limit)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		if isMaxBytesError(err) {
			writeRequestBodyTooLarge(w)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}
	msgs, isBatch, err := readBatch(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("parse error: %v", err), http.StatusBadRequest)
		return
	}

	var requests []*JSONRPCRequest
	var hasInitialize bool
	for _, m := range msgs {
		if r, ok := m.(*JSONRPCRequest); ok {
			requests = append(requests, r)
			if r.Method == methodInitialize {
				hasInitialize = true
			}
		}
	}
	if hasInitialize && (isBatch || len(msgs) != 1) {
		http.Error(w, "initialize cannot be batched", http.StatusBadRequest)
		return
	}
	if hasInitialize {
		if t.initialized.Load() {
			http.Error(w, "session already initialized", http.StatusBadRequest)
			return
		}
	} else if !t.initialized.Load() {
		http.Error(w, "session not initialized", http.StatusBadRequest)
		return
	}
	if hasInitialize {
		t.initialized.Store(true)
		if opts.stateful() {
			id, err := opts.SessionIDGenerator()
			if err != nil || !isValidSessionID(id) {
				http.Error(w, "session id generator failed", http.StatusInternalServerError)
				return
			}
			t.id = id
			onSessionAssigned()
		}
	}

	sid := streamID(t.nextStreamID.Add(1))
	t.mu.Lock()
	if len(requests) > 0 {
		t.streamRequests[sid] = make(map[JSONRPCID]struct{}, len(requests))
		for _, r := range requests {
			t.requestStreams[r.ID] = sid
			t.streamRequests[sid][r.ID] = struct{}{}
		}
	}
	signal := make(chan struct{}, 1)
	t.signals[sid] = signal
	t.mu.Unlock()

	for _, m := range msgs {
		select {
		case t.incoming <- m:
		case <-req.Context().Done():
			return
		}
	}

	if len(requests) == 0 {
		t.mu.Lock()
		delete(t.signals, sid)
		t.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if t.id != "" {
		w.Header().Set("Mcp-Session-Id", t.id)
	}
	if opts.JSONResponse {
		t.streamJSON(w, req, sid)
		return
	}
	t.streamSSE(w, req, sid, signal)
}

func (t *streamableServerTransport) streamSSE(w http.ResponseWriter, req *http.Request, sid streamID, signal chan struct{}) {
	defer func() {
		t.mu.Lock()
		delete(t.signals, sid)
		delete(t.streamRequests, sid)
		t.mu.Unlock()
	}()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	nextIdx := 0
	for {
		t.mu.Lock()
		pending := t.outgoing[sid][nextIdx:]
		outstanding := len(t.streamRequests[sid])
		t.mu.Unlock()
		for _, be := range pending {
			if _, err := writeEvent(w, be.event); err != nil {
				return
			}
			nextIdx++
		}
		if flusher != nil {
			flusher.Flush()
		}
		if outstanding == 0 {
			return
		}
		select {
		case <-signal:
		case <-t.done:
			return
		case <-req.Context().Done():
			return
		}
	}
}

func (t *streamableServerTransport) streamJSON(w http.ResponseWriter, req *http.Request, sid streamID) {
	defer func() {
		t.mu.Lock()
		delete(t.signals, sid)
		delete(t.streamRequests, sid)
		t.mu.Unlock()
	}()
	var bodies [][]byte
	for {
		t.mu.Lock()
		outstanding := len(t.streamRequests[sid])
		pending := t.outgoing[sid]
		t.outgoing[sid] = nil
		signal := t.signals[sid]
		t.mu.Unlock()
		for _, be := range pending {
			bodies = append(bodies, be.event.data)
		}
		if outstanding == 0 {
			break
		}
		select {
		case <-signal:
		case <-t.done:
			return
		case <-req.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if len(bodies) == 1 {
		w.Write(bodies[0])
		return
	}
	w.Write([]byte("["))
	for i, b := range bodies {
		if i > 0 {
			w.Write([]byte(","))
		}
		w.Write(b)
	}
	w.Write([]byte("]"))
}

func isValidSessionID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
