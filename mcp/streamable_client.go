// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// StreamableClientOptions configures a StreamableClientTransport.
type StreamableClientOptions struct {
	// HTTPClient is used for all requests; http.DefaultClient if nil.
	HTTPClient *http.Client
	// ModifyRequest, if non-nil, is called on every outbound *http.Request
	// before it is sent, so callers can inject headers such as
	// Authorization. Reserved for OAuth integration.
	ModifyRequest func(*http.Request)

	// Backoff parameters for SSE reconnection, per §4.7. Zero values fall
	// back to the documented defaults (1s/30s/1.5/2).
	InitialRetry time.Duration
	MaxRetry     time.Duration
	RetryFactor  float64
	MaxRetries   int

	// Metrics, if non-nil, receives reconnection counters.
	Metrics *Metrics
}

func (o StreamableClientOptions) withDefaults() StreamableClientOptions {
	if o.InitialRetry <= 0 {
		o.InitialRetry = time.Second
	}
	if o.MaxRetry <= 0 {
		o.MaxRetry = 30 * time.Second
	}
	if o.RetryFactor <= 0 {
		o.RetryFactor = 1.5
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 2
	}
	return o
}

// StreamableClientTransport is the client side of the Streamable-HTTP
// transport: every outgoing message is POSTed to url, and the server's
// reply is consumed either as a single JSON body or as an SSE stream;
// unsolicited server->client traffic arrives on a long-lived GET stream
// that is reopened with exponential backoff if the connection drops.
type StreamableClientTransport struct {
	URL  string
	Opts StreamableClientOptions
}

func (t *StreamableClientTransport) Connect(ctx context.Context) (Connection, error) {
	opts := t.Opts.withDefaults()
	c := &streamableClientConn{
		url:     t.URL,
		opts:    opts,
		client:  opts.HTTPClient,
		incoming: make(chan *TransportMessage, 16),
		done:    make(chan struct{}),
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	return c, nil
}

type streamableClientConn struct {
	url    string
	opts   StreamableClientOptions
	client *http.Client

	mu               sync.Mutex
	sessionID        string
	protocolVersion  string
	closed           bool
	lastEventID      string
	observedResponse map[JSONRPCID]bool

	incoming chan *TransportMessage
	done     chan struct{}
	getOnce  sync.Once
}

func (c *streamableClientConn) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetProtocolVersion attaches the negotiated protocol version to every
// subsequent request, per §4.7.
func (c *streamableClientConn) SetProtocolVersion(v string) {
	c.mu.Lock()
	c.protocolVersion = v
	c.mu.Unlock()
}

func (c *streamableClientConn) Read(ctx context.Context) (*TransportMessage, error) {
	select {
	case m, ok := <-c.incoming:
		if !ok {
			return nil, io.EOF
		}
		return m, nil
	case <-c.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *streamableClientConn) applyHeaders(req *http.Request) {
	c.mu.Lock()
	sid, version := c.sessionID, c.protocolVersion
	c.mu.Unlock()
	if sid != "" {
		req.Header.Set("Mcp-Session-Id", sid)
	}
	if version != "" {
		req.Header.Set("MCP-Protocol-Version", version)
	}
	if c.opts.ModifyRequest != nil {
		c.opts.ModifyRequest(req)
	}
}

func (c *streamableClientConn) Write(ctx context.Context, msg JSONRPCMessage, opts WriteOptions) error {
	data, err := writeMessage(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	c.applyHeaders(req)

	c.mu.Lock()
	hadSession := c.sessionID != ""
	c.mu.Unlock()
	isInitialize := false
	if r, ok := msg.(*JSONRPCRequest); ok {
		isInitialize = r.Method == methodInitialize
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	if err := c.classifyStatus(resp, hadSession, isInitialize); err != nil {
		return err
	}
	if resp.StatusCode == http.StatusAccepted {
		return nil
	}

	ct := resp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return nil
		}
		return c.deliverBody(body)
	case strings.HasPrefix(ct, "text/event-stream"):
		var reqID JSONRPCID
		if r, ok := msg.(*JSONRPCRequest); ok {
			reqID = r.ID
		}
		return c.streamResponseWithRetry(ctx, resp.Body, reqID)
	default:
		body, _ := io.ReadAll(resp.Body)
		if len(body) == 0 {
			return nil
		}
		return ErrUnexpectedContentType
	}
}

// classifyStatus maps an HTTP status to an error. hadSession reports
// whether a session id was already held before this request was sent;
// isInitialize reports whether this request was the initialize call.
// Per §4.7, 404 is SessionExpired only when a session was held and this
// wasn't an initialize; otherwise it means the endpoint itself doesn't
// exist.
func (c *streamableClientConn) classifyStatus(resp *http.Response, hadSession, isInitialize bool) error {
	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusAccepted:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		return &JSONRPCError{Code: CodeInvalidRequest, Message: "bad request"}
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuthenticationRequired
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		if hadSession && !isInitialize {
			c.mu.Lock()
			c.sessionID = ""
			c.mu.Unlock()
			return ErrSessionExpired
		}
		return ErrEndpointNotFound
	case resp.StatusCode == http.StatusMethodNotAllowed:
		return ErrMethodNotAllowed
	case resp.StatusCode == http.StatusRequestTimeout:
		return ErrRequestTimeout
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(resp.Body)
		return &ServerError{Status: resp.StatusCode, Body: string(body)}
	default:
		return nil
	}
}

// deliverBody parses body as one JSON-RPC message or a batch, and
// delivers each to the incoming queue.
func (c *streamableClientConn) deliverBody(body []byte) error {
	msgs, _, err := readBatch(body)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		select {
		case c.incoming <- &TransportMessage{Message: m}:
		case <-c.done:
			return nil
		}
	}
	return nil
}

// consumeSSE reads events from r until the stream ends, delivering each
// as a TransportMessage. If remap is non-nil, response ids are rewritten
// to remap.originalID before delivery, per the response-ID remapping
// rule for resumed streams.
func (c *streamableClientConn) consumeSSE(ctx context.Context, r io.Reader, remap *idRemap) error {
	scanner := newSSEScanner(r)
	for {
		ev, err := scanner.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if ev.id != "" {
			c.mu.Lock()
			c.lastEventID = ev.id
			c.mu.Unlock()
		}
		if ev.isPriming() {
			continue
		}
		msg, err := decodeMessage(ev.data)
		if err != nil {
			continue
		}
		if remap != nil {
			if resp, ok := msg.(*JSONRPCResponse); ok {
				resp.ID = remap.originalID
			}
		}
		if resp, ok := msg.(*JSONRPCResponse); ok {
			c.mu.Lock()
			if c.observedResponse == nil {
				c.observedResponse = make(map[JSONRPCID]bool)
			}
			c.observedResponse[resp.ID] = true
			c.mu.Unlock()
		}
		select {
		case c.incoming <- &TransportMessage{Message: msg}:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		}
	}
}

type idRemap struct {
	originalID JSONRPCID
}

func (c *streamableClientConn) responseObserved(id JSONRPCID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.observedResponse[id]
}

// streamResponseWithRetry consumes the per-request SSE stream opened by a
// POST, and if it closes before a response to reqID arrives, reconnects
// via a resumption GET with exponential backoff, per §4.7.
func (c *streamableClientConn) streamResponseWithRetry(ctx context.Context, body io.ReadCloser, reqID JSONRPCID) error {
	err := c.consumeSSE(ctx, body, nil)
	if !reqID.IsValid() || c.responseObserved(reqID) {
		return err
	}
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		delay := backoffDelay(c.opts, attempt)
		limiter := rate.NewLimiter(rate.Every(delay), 1)
		_ = limiter.Reserve()
		if werr := limiter.Wait(ctx); werr != nil {
			return werr
		}
		c.opts.Metrics.reconnectAttempted("request")
		rerr := c.resumeRequestStream(ctx, reqID)
		if c.responseObserved(reqID) {
			return nil
		}
		if rerr != nil {
			continue
		}
	}
	return ErrRequestTimeout
}

// resumeRequestStream reopens the event stream at the client's last
// observed event id, rewriting every delivered response's id back to
// reqID: the server's own accounting may have moved on, but the caller
// is still waiting on the original request.
func (c *streamableClientConn) resumeRequestStream(ctx context.Context, reqID JSONRPCID) error {
	c.mu.Lock()
	lastID := c.lastEventID
	c.mu.Unlock()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}
	c.applyHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mcp: resume status %d", resp.StatusCode)
	}
	return c.consumeSSE(ctx, resp.Body, &idRemap{originalID: reqID})
}

// OpenEventStream opens the long-lived server->client GET stream and
// reconnects with exponential backoff when the stream fails with an
// error, per §4.7. It returns nil when the server ends the stream cleanly
// or the transport is closed, ctx's error when ctx is done, and the last
// error once MaxRetries reconnections have failed; callers typically run
// it in its own goroutine right after Connect.
func (c *streamableClientConn) OpenEventStream(ctx context.Context) error {
	attempt := 0
	for {
		err := c.runEventStream(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if attempt >= c.opts.MaxRetries {
			return err
		}
		delay := backoffDelay(c.opts, attempt)
		limiter := rate.NewLimiter(rate.Every(delay), 1)
		_ = limiter.Reserve() // consume the initial token so Wait actually sleeps ~delay
		if werr := limiter.Wait(ctx); werr != nil {
			return werr
		}
		c.opts.Metrics.reconnectAttempted("events")
		attempt++
	}
}

func backoffDelay(opts StreamableClientOptions, attempt int) time.Duration {
	d := float64(opts.InitialRetry)
	for i := 0; i < attempt; i++ {
		d *= opts.RetryFactor
	}
	max := float64(opts.MaxRetry)
	if d > max {
		d = max
	}
	return time.Duration(d)
}

func (c *streamableClientConn) runEventStream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.mu.Lock()
	lastID := c.lastEventID
	c.mu.Unlock()
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mcp: GET stream status %d", resp.StatusCode)
	}
	return c.consumeSSE(ctx, resp.Body, nil)
}

// TerminateSession issues DELETE for the current session id. Per §4.7,
// 405 leaves the session id intact (the server doesn't support
// termination); 200/204/404 clear it.
func (c *streamableClientConn) TerminateSession(ctx context.Context) error {
	c.mu.Lock()
	sid := c.sessionID
	c.mu.Unlock()
	if sid == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url, nil)
	if err != nil {
		return err
	}
	c.applyHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		c.mu.Lock()
		c.sessionID = ""
		c.mu.Unlock()
		return nil
	case http.StatusMethodNotAllowed:
		return nil
	default:
		return &ServerError{Status: resp.StatusCode}
	}
}

func (c *streamableClientConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	return nil
}
