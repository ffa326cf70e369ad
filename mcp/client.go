// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/pinnaclelabs/mcpengine/internal/json"
)

// protocolVersionSetter is implemented by transports (the Streamable-HTTP
// client) that need to attach the negotiated protocol version to requests
// made after the handshake completes.
type protocolVersionSetter interface {
	SetProtocolVersion(string)
}

// ClientOptions configures a Client. All fields are optional.
type ClientOptions struct {
	// Capabilities are merged with those inferred from registered
	// handlers (sampling/elicitation/roots callbacks the server may
	// invoke) and declared during the initialize handshake.
	Capabilities *ClientCapabilities
	// Strict, if true, causes Client.CallMethod to fail fast with a
	// *CapabilityUnavailableError when invoking a method whose
	// corresponding server capability was not advertised, rather than
	// sending the request and waiting on a response that will never
	// arrive or will error. Session.Call itself never checks capabilities.
	Strict bool
	// Logger receives the session's diagnostic output. Defaults to a
	// silent logger.
	Logger *slog.Logger
	// Metrics, if non-nil, receives per-method request latency.
	Metrics *Metrics
}

// Client is the client-role half of an MCP engine: it holds the handler
// registry used to serve server-initiated requests (sampling, roots,
// elicitation) and drives the initialize handshake for each connection it
// opens.
type Client struct {
	impl     *Implementation
	opts     ClientOptions
	handlers map[string]Handler
}

// NewClient creates a Client that will identify itself with impl during
// the initialize handshake.
func NewClient(impl *Implementation, opts *ClientOptions) *Client {
	c := &Client{impl: impl, handlers: make(map[string]Handler)}
	if opts != nil {
		c.opts = *opts
	}
	return c
}

// Handle registers h to serve server-initiated requests and notifications
// for method (e.g. "sampling/createMessage", "roots/list").
func (c *Client) Handle(method string, h Handler) {
	c.handlers[method] = h
}

// Connect opens conn, performs the initialize handshake as the client
// side, sends notifications/initialized on success, and returns the
// resulting Session.
func (c *Client) Connect(ctx context.Context, conn Connection) (*Session, error) {
	sess := newSessionWithLogger(RoleClient, conn, c.handlers, c.opts.Logger)
	sess.setState(stateUninitialized)

	go func() { _ = sess.run(ctx) }()

	// Registered handlers for sampling/createMessage, roots/list and
	// elicitation/create imply the matching client capability.
	caps := c.opts.Capabilities.clone()
	if caps == nil && len(c.handlers) > 0 {
		caps = &ClientCapabilities{}
	}
	for method := range c.handlers {
		switch {
		case method == "sampling/createMessage" && caps.Sampling == nil:
			caps.Sampling = &SamplingCapabilities{}
		case method == "roots/list" && caps.Roots == nil:
			caps.Roots = &RootCapabilities{}
		case method == "elicitation/create" && caps.Elicitation == nil:
			caps.Elicitation = &ElicitationCapabilities{}
		}
	}
	params := &InitializeParams{
		Capabilities:    caps,
		ClientInfo:      c.impl,
		ProtocolVersion: LatestProtocolVersion,
	}
	raw, err := sess.Call(ctx, methodInitialize, params, CallOptions{})
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		_ = sess.Close()
		return nil, err
	}
	sess.InitializeParams = params
	sess.InitializeResult = &result
	sess.clientCapabilities = params.Capabilities
	sess.serverCapabilities = result.Capabilities
	sess.protocolVersion = result.ProtocolVersion
	sess.setState(stateInitialized)
	if pvs, ok := conn.(protocolVersionSetter); ok {
		pvs.SetProtocolVersion(result.ProtocolVersion)
	}

	if err := sess.Notify(ctx, notificationInitialized, &InitializedParams{}); err != nil {
		_ = sess.Close()
		return nil, err
	}
	return sess, nil
}

// CallMethod is a convenience wrapper around Session.Call for use by
// callers that hold a Client/Session pair rather than just a Session; it
// enforces ClientOptions.Strict when configured.
func (c *Client) CallMethod(ctx context.Context, sess *Session, method string, params any, opts CallOptions) (json.RawMessage, error) {
	if c.opts.Strict {
		if err := c.checkStrict(sess, method); err != nil {
			return nil, err
		}
	}
	start := time.Now()
	raw, err := sess.Call(ctx, method, params, opts)
	c.opts.Metrics.observeRequestDuration(method, time.Since(start).Seconds())
	return raw, err
}

func (c *Client) checkStrict(sess *Session, method string) error {
	caps := sess.serverCapabilities
	if caps == nil {
		return &CapabilityUnavailableError{Which: method}
	}
	switch method {
	case "tools/list", "tools/call":
		return checkCapability(caps.Tools != nil, "tools")
	case "prompts/list", "prompts/get":
		return checkCapability(caps.Prompts != nil, "prompts")
	case "resources/list", "resources/read":
		return checkCapability(caps.Resources != nil, "resources")
	case "resources/subscribe", "resources/unsubscribe":
		return checkCapability(caps.Resources != nil && caps.Resources.Subscribe, "resources.subscribe")
	case "logging/setLevel":
		return checkCapability(caps.Logging != nil, "logging")
	case "completion/complete":
		return checkCapability(caps.Completions != nil, "completion")
	default:
		return nil
	}
}
