// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
)

// TransportMessage is one framed message delivered by a Connection's
// Read, together with whatever context the transport can recover about it
// (which session, which originating request) so the engine can route
// server-to-client traffic to the right stream.
type TransportMessage struct {
	Message   JSONRPCMessage
	SessionID string
	// RequestID is set when the transport can associate this message with
	// a specific originating request stream (the Streamable-HTTP per-request
	// SSE stream); zero otherwise.
	RequestID JSONRPCID
}

// Connection is one established, bidirectional channel over which JSON-RPC
// messages flow. A Transport produces a Connection on Connect; both ends
// of an in-memory pair, a stdio pipe, and one HTTP session all implement
// it identically from the engine's point of view.
type Connection interface {
	// Read blocks until a message arrives, the connection closes (returns
	// io.EOF), or ctx is done.
	Read(ctx context.Context) (*TransportMessage, error)
	// Write sends one message, optionally scoped to a session/request so an
	// HTTP-backed connection can route it onto the right SSE stream.
	Write(ctx context.Context, msg JSONRPCMessage, opts WriteOptions) error
	// Close tears down the connection. Read calls in flight return
	// io.EOF or ErrConnectionClosed.
	Close() error
	// SessionID returns the session id this connection is bound to, or ""
	// if the transport has no concept of one (stdio, in-memory).
	SessionID() string
}

// WriteOptions scopes an outgoing message to a particular session and/or
// originating request, for transports (Streamable-HTTP) that multiplex
// several SSE streams over one logical connection.
type WriteOptions struct {
	RelatedRequestID JSONRPCID
	RelatedSessionID string
}

// ServerToClientCapable is implemented by connections that can say in
// advance whether they support the server initiating requests to the
// client. The Streamable-HTTP server transport returns true only in
// stateful (session) mode; stateless HTTP and stdio never do.
type ServerToClientCapable interface {
	SupportsServerToClientRequests() bool
}

// Transport is anything that can produce a Connection: a stdio pipe pair,
// an in-memory pair, or an HTTP client/server endpoint.
type Transport interface {
	Connect(ctx context.Context) (Connection, error)
}
