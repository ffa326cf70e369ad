// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"

	"github.com/pinnaclelabs/mcpengine/internal/json"
)

// ServerRequest wraps an incoming request's typed params together with the
// Session it arrived on, so a handler can both inspect Params and call back
// into the session (to report progress) without a second lookup. Within
// this package it backs only the Progress helper; the built-in control
// methods (initialize, ping) and an application's own methods are served
// through the untyped Handler below.
type ServerRequest[P Params] struct {
	Session *Session
	Params  P
}

// ClientRequest wraps an incoming server-to-client request the same way
// ServerRequest wraps a client-to-server one.
type ClientRequest[P Params] struct {
	Session *Session
	Params  P
}

// Request is the untyped form of an incoming request or notification,
// passed to a Handler. Extra registries (tools, prompts, resources) are
// external collaborators that build their own typed wrappers on top of
// Params.
type Request struct {
	Session *Session
	Method  string
	Params  json.RawMessage
	// id is zero for a notification.
	id jsonrpcID
}

// IsNotification reports whether the incoming message was a notification
// (no response expected).
func (r *Request) IsNotification() bool { return !r.id.IsValid() }

// Handler processes one incoming request or notification. For a request, a
// non-nil result or a non-nil error is sent back as the response; for a
// notification, returned values are ignored (there's no correlated
// response to send them in). ctx is done when the context the Session was
// connected with is done and, for a request, also when a matching
// notifications/cancelled arrives. Closing the Session does not cancel ctx.
type Handler func(ctx context.Context, req *Request) (any, error)

// HandlerFunc adapts any method with a matching signature to a Handler.
type HandlerFunc = Handler
