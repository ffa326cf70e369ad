// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pinnaclelabs/mcpengine/internal/json"
)

// ServerOptions configures a Server. All fields are optional.
type ServerOptions struct {
	// Capabilities are merged with those inferred from registered
	// handlers (see inferServerCapabilities) before being advertised
	// during the initialize handshake.
	Capabilities *ServerCapabilities
	// Instructions is returned to the client in InitializeResult.
	Instructions string
	// Logger receives the session's diagnostic output. Defaults to a
	// silent logger.
	Logger *slog.Logger
}

// Server is the server-role half of an MCP engine: it holds the handler
// registry and capability declaration shared by every Session it accepts,
// and drives the initialize handshake for each new connection.
type Server struct {
	impl    *Implementation
	opts    ServerOptions
	handlers map[string]Handler
}

// NewServer creates a Server that will identify itself with impl during
// the initialize handshake.
func NewServer(impl *Implementation, opts *ServerOptions) *Server {
	s := &Server{impl: impl, handlers: make(map[string]Handler)}
	if opts != nil {
		s.opts = *opts
	}
	return s
}

// Handle registers h to serve incoming requests and notifications for
// method. Registering a method that implies a capability (e.g.
// "tools/call") causes that capability to be advertised even if
// ServerOptions.Capabilities did not set it explicitly.
func (s *Server) Handle(method string, h Handler) {
	s.handlers[method] = h
}

// Connect performs the initialize handshake over conn as the server side
// and returns the resulting Session. The returned Session's receive loop
// runs in its own goroutine; callers should wait on Session.Done or call
// Session.Close when finished.
func (s *Server) Connect(ctx context.Context, conn Connection) (*Session, error) {
	sess := newSessionWithLogger(RoleServer, conn, s.handlers, s.opts.Logger)
	sess.setState(stateUninitialized)

	initDone := make(chan error, 1)
	sess.handlers[methodInitialize] = func(ctx context.Context, req *Request) (any, error) {
		if sess.getState() != stateUninitialized {
			return nil, ErrAlreadyInitialized
		}
		sess.setState(stateInitializing)
		var params InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &JSONRPCError{Code: CodeInvalidParams, Message: err.Error()}
		}
		sess.InitializeParams = &params
		sess.clientCapabilities = params.Capabilities
		sess.protocolVersion = negotiateVersion(params.ProtocolVersion)

		caps := inferServerCapabilities(s.opts.Capabilities, s.handlers)

		result := &InitializeResult{
			Capabilities:    caps,
			Instructions:    s.opts.Instructions,
			ProtocolVersion: sess.protocolVersion,
			ServerInfo:      s.impl,
		}
		sess.serverCapabilities = caps
		sess.InitializeResult = result
		initDone <- nil
		return result, nil
	}
	sess.handlers[notificationInitialized] = func(ctx context.Context, req *Request) (any, error) {
		sess.setState(stateInitialized)
		return nil, nil
	}

	go func() {
		_ = sess.run(ctx)
		select {
		case initDone <- fmt.Errorf("mcp: session closed before initialize"):
		default:
		}
	}()

	select {
	case err := <-initDone:
		if err != nil {
			return sess, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return sess, nil
}
