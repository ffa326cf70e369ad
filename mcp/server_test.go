// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"testing"
	"time"
)

func testImpl(name string) *Implementation {
	return &Implementation{Name: name, Version: "0.0.1"}
}

func connectPair(t *testing.T, srv *Server, cli *Client) (*Session, *Session) {
	t.Helper()
	clientTransport, serverTransport := NewInMemoryTransports(4)

	// ctx bounds both sessions' receive loops, so it must outlive this
	// helper and stay live for the rest of the test.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	type connectResult struct {
		sess *Session
		err  error
	}
	serverCh := make(chan connectResult, 1)
	go func() {
		conn, err := serverTransport.Connect(ctx)
		if err != nil {
			serverCh <- connectResult{nil, err}
			return
		}
		sess, err := srv.Connect(ctx, conn)
		serverCh <- connectResult{sess, err}
	}()

	clientConn, err := clientTransport.Connect(ctx)
	if err != nil {
		t.Fatalf("client Connect: %v", err)
	}
	clientSess, err := cli.Connect(ctx, clientConn)
	if err != nil {
		t.Fatalf("client handshake: %v", err)
	}

	res := <-serverCh
	if res.err != nil {
		t.Fatalf("server handshake: %v", res.err)
	}
	return clientSess, res.sess
}

func TestHandshakeNegotiatesVersionAndCapabilities(t *testing.T) {
	srv := NewServer(testImpl("srv"), &ServerOptions{})
	srv.Handle("tools/list", func(ctx context.Context, req *Request) (any, error) {
		return struct{}{}, nil
	})
	cli := NewClient(testImpl("cli"), &ClientOptions{})

	clientSess, serverSess := connectPair(t, srv, cli)
	defer clientSess.Close()
	defer serverSess.Close()

	if clientSess.getState() != stateInitialized {
		t.Errorf("client state = %v, want initialized", clientSess.getState())
	}
	// The server reaches initialized when its receive loop processes the
	// client's notifications/initialized, which happens asynchronously.
	deadline := time.Now().Add(time.Second)
	for serverSess.getState() != stateInitialized && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if serverSess.getState() != stateInitialized {
		t.Errorf("server state = %v, want initialized", serverSess.getState())
	}
	if clientSess.InitializeResult.ProtocolVersion != LatestProtocolVersion {
		t.Errorf("negotiated version = %q, want %q", clientSess.InitializeResult.ProtocolVersion, LatestProtocolVersion)
	}
	if clientSess.serverCapabilities == nil || clientSess.serverCapabilities.Tools == nil {
		t.Errorf("client did not observe inferred tools capability: %+v", clientSess.serverCapabilities)
	}
}

func TestServerRejectsDoubleInitialize(t *testing.T) {
	srv := NewServer(testImpl("srv"), &ServerOptions{})
	cli := NewClient(testImpl("cli"), &ClientOptions{})
	clientSess, serverSess := connectPair(t, srv, cli)
	defer clientSess.Close()
	defer serverSess.Close()

	_, err := clientSess.Call(context.Background(), methodInitialize, &InitializeParams{
		ClientInfo:      testImpl("cli"),
		ProtocolVersion: LatestProtocolVersion,
	}, CallOptions{})
	if err == nil {
		t.Fatal("second initialize succeeded, want error")
	}
}

func TestClientStrictRejectsUnadvertisedCapability(t *testing.T) {
	srv := NewServer(testImpl("srv"), &ServerOptions{})
	cli := NewClient(testImpl("cli"), &ClientOptions{Strict: true})
	clientSess, serverSess := connectPair(t, srv, cli)
	defer clientSess.Close()
	defer serverSess.Close()

	_, err := cli.CallMethod(context.Background(), clientSess, "tools/call", nil, CallOptions{})
	if _, ok := err.(*CapabilityUnavailableError); !ok {
		t.Fatalf("err = %v (%T), want *CapabilityUnavailableError", err, err)
	}
}
