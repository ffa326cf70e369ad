// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"io"
	"sync"
)

// NewInMemoryTransports returns two Transports, client and server, wired
// to each other: writes on one arrive as reads on the other. capacity
// bounds the number of buffered, unread messages before Write blocks,
// modeling back-pressure; 0 means unbuffered (every write rendezvous with
// a read).
func NewInMemoryTransports(capacity int) (client, server Transport) {
	aToB := make(chan JSONRPCMessage, capacity)
	bToA := make(chan JSONRPCMessage, capacity)
	closedA := make(chan struct{})
	closedB := make(chan struct{})
	c := &inMemoryTransport{send: aToB, recv: bToA, closedSelf: closedA, closedPeer: closedB}
	s := &inMemoryTransport{send: bToA, recv: aToB, closedSelf: closedB, closedPeer: closedA}
	return c, s
}

type inMemoryTransport struct {
	send       chan JSONRPCMessage
	recv       chan JSONRPCMessage
	closedSelf chan struct{}
	closedPeer chan struct{}
}

func (t *inMemoryTransport) Connect(ctx context.Context) (Connection, error) {
	return &inMemoryConn{inMemoryTransport: *t}, nil
}

// inMemoryConn implements Connection over a pair of channels. Closing one
// side closes only its own closedSelf signal: the peer observes that via
// its closedPeer reference, so each side's Read/Write only ever touches
// channels it exclusively owns the close-rights to.
type inMemoryConn struct {
	inMemoryTransport
	closeOnce sync.Once
}

func (c *inMemoryConn) Read(ctx context.Context) (*TransportMessage, error) {
	select {
	case msg := <-c.recv:
		return &TransportMessage{Message: msg}, nil
	case <-c.closedSelf:
		return nil, io.EOF
	case <-c.closedPeer:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *inMemoryConn) Write(ctx context.Context, msg JSONRPCMessage, opts WriteOptions) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.closedSelf:
		return ErrConnectionClosed
	case <-c.closedPeer:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *inMemoryConn) Close() error {
	c.closeOnce.Do(func() { close(c.closedSelf) })
	return nil
}

func (c *inMemoryConn) SessionID() string { return "" }
