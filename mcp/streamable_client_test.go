// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClientConn(url string) *streamableClientConn {
	tr := &StreamableClientTransport{URL: url}
	conn, err := tr.Connect(context.Background())
	if err != nil {
		panic(err)
	}
	return conn.(*streamableClientConn)
}

func TestClassifyStatusMapping(t *testing.T) {
	c := newTestClientConn("http://example.invalid")
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusOK, nil},
		{http.StatusAccepted, nil},
		{http.StatusBadRequest, nil}, // checked separately below: *JSONRPCError
		{http.StatusUnauthorized, ErrAuthenticationRequired},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusMethodNotAllowed, ErrMethodNotAllowed},
		{http.StatusRequestTimeout, ErrRequestTimeout},
		{http.StatusTooManyRequests, ErrTooManyRequests},
	}
	for _, tc := range cases {
		resp := &http.Response{StatusCode: tc.status, Body: io.NopCloser(strings.NewReader(""))}
		err := c.classifyStatus(resp, false, false)
		if tc.status == http.StatusBadRequest {
			if _, ok := err.(*JSONRPCError); !ok {
				t.Errorf("status %d: err = %v (%T), want *JSONRPCError", tc.status, err, err)
			}
			continue
		}
		if err != tc.want {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestClassifyStatusNotFoundClearsSessionIDWhenSessionHeld(t *testing.T) {
	c := newTestClientConn("http://example.invalid")
	c.sessionID = "some-session"
	resp := &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}
	if err := c.classifyStatus(resp, true, false); err != ErrSessionExpired {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
	if c.SessionID() != "" {
		t.Errorf("sessionID = %q, want empty after 404", c.SessionID())
	}
}

func TestClassifyStatusNotFoundWithoutSessionIsEndpointNotFound(t *testing.T) {
	c := newTestClientConn("http://example.invalid")
	resp := &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}
	if err := c.classifyStatus(resp, false, false); err != ErrEndpointNotFound {
		t.Errorf("err = %v, want ErrEndpointNotFound", err)
	}
}

func TestClassifyStatusNotFoundOnInitializeIsEndpointNotFound(t *testing.T) {
	c := newTestClientConn("http://example.invalid")
	c.sessionID = "some-session"
	resp := &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}
	if err := c.classifyStatus(resp, true, true); err != ErrEndpointNotFound {
		t.Errorf("err = %v, want ErrEndpointNotFound (initialize 404 is never session expiry)", err)
	}
	if c.SessionID() != "some-session" {
		t.Errorf("sessionID = %q, want unchanged", c.SessionID())
	}
}

func TestClassifyStatusServerErrorCarriesBody(t *testing.T) {
	c := newTestClientConn("http://example.invalid")
	resp := &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader("boom"))}
	err := c.classifyStatus(resp, false, false)
	se, ok := err.(*ServerError)
	if !ok {
		t.Fatalf("err = %v (%T), want *ServerError", err, err)
	}
	if se.Status != 500 || se.Body != "boom" {
		t.Errorf("ServerError = %+v, want {500 boom}", se)
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	opts := StreamableClientOptions{
		InitialRetry: time.Second,
		MaxRetry:     10 * time.Second,
		RetryFactor:  2,
		MaxRetries:   5,
	}
	got := backoffDelay(opts, 0)
	if got != time.Second {
		t.Errorf("attempt 0 = %v, want 1s", got)
	}
	got = backoffDelay(opts, 2)
	if got != 4*time.Second {
		t.Errorf("attempt 2 = %v, want 4s", got)
	}
	got = backoffDelay(opts, 10)
	if got != 10*time.Second {
		t.Errorf("attempt 10 = %v, want capped at 10s", got)
	}
}

func TestStreamableClientWriteJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Mcp-Session-Id", "sess-1")
		w.Header().Set("Content-Type", "application/json")
		resp := &JSONRPCResponse{ID: newInt64ID(1), Result: []byte(`{"ok":true}`)}
		data, _ := writeMessage(resp)
		w.Write(data)
	}))
	defer srv.Close()

	c := newTestClientConn(srv.URL)
	req := &JSONRPCRequest{ID: newInt64ID(1), Method: "ping"}
	if err := c.Write(context.Background(), req, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if c.SessionID() != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", c.SessionID())
	}
	select {
	case tm := <-c.incoming:
		resp, ok := tm.Message.(*JSONRPCResponse)
		if !ok {
			t.Fatalf("got %T, want *JSONRPCResponse", tm.Message)
		}
		if string(resp.Result) != `{"ok":true}` {
			t.Errorf("Result = %s", resp.Result)
		}
	default:
		t.Fatal("no message delivered to incoming")
	}
}

func TestStreamableClientWriteAcceptedNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClientConn(srv.URL)
	n := &JSONRPCNotification{Method: "notifications/initialized"}
	if err := c.Write(context.Background(), n, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestStreamableClientWriteSSEResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		resp := &JSONRPCResponse{ID: newInt64ID(7), Result: []byte(`{"ok":true}`)}
		data, _ := writeMessage(resp)
		writeEvent(w, sseEvent{id: "1", data: data})
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}))
	defer srv.Close()

	c := newTestClientConn(srv.URL)
	req := &JSONRPCRequest{ID: newInt64ID(7), Method: "ping"}
	if err := c.Write(context.Background(), req, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	select {
	case tm := <-c.incoming:
		resp, ok := tm.Message.(*JSONRPCResponse)
		if !ok || !resp.ID.Equal(newInt64ID(7)) {
			t.Fatalf("got %+v, want response id 7", tm.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SSE-delivered response")
	}
}

func TestStreamableClientTerminateSession(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClientConn(srv.URL)
	c.sessionID = "sess-1"
	if err := c.TerminateSession(context.Background()); err != nil {
		t.Fatalf("TerminateSession: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", gotMethod)
	}
	if c.SessionID() != "" {
		t.Errorf("sessionID = %q, want cleared", c.SessionID())
	}
}

func TestStreamableClientTerminateSessionMethodNotAllowedKeepsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	c := newTestClientConn(srv.URL)
	c.sessionID = "sess-1"
	if err := c.TerminateSession(context.Background()); err != nil {
		t.Fatalf("TerminateSession: %v", err)
	}
	if c.SessionID() != "sess-1" {
		t.Errorf("sessionID = %q, want unchanged (405 means server doesn't support termination)", c.SessionID())
	}
}
