// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jsonrpc2 implements JSON-RPC 2.0 message framing: the wire
// message types, their classification, and strict decoding. It has no
// knowledge of MCP methods; that lives in the mcp package, which imports
// this package's types via the public jsonrpc package.
package jsonrpc2

import (
	"fmt"

	"github.com/pinnaclelabs/mcpengine/internal/json"
)

// Version is the only JSON-RPC version this module speaks.
const Version = "2.0"

// Message is implemented by Request, Notification, and Response. It is a
// closed set: callers outside this package cannot add new implementations.
type Message interface {
	isMessage()
}

// Request is a JSON-RPC request: it carries an id and expects a Response.
type Request struct {
	ID     ID
	Method string
	Params json.RawMessage
}

// Notification is a JSON-RPC request with no id: no response is expected.
type Notification struct {
	Method string
	Params json.RawMessage
}

// Response is a JSON-RPC response: exactly one of Result or Error is set.
type Response struct {
	ID     ID
	Result json.RawMessage
	Error  *WireError
}

func (*Request) isMessage()      {}
func (*Notification) isMessage() {}
func (*Response) isMessage()     {}

// wireMessage is the on-the-wire shape shared by all message kinds; which
// fields are populated determines the kind (see Classify).
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

func (r *Request) MarshalJSON() ([]byte, error) {
	id := r.ID
	return json.Marshal(wireMessage{JSONRPC: Version, ID: &id, Method: r.Method, Params: r.Params})
}

func (n *Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{JSONRPC: Version, Method: n.Method, Params: n.Params})
}

func (resp *Response) MarshalJSON() ([]byte, error) {
	id := resp.ID
	w := wireMessage{JSONRPC: Version, ID: &id, Error: resp.Error}
	if resp.Error == nil {
		w.Result = resp.Result
		if w.Result == nil {
			w.Result = json.RawMessage("null")
		}
	}
	return json.Marshal(w)
}

// ClassifyError reports a message that is syntactically valid JSON but is
// not a well-formed JSON-RPC 2.0 envelope. Its Code is always
// CodeInvalidRequest; the caller decides whether an id was recoverable.
type ClassifyError struct {
	ID      ID // zero if no id could be recovered
	HasID   bool
	Message string
}

func (e *ClassifyError) Error() string { return e.Message }

// Decode parses a single (non-batch) JSON-RPC message.
//
// A malformed-JSON input returns an error satisfying errors.Is(err,
// ErrParse); a syntactically valid but non-conformant envelope (missing or
// wrong "jsonrpc", or neither "method" nor an id with "result"/"error"
// present) returns a *ClassifyError. A message carrying "method" is a
// Request or Notification even if "result" or "error" is also present.
func Decode(data []byte) (Message, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrParse, firstLine(data))
	}
	var w wireMessage
	if err := StrictUnmarshal(data, &w); err != nil {
		return nil, err
	}
	return classify(w)
}

// DecodeMessage is Decode under the name used elsewhere in this package's
// tests and callers that predate the jsonrpc2/jsonrpc split.
func DecodeMessage(data []byte) (Message, error) {
	return Decode(data)
}

func classify(w wireMessage) (Message, error) {
	if w.JSONRPC != Version {
		return nil, &ClassifyError{
			ID:      idOrZero(w.ID),
			HasID:   w.ID != nil,
			Message: fmt.Sprintf(`invalid request: "jsonrpc" must be %q`, Version),
		}
	}
	switch {
	case w.Method != "" && w.ID != nil:
		return &Request{ID: *w.ID, Method: w.Method, Params: w.Params}, nil
	case w.Method != "":
		return &Notification{Method: w.Method, Params: w.Params}, nil
	case w.ID != nil && (w.Result != nil || w.Error != nil):
		return &Response{ID: *w.ID, Result: w.Result, Error: w.Error}, nil
	default:
		return nil, &ClassifyError{
			ID:      idOrZero(w.ID),
			HasID:   w.ID != nil,
			Message: "invalid request: could not classify as request, notification, or response",
		}
	}
}

func idOrZero(id *ID) ID {
	if id == nil {
		return ID{}
	}
	return *id
}

func firstLine(data []byte) string {
	const max = 80
	for i, b := range data {
		if b == '\n' || i == max {
			return string(data[:i]) + "…"
		}
	}
	return string(data)
}
