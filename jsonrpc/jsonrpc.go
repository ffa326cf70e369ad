// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jsonrpc exposes the JSON-RPC 2.0 wire types used throughout
// mcpengine. It exists separately from the mcp package so that low-level
// infrastructure (internal/jsonrpc2) can be shared between the protocol
// engine and anything else that needs to speak JSON-RPC without importing
// the mcp package itself, which would create an import cycle.
package jsonrpc

import (
	"github.com/pinnaclelabs/mcpengine/internal/jsonrpc2"
)

// Version is the JSON-RPC version this module speaks.
const Version = jsonrpc2.Version

// ID is a JSON-RPC request identifier.
type ID = jsonrpc2.ID

// StringID returns an ID holding the given string.
func StringID(s string) ID { return jsonrpc2.StringID(s) }

// Int64ID returns an ID holding the given integer.
func Int64ID(n int64) ID { return jsonrpc2.Int64ID(n) }

// Message is implemented by Request, Notification, and Response.
type Message = jsonrpc2.Message

// Request is a JSON-RPC request.
type Request = jsonrpc2.Request

// Notification is a JSON-RPC request with no id.
type Notification = jsonrpc2.Notification

// Response is a JSON-RPC response.
type Response = jsonrpc2.Response

// Code is a JSON-RPC 2.0 error code.
type Code = jsonrpc2.Code

// Standard JSON-RPC 2.0 error codes, plus the MCP-specific extension used
// for "resource not found".
const (
	CodeParseError       = jsonrpc2.CodeParseError
	CodeInvalidRequest   = jsonrpc2.CodeInvalidRequest
	CodeMethodNotFound   = jsonrpc2.CodeMethodNotFound
	CodeInvalidParams    = jsonrpc2.CodeInvalidParams
	CodeInternalError    = jsonrpc2.CodeInternalError
	CodeResourceNotFound = jsonrpc2.CodeResourceNotFound
)

// WireError is the {code, message, data} object carried by a Response with
// a non-nil Error.
type WireError = jsonrpc2.WireError

// NewError builds a WireError with no Data.
func NewError(code Code, message string) *WireError { return jsonrpc2.NewError(code, message) }

// ErrParse is returned (wrapped) by Decode and ReadBatch when data is not
// well-formed JSON; compare with errors.Is.
var ErrParse = jsonrpc2.ErrParse

// ClassifyError reports a message that is syntactically valid JSON but is
// not a well-formed JSON-RPC 2.0 envelope.
type ClassifyError = jsonrpc2.ClassifyError

// Decode parses a single (non-batch) JSON-RPC message.
func Decode(data []byte) (Message, error) { return jsonrpc2.Decode(data) }

// Encode serializes a single message.
func Encode(msg Message) ([]byte, error) { return jsonrpc2.Encode(msg) }

// EncodeBatch serializes msgs as a JSON array.
func EncodeBatch(msgs []Message) ([]byte, error) { return jsonrpc2.EncodeBatch(msgs) }

// ReadBatch parses data as either a single JSON-RPC message or a batch.
func ReadBatch(data []byte) ([]Message, bool, error) { return jsonrpc2.ReadBatch(data) }
