// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"errors"
	"fmt"

	"github.com/pinnaclelabs/mcpengine/internal/json"
)

// ErrParse wraps any error produced while decoding malformed JSON; compare
// with errors.Is.
var ErrParse = errors.New("jsonrpc2: parse error")

// Code is a JSON-RPC 2.0 error code.
type Code int64

// Standard JSON-RPC 2.0 error codes, plus the MCP-specific extension used
// for "resource not found".
const (
	CodeParseError      Code = -32700
	CodeInvalidRequest  Code = -32600
	CodeMethodNotFound  Code = -32601
	CodeInvalidParams   Code = -32602
	CodeInternalError   Code = -32603
	CodeResourceNotFound Code = -32002
)

func (c Code) String() string {
	switch c {
	case CodeParseError:
		return "ParseError"
	case CodeInvalidRequest:
		return "InvalidRequest"
	case CodeMethodNotFound:
		return "MethodNotFound"
	case CodeInvalidParams:
		return "InvalidParams"
	case CodeInternalError:
		return "InternalError"
	case CodeResourceNotFound:
		return "ResourceNotFound"
	default:
		return fmt.Sprintf("Code(%d)", int64(c))
	}
}

// WireError is the {code, message, data} object carried by a Response with
// a non-nil Error.
type WireError struct {
	Code    Code            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *WireError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Code, e.Message)
}

// NewError builds a WireError with no Data.
func NewError(code Code, message string) *WireError {
	return &WireError{Code: code, Message: message}
}
