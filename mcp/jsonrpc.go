// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"github.com/pinnaclelabs/mcpengine/jsonrpc"
)

// These aliases let the rest of package mcp use bare JSON-RPC names while
// the actual types live in the public jsonrpc package (which in turn
// re-exports internal/jsonrpc2). The indirection exists because
// internal/jsonrpc2 cannot import mcp — keeping mcp's dependency on the
// wire types one-directional.
type (
	JSONRPCID           = jsonrpc.ID
	jsonrpcID           = jsonrpc.ID
	JSONRPCMessage      = jsonrpc.Message
	JSONRPCRequest      = jsonrpc.Request
	JSONRPCResponse     = jsonrpc.Response
	JSONRPCNotification = jsonrpc.Notification
	JSONRPCError        = jsonrpc.WireError
)

const (
	CodeParseError       = jsonrpc.CodeParseError
	CodeInvalidRequest   = jsonrpc.CodeInvalidRequest
	CodeMethodNotFound   = jsonrpc.CodeMethodNotFound
	CodeInvalidParams    = jsonrpc.CodeInvalidParams
	CodeInternalError    = jsonrpc.CodeInternalError
	CodeResourceNotFound = jsonrpc.CodeResourceNotFound
)

func newStringID(s string) jsonrpcID { return jsonrpc.StringID(s) }
func newInt64ID(n int64) jsonrpcID   { return jsonrpc.Int64ID(n) }

func readBatch(data []byte) ([]JSONRPCMessage, bool, error) { return jsonrpc.ReadBatch(data) }
func writeBatch(msgs []JSONRPCMessage) ([]byte, error)       { return jsonrpc.EncodeBatch(msgs) }
func writeMessage(msg JSONRPCMessage) ([]byte, error)        { return jsonrpc.Encode(msg) }
func decodeMessage(data []byte) (JSONRPCMessage, error)      { return jsonrpc.Decode(data) }
