// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"bytes"
	"fmt"

	"github.com/pinnaclelabs/mcpengine/internal/json"
)

// Encode serializes a single message.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *Request:
		return json.Marshal(m)
	case *Notification:
		return json.Marshal(m)
	case *Response:
		return json.Marshal(m)
	default:
		return nil, fmt.Errorf("jsonrpc2: unknown message type %T", msg)
	}
}

// EncodeBatch serializes msgs as a JSON array. len(msgs) must be > 0; the
// spec forbids empty batches.
func EncodeBatch(msgs []Message) ([]byte, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("jsonrpc2: cannot encode an empty batch")
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, m := range msgs {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := Encode(m)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ReadBatch parses data as either a single JSON-RPC message or a batch
// (JSON array) of messages, returning the decoded messages and whether the
// input was a batch.
//
// Per the JSON-RPC 2.0 spec, an empty array is itself an invalid request.
func ReadBatch(data []byte) ([]Message, bool, error) {
	if !json.Valid(data) {
		return nil, false, fmt.Errorf("%w: %s", ErrParse, firstLine(data))
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		msg, err := Decode(data)
		if err != nil {
			return nil, false, err
		}
		return []Message{msg}, false, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(raws) == 0 {
		return nil, true, &ClassifyError{Message: "invalid request: batch must not be empty"}
	}
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := Decode(raw)
		if err != nil {
			return nil, true, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, true, nil
}
