// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc

import "testing"

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{ID: Int64ID(1), Method: "initialize"}
	data, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := msg.(*Request)
	if !ok {
		t.Fatalf("got %T, want *Request", msg)
	}
	if got.Method != "initialize" || !got.ID.Equal(req.ID) {
		t.Errorf("got %+v, want %+v", got, req)
	}
}

func TestReadBatch(t *testing.T) {
	data := []byte(`[{"jsonrpc":"2.0","id":1,"method":"a"},{"jsonrpc":"2.0","id":2,"method":"b"}]`)
	msgs, isBatch, err := ReadBatch(data)
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if !isBatch {
		t.Error("isBatch = false, want true")
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestReadBatchRejectsEmpty(t *testing.T) {
	if _, _, err := ReadBatch([]byte(`[]`)); err == nil {
		t.Error("ReadBatch([]) succeeded, want error")
	}
}
