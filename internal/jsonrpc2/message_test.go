// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"errors"
	"testing"
)

func TestDecodeClassification(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    any // *Request, *Notification, or *Response, compared by type
		wantErr bool
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, &Request{}, false},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, &Notification{}, false},
		{"response", `{"jsonrpc":"2.0","id":1,"result":{}}`, &Response{}, false},
		{"error response", `{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"bad"}}`, &Response{}, false},
		{"missing jsonrpc", `{"id":1,"method":"ping"}`, nil, true},
		{"wrong jsonrpc version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, nil, true},
		{"neither request nor response", `{"jsonrpc":"2.0"}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var ce *ClassifyError
				if !errors.As(err, &ce) {
					t.Errorf("error is not a *ClassifyError: %v", err)
				}
				return
			}
			switch tt.want.(type) {
			case *Request:
				if _, ok := got.(*Request); !ok {
					t.Errorf("got %T, want *Request", got)
				}
			case *Notification:
				if _, ok := got.(*Notification); !ok {
					t.Errorf("got %T, want *Notification", got)
				}
			case *Response:
				if _, ok := got.(*Response); !ok {
					t.Errorf("got %T, want *Response", got)
				}
			}
		})
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"2.0"`))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Decode() error = %v, want ErrParse", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req := &Request{ID: Int64ID(42), Method: "ping"}
	data, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	gotReq, ok := got.(*Request)
	if !ok {
		t.Fatalf("got %T, want *Request", got)
	}
	if !gotReq.ID.Equal(req.ID) || gotReq.Method != req.Method {
		t.Errorf("round trip mismatch: got %+v, want %+v", gotReq, req)
	}
}
