// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"fmt"
	"strconv"

	"github.com/pinnaclelabs/mcpengine/internal/json"
)

type idKind int

const (
	idInvalid idKind = iota
	idString
	idInt
)

// ID is a JSON-RPC request identifier: either a string or an integer,
// never both, and distinguishable from the zero value of either.
//
// The spec permits numeric ids to be any JSON number, but every MCP
// implementation in the wild emits integers, so ID only models that case.
type ID struct {
	kind idKind
	str  string
	num  int64
}

// StringID returns an ID holding the given string.
func StringID(s string) ID { return ID{kind: idString, str: s} }

// Int64ID returns an ID holding the given integer.
func Int64ID(n int64) ID { return ID{kind: idInt, num: n} }

// IsValid reports whether id holds a value (as opposed to the zero ID,
// which denotes "no id" — a notification).
func (id ID) IsValid() bool { return id.kind != idInvalid }

// Raw returns the underlying string or int64 value, or nil if id is not
// valid.
func (id ID) Raw() any {
	switch id.kind {
	case idString:
		return id.str
	case idInt:
		return id.num
	default:
		return nil
	}
}

func (id ID) String() string {
	switch id.kind {
	case idString:
		return id.str
	case idInt:
		return strconv.FormatInt(id.num, 10)
	default:
		return "<invalid>"
	}
}

// Equal reports whether id and other denote the same request id.
func (id ID) Equal(other ID) bool {
	return id.kind == other.kind && id.str == other.str && id.num == other.num
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idString:
		return json.Marshal(id.str)
	case idInt:
		return json.Marshal(id.num)
	default:
		return []byte("null"), nil
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = StringID(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = Int64ID(n)
		return nil
	}
	return fmt.Errorf("jsonrpc2: id %s is neither a string nor an integer", data)
}
