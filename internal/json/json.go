// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package json centralizes the JSON codec used for wire encoding, so the
// rest of the module can swap implementations in one place.
package json

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"

	segjson "github.com/segmentio/encoding/json"
)

// RawMessage is an alias for the standard library's RawMessage, so callers
// can build struct tags without importing encoding/json themselves.
type RawMessage = stdjson.RawMessage

// Marshal encodes v as JSON using the module's wire codec.
func Marshal(v any) ([]byte, error) {
	return segjson.Marshal(v)
}

// Unmarshal decodes JSON data into v using the module's wire codec. Unlike
// encoding/json, object keys are matched to struct fields case-sensitively.
func Unmarshal(data []byte, v any) error {
	rest, err := segjson.Parse(data, v, segjson.DontMatchCaseInsensitiveStructFields)
	if err == nil {
		if rest = bytes.TrimSpace(rest); len(rest) != 0 {
			err = fmt.Errorf("json: invalid character %q after top-level value", rest[0])
		}
	}
	return err
}

// Valid reports whether data is well-formed JSON.
func Valid(data []byte) bool {
	return segjson.Valid(data)
}
