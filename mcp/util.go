// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"crypto/rand"
	"encoding/json"
)

// assert panics with msg if cond is false. Besides internal invariants it
// guards required constructor arguments (NewStreamableHTTPHandler's
// getServer), so a failure can also mean a caller passed a nil argument.
func assert(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}

// randText returns a short random identifier. RandomSessionIDGenerator
// uses it to mint session ids.
func randText() string {
	return rand.Text()
}

// remarshal marshals from to JSON, and then unmarshals into to, which must be
// a pointer type. MemorySessionStore's Load and Store use it to hand out
// and keep deep copies of session state.
func remarshal(from, to any) error {
	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, to); err != nil {
		return err
	}
	return nil
}
