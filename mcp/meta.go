// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"github.com/pinnaclelabs/mcpengine/internal/json"
)

// progressTokenKey is the key under which the engine stores a progress
// token inside a request's _meta object.
const progressTokenKey = "progressToken"

// Meta is the reserved "_meta" field carried by every params/result object.
// It is embedded anonymously so that embedding structs promote GetMeta and
// SetMeta, letting the progress-token helpers operate on any Params value
// without a type switch over every method.
//
// Meta is a map rather than a struct so that it can carry arbitrary keys.
// The parameter and result types embed it with the tag "_meta,omitempty",
// so a nil or empty Meta is omitted when marshalled: an explicitly empty
// {} is not distinguished from an absent _meta on the wire.
type Meta map[string]any

// GetMeta returns m itself, satisfying the metaGetter interface promoted
// onto any struct that embeds Meta.
func (m Meta) GetMeta() map[string]any { return m }

// SetMeta replaces the contents of m in place.
func (m *Meta) SetMeta(v map[string]any) { *m = v }

// Params is implemented by the request/notification parameter types that
// keep a progress token in _meta. ProgressNotificationParams, which carries
// its token as a top-level field, does not implement it.
type Params interface {
	isParams()
	GetProgressToken() any
	SetProgressToken(any)
	GetMeta() map[string]any
}

// Result is implemented by every response result type.
type Result interface {
	isResult()
}

type metaGetter interface {
	GetMeta() map[string]any
}

type metaSetter interface {
	SetMeta(map[string]any)
}

// getProgressToken extracts the progress token from x's _meta field, or nil
// if x has no _meta or no progress token set.
func getProgressToken(x metaGetter) any {
	meta := x.GetMeta()
	if meta == nil {
		return nil
	}
	return meta[progressTokenKey]
}

// setProgressToken sets the progress token in x's _meta field, preserving
// any other keys already present.
func setProgressToken(x any, token any) {
	s, ok := x.(metaSetter)
	if !ok {
		return
	}
	g := x.(metaGetter)
	meta := g.GetMeta()
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta[progressTokenKey] = token
	s.SetMeta(meta)
}

// mergeProgressToken decode-mutate-encodes raw params bytes, merging
// {"_meta":{"progressToken": id, ...}} into whatever _meta object (if any)
// is already present, preserving every other key. Any caller-supplied
// progressToken is overwritten by id.
//
// This operates on raw JSON rather than a typed Params value because the
// protocol engine attaches progress tokens to outgoing requests whose
// params may be caller-provided untyped values (map[string]any, or a
// pointer to an application struct the engine knows nothing about).
func mergeProgressToken(params json.RawMessage, id any) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if len(params) == 0 {
		obj = make(map[string]json.RawMessage)
	} else if err := json.Unmarshal(params, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		// params was JSON null, as produced for nil params.
		obj = make(map[string]json.RawMessage)
	}

	var meta map[string]json.RawMessage
	if raw, ok := obj["_meta"]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
	}
	if meta == nil {
		meta = make(map[string]json.RawMessage, 1)
	}
	tokenBytes, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	meta[progressTokenKey] = tokenBytes

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	obj["_meta"] = metaBytes

	return json.Marshal(obj)
}
