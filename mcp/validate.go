// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import "context"

// Validator validates a JSON-encoded value against some schema a host
// application owns. The engine never constructs or calls one itself — it
// is a seam for a caller that has its own tool/prompt/resource registry
// and wants schema checking at the boundary, without this module owning
// a JSON-Schema implementation.
type Validator interface {
	Validate(ctx context.Context, schema, value []byte) error
}
