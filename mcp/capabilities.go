// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import "fmt"

// LatestProtocolVersion is the version this engine prefers when a peer
// doesn't request one, or requests one it doesn't recognize.
const LatestProtocolVersion = "2025-06-18"

// SupportedProtocolVersions are the versions this engine can speak,
// newest first.
var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

func isSupportedVersion(v string) bool {
	for _, s := range SupportedProtocolVersions {
		if s == v {
			return true
		}
	}
	return false
}

// negotiateVersion picks the protocol version a server should reply with
// given the version the client requested: the client's version if this
// engine supports it, else the latest version this engine supports. A
// client that cannot accept the returned version must disconnect; this
// engine never rejects initialize on this basis alone.
func negotiateVersion(requested string) string {
	if isSupportedVersion(requested) {
		return requested
	}
	return LatestProtocolVersion
}

// serverMethodCapability maps a registered method name to the server
// capability it implies, for automatic capability inference from a handler
// registry. Methods with no entry here don't contribute to inferred
// capabilities. Inference only adds to the caller's explicitly configured
// Capabilities; it never removes anything configured there.
var serverMethodCapability = map[string]func(*ServerCapabilities){
	"tools/list":              func(c *ServerCapabilities) { ensureTools(c) },
	"tools/call":              func(c *ServerCapabilities) { ensureTools(c) },
	"prompts/list":            func(c *ServerCapabilities) { ensurePrompts(c) },
	"prompts/get":             func(c *ServerCapabilities) { ensurePrompts(c) },
	"resources/list":          func(c *ServerCapabilities) { ensureResources(c) },
	"resources/read":          func(c *ServerCapabilities) { ensureResources(c) },
	"resources/subscribe":     func(c *ServerCapabilities) { ensureResources(c).Subscribe = true },
	"logging/setLevel":        func(c *ServerCapabilities) { ensureLogging(c) },
	"completion/complete":     func(c *ServerCapabilities) { ensureCompletions(c) },
}

func ensureTools(c *ServerCapabilities) *ToolCapabilities {
	if c.Tools == nil {
		c.Tools = &ToolCapabilities{}
	}
	return c.Tools
}

func ensurePrompts(c *ServerCapabilities) *PromptCapabilities {
	if c.Prompts == nil {
		c.Prompts = &PromptCapabilities{}
	}
	return c.Prompts
}

func ensureResources(c *ServerCapabilities) *ResourceCapabilities {
	if c.Resources == nil {
		c.Resources = &ResourceCapabilities{}
	}
	return c.Resources
}

func ensureLogging(c *ServerCapabilities) *LoggingCapabilities {
	if c.Logging == nil {
		c.Logging = &LoggingCapabilities{}
	}
	return c.Logging
}

func ensureCompletions(c *ServerCapabilities) *CompletionCapabilities {
	if c.Completions == nil {
		c.Completions = &CompletionCapabilities{}
	}
	return c.Completions
}

// inferServerCapabilities augments base (the caller's explicitly configured
// capabilities, which may be nil) with capabilities implied by the set of
// registered handler methods. base is not mutated; when no handlers are
// registered the returned value is base itself (or a new empty value if
// base is nil), otherwise it is a clone of base with the inferred
// capabilities added.
func inferServerCapabilities(base *ServerCapabilities, handlers map[string]Handler) *ServerCapabilities {
	if len(handlers) == 0 {
		if base == nil {
			return &ServerCapabilities{}
		}
		return base
	}
	cp := base.clone()
	if cp == nil {
		cp = &ServerCapabilities{}
	}
	for method := range handlers {
		if f, ok := serverMethodCapability[method]; ok {
			f(cp)
		}
	}
	return cp
}

// checkCapability returns a *CapabilityUnavailableError if the peer's
// capabilities don't support the named feature. which is a dotted path
// such as "tools" or "sampling" for use in the error message.
func checkCapability(present bool, which string) error {
	if !present {
		return &CapabilityUnavailableError{Which: which}
	}
	return nil
}

func (c *ClientCapabilities) String() string {
	if c == nil {
		return "ClientCapabilities{}"
	}
	return fmt.Sprintf("ClientCapabilities{Sampling:%v,Elicitation:%v,Roots:%v}",
		c.Sampling != nil, c.Elicitation != nil, c.Roots != nil)
}
