// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

// Control-plane types for protocol version 2025-06-18: initialization,
// capability negotiation, cancellation, progress, and ping. The higher-level
// tool/prompt/resource/sampling/elicitation registries these capabilities
// advertise are external collaborators; this package models their presence
// markers only, not their behavior.

import (
	"maps"
)

// Implementation describes either end of a connection: the client or the
// server.
type Implementation struct {
	// Name is intended for programmatic or logical use, but is used as a
	// display name in past specs or as a fallback if Title isn't present.
	Name string `json:"name"`
	// Title is intended for UI and end-user contexts.
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
	// WebsiteURL for the implementation, if any.
	WebsiteURL string `json:"websiteUrl,omitempty"`
	// Icons for the implementation, if any.
	Icons []Icon `json:"icons,omitempty"`
}

// IconTheme specifies the background an icon is designed for.
type IconTheme string

const (
	IconThemeLight IconTheme = "light"
	IconThemeDark  IconTheme = "dark"
)

// Icon provides a visual identifier for an implementation.
type Icon struct {
	// Source is a URI pointing to the icon resource: an HTTP/HTTPS URL, or a
	// data URI with base64-encoded image data.
	Source   string   `json:"src"`
	MIMEType string   `json:"mimeType,omitempty"`
	Sizes    []string `json:"sizes,omitempty"`
	Theme    IconTheme `json:"theme,omitempty"`
}

// RootCapabilities describes a client's support for roots.
type RootCapabilities struct {
	// ListChanged reports whether the client supports notifications for
	// changes to the roots list.
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapabilities describes a client's support for sampling from an LLM.
// The sampling protocol itself is an external collaborator; this capability
// only records presence.
type SamplingCapabilities struct {
	Context *SamplingContextCapabilities `json:"context,omitempty"`
	Tools   *SamplingToolsCapabilities   `json:"tools,omitempty"`
}

type SamplingContextCapabilities struct{}
type SamplingToolsCapabilities struct{}

// ElicitationCapabilities describes a client's support for elicitation.
type ElicitationCapabilities struct {
	Form *FormElicitationCapabilities `json:"form,omitempty"`
	URL  *URLElicitationCapabilities  `json:"url,omitempty"`
}

type FormElicitationCapabilities struct{}
type URLElicitationCapabilities struct{}

// TasksCapabilities describes a client or server's support for the
// background task system. The task system itself is an external
// collaborator; this package negotiates only its presence.
type TasksCapabilities struct{}

// ClientCapabilities describes capabilities a client may support. Known
// capabilities are defined here, but this is not a closed set: any client
// can advertise its own additional capabilities via Experimental and
// Extensions.
type ClientCapabilities struct {
	// NOTE: any addition here must also be reflected in [ClientCapabilities.clone].

	// Experimental reports non-standard capabilities the client supports.
	// Callers should not modify the map after assigning it.
	Experimental map[string]any `json:"experimental,omitempty"`
	// Extensions reports extensions the client supports, keyed by
	// "{vendor-prefix}/{extension-name}". Use [ClientCapabilities.AddExtension]
	// to ensure nil settings are normalized to empty objects.
	Extensions map[string]any `json:"extensions,omitempty"`
	// Roots describes the client's support for roots.
	Roots *RootCapabilities `json:"roots,omitempty"`
	// Sampling is present if the client supports sampling from an LLM.
	Sampling *SamplingCapabilities `json:"sampling,omitempty"`
	// Elicitation is present if the client supports elicitation from the server.
	Elicitation *ElicitationCapabilities `json:"elicitation,omitempty"`
	// Tasks is present if the client supports the background task system.
	Tasks *TasksCapabilities `json:"tasks,omitempty"`
}

// AddExtension adds an extension with the given name and settings. If
// settings is nil, an empty map is used: the spec requires an object, not
// null.
func (c *ClientCapabilities) AddExtension(name string, settings map[string]any) {
	if c.Extensions == nil {
		c.Extensions = make(map[string]any)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	c.Extensions[name] = settings
}

func (c *ClientCapabilities) clone() *ClientCapabilities {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Experimental = maps.Clone(c.Experimental)
	cp.Extensions = maps.Clone(c.Extensions)
	cp.Roots = shallowClone(c.Roots)
	cp.Sampling = shallowClone(c.Sampling)
	cp.Elicitation = shallowClone(c.Elicitation)
	cp.Tasks = shallowClone(c.Tasks)
	return &cp
}

// shallowClone returns a shallow clone of *p, or nil if p is nil.
func shallowClone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	x := *p
	return &x
}

// CompletionCapabilities describes a server's support for argument
// autocompletion.
type CompletionCapabilities struct{}

// LoggingCapabilities describes a server's support for sending log messages
// to the client.
type LoggingCapabilities struct{}

// PromptCapabilities describes a server's support for prompts.
type PromptCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourceCapabilities describes a server's support for resources.
type ResourceCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
	Subscribe   bool `json:"subscribe,omitempty"`
}

// ToolCapabilities describes a server's support for tools.
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerCapabilities describes capabilities that a server supports.
type ServerCapabilities struct {
	// NOTE: any addition here must also be reflected in [ServerCapabilities.clone].

	Experimental map[string]any          `json:"experimental,omitempty"`
	Extensions   map[string]any          `json:"extensions,omitempty"`
	Completions  *CompletionCapabilities `json:"completions,omitempty"`
	Logging      *LoggingCapabilities    `json:"logging,omitempty"`
	Prompts      *PromptCapabilities     `json:"prompts,omitempty"`
	Resources    *ResourceCapabilities   `json:"resources,omitempty"`
	Tools        *ToolCapabilities       `json:"tools,omitempty"`
	Tasks        *TasksCapabilities      `json:"tasks,omitempty"`
}

// AddExtension adds an extension with the given name and settings.
func (c *ServerCapabilities) AddExtension(name string, settings map[string]any) {
	if c.Extensions == nil {
		c.Extensions = make(map[string]any)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	c.Extensions[name] = settings
}

func (c *ServerCapabilities) clone() *ServerCapabilities {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Experimental = maps.Clone(c.Experimental)
	cp.Extensions = maps.Clone(c.Extensions)
	cp.Completions = shallowClone(c.Completions)
	cp.Logging = shallowClone(c.Logging)
	cp.Prompts = shallowClone(c.Prompts)
	cp.Resources = shallowClone(c.Resources)
	cp.Tools = shallowClone(c.Tools)
	cp.Tasks = shallowClone(c.Tasks)
	return &cp
}

// InitializeParams are the parameters of an initialize request.
type InitializeParams struct {
	// Meta is reserved by the protocol for metadata such as a progress token.
	Meta `json:"_meta,omitempty"`
	// Capabilities describes the client's capabilities.
	Capabilities *ClientCapabilities `json:"capabilities"`
	// ClientInfo identifies the client.
	ClientInfo *Implementation `json:"clientInfo"`
	// ProtocolVersion is the latest version of MCP the client supports.
	ProtocolVersion string `json:"protocolVersion"`
}

func (x *InitializeParams) isParams()             {}
func (x *InitializeParams) GetProgressToken() any { return getProgressToken(x) }
func (x *InitializeParams) SetProgressToken(t any) { setProgressToken(x, t) }

// InitializeResult is the server's response to an initialize request.
type InitializeResult struct {
	Meta `json:"_meta,omitempty"`
	// Capabilities describes the server's capabilities.
	Capabilities *ServerCapabilities `json:"capabilities"`
	// Instructions describing how to use the server and its features. Clients
	// may surface this to the model, e.g. in a system prompt.
	Instructions string `json:"instructions,omitempty"`
	// ProtocolVersion is the version the server wants to use; it may not
	// match what the client requested, in which case the client must
	// disconnect if it cannot support it.
	ProtocolVersion string          `json:"protocolVersion"`
	ServerInfo      *Implementation `json:"serverInfo"`
}

func (*InitializeResult) isResult() {}

// InitializedParams are the parameters of the notifications/initialized
// notification a client sends after a successful initialize exchange.
type InitializedParams struct {
	Meta `json:"_meta,omitempty"`
}

func (x *InitializedParams) isParams()             {}
func (x *InitializedParams) GetProgressToken() any { return getProgressToken(x) }
func (x *InitializedParams) SetProgressToken(t any) { setProgressToken(x, t) }

// CancelledParams are the parameters of a notifications/cancelled
// notification.
type CancelledParams struct {
	Meta `json:"_meta,omitempty"`
	// Reason optionally describes why the request was cancelled. May be
	// logged or presented to the user.
	Reason string `json:"reason,omitempty"`
	// RequestID is the id of the request to cancel; it must correspond to a
	// request previously issued in the same direction.
	RequestID any `json:"requestId"`
}

func (x *CancelledParams) isParams()             {}
func (x *CancelledParams) GetProgressToken() any { return getProgressToken(x) }
func (x *CancelledParams) SetProgressToken(t any) { setProgressToken(x, t) }

// ProgressNotificationParams are the parameters of a notifications/progress
// notification.
type ProgressNotificationParams struct {
	Meta `json:"_meta,omitempty"`
	// ProgressToken was given in the initial request and associates this
	// notification with the request that is proceeding.
	ProgressToken any `json:"progressToken"`
	// Message optionally describes the current progress.
	Message string `json:"message,omitempty"`
	// Progress increases every time progress is made, even if Total is
	// unknown.
	Progress float64 `json:"progress"`
	// Total is the total number of items to process, if known. Zero means
	// unknown.
	Total float64 `json:"total,omitempty"`
}

func (*ProgressNotificationParams) isParams() {}

// PingParams are the parameters of a ping request.
type PingParams struct {
	Meta `json:"_meta,omitempty"`
}

func (x *PingParams) isParams()             {}
func (x *PingParams) GetProgressToken() any { return getProgressToken(x) }
func (x *PingParams) SetProgressToken(t any) { setProgressToken(x, t) }

const (
	methodInitialize         = "initialize"
	notificationInitialized  = "notifications/initialized"
	notificationCancelled    = "notifications/cancelled"
	notificationProgress     = "notifications/progress"
	methodPing               = "ping"
)
