// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import "context"

// Server-initiated list-changed and update notifications. Each is gated
// on the corresponding capability having been advertised during the
// initialize handshake; sending one that wasn't advertised is a
// programming error, not a transport failure, so it is reported rather
// than silently sent.

const (
	notificationResourcesListChanged = "notifications/resources/list_changed"
	notificationResourcesUpdated     = "notifications/resources/updated"
	notificationToolsListChanged     = "notifications/tools/list_changed"
	notificationPromptsListChanged   = "notifications/prompts/list_changed"
)

// NotifyResourcesListChanged tells the client the set of available
// resources changed. Requires the server to have advertised the
// resources capability.
func (s *Session) NotifyResourcesListChanged(ctx context.Context) error {
	if err := s.checkServerCapability(func(c *ServerCapabilities) bool { return c.Resources != nil }, "resources"); err != nil {
		return err
	}
	return s.Notify(ctx, notificationResourcesListChanged, &InitializedParams{})
}

// NotifyResourceUpdated tells subscribed clients that the resource at uri
// changed. Requires the server to have advertised resources.subscribe.
func (s *Session) NotifyResourceUpdated(ctx context.Context, uri string) error {
	if err := s.checkServerCapability(func(c *ServerCapabilities) bool {
		return c.Resources != nil && c.Resources.Subscribe
	}, "resources.subscribe"); err != nil {
		return err
	}
	return s.Notify(ctx, notificationResourcesUpdated, struct {
		URI string `json:"uri"`
	}{uri})
}

// NotifyToolsListChanged tells the client the set of available tools
// changed. Requires the server to have advertised the tools capability.
func (s *Session) NotifyToolsListChanged(ctx context.Context) error {
	if err := s.checkServerCapability(func(c *ServerCapabilities) bool { return c.Tools != nil }, "tools"); err != nil {
		return err
	}
	return s.Notify(ctx, notificationToolsListChanged, &InitializedParams{})
}

// NotifyPromptsListChanged tells the client the set of available prompts
// changed. Requires the server to have advertised the prompts capability.
func (s *Session) NotifyPromptsListChanged(ctx context.Context) error {
	if err := s.checkServerCapability(func(c *ServerCapabilities) bool { return c.Prompts != nil }, "prompts"); err != nil {
		return err
	}
	return s.Notify(ctx, notificationPromptsListChanged, &InitializedParams{})
}

func (s *Session) checkServerCapability(has func(*ServerCapabilities) bool, which string) error {
	s.mu.Lock()
	caps := s.serverCapabilities
	s.mu.Unlock()
	if caps == nil || !has(caps) {
		return &CapabilityUnavailableError{Which: which}
	}
	return nil
}
