// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"testing"
)

func newTestSession(caps *ServerCapabilities) *Session {
	client, _ := NewInMemoryTransports(4)
	conn, _ := client.Connect(context.Background())
	s := newSession(RoleServer, conn, map[string]Handler{})
	s.serverCapabilities = caps
	return s
}

func TestNotifyGatedOnMissingCapability(t *testing.T) {
	s := newTestSession(&ServerCapabilities{})
	defer s.Close()

	if err := s.NotifyToolsListChanged(context.Background()); err == nil {
		t.Fatal("NotifyToolsListChanged succeeded without tools capability, want error")
	}
	if err := s.NotifyResourcesListChanged(context.Background()); err == nil {
		t.Fatal("NotifyResourcesListChanged succeeded without resources capability, want error")
	}
	if err := s.NotifyResourceUpdated(context.Background(), "file:///x"); err == nil {
		t.Fatal("NotifyResourceUpdated succeeded without resources.subscribe, want error")
	}
	if err := s.NotifyPromptsListChanged(context.Background()); err == nil {
		t.Fatal("NotifyPromptsListChanged succeeded without prompts capability, want error")
	}
}

func TestNotifyAllowedWhenCapabilityAdvertised(t *testing.T) {
	s := newTestSession(&ServerCapabilities{
		Tools:     &ToolCapabilities{},
		Prompts:   &PromptCapabilities{},
		Resources: &ResourceCapabilities{Subscribe: true},
	})
	defer s.Close()

	if err := s.NotifyToolsListChanged(context.Background()); err != nil {
		t.Errorf("NotifyToolsListChanged: %v", err)
	}
	if err := s.NotifyPromptsListChanged(context.Background()); err != nil {
		t.Errorf("NotifyPromptsListChanged: %v", err)
	}
	if err := s.NotifyResourcesListChanged(context.Background()); err != nil {
		t.Errorf("NotifyResourcesListChanged: %v", err)
	}
	if err := s.NotifyResourceUpdated(context.Background(), "file:///x"); err != nil {
		t.Errorf("NotifyResourceUpdated: %v", err)
	}
}

func TestNotifyNilCapabilitiesRejectsEverything(t *testing.T) {
	s := newTestSession(nil)
	defer s.Close()

	if err := s.NotifyToolsListChanged(context.Background()); err == nil {
		t.Fatal("NotifyToolsListChanged succeeded with nil capabilities, want error")
	}
}
