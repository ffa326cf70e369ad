// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"testing"
)

func TestMemoryEventStoreReplayOrder(t *testing.T) {
	store := NewMemoryEventStore()
	ctx := context.Background()

	var ids []string
	for _, payload := range []string{"a", "b", "c"} {
		id, err := store.StoreEvent(ctx, "stream-1", []byte(payload))
		if err != nil {
			t.Fatalf("StoreEvent: %v", err)
		}
		ids = append(ids, id)
	}

	var replayed []string
	streamID, err := store.ReplayEventsAfter(ctx, ids[0], func(eventID string, payload []byte) error {
		replayed = append(replayed, string(payload))
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayEventsAfter: %v", err)
	}
	if streamID != "stream-1" {
		t.Errorf("streamID = %q, want %q", streamID, "stream-1")
	}
	if len(replayed) != 2 || replayed[0] != "b" || replayed[1] != "c" {
		t.Errorf("replayed = %v, want [b c]", replayed)
	}
}

func TestMemoryEventStoreStreamIsolation(t *testing.T) {
	store := NewMemoryEventStore()
	ctx := context.Background()

	idA, _ := store.StoreEvent(ctx, "stream-a", []byte("a1"))
	store.StoreEvent(ctx, "stream-b", []byte("b1"))
	store.StoreEvent(ctx, "stream-a", []byte("a2"))

	var replayed []string
	_, err := store.ReplayEventsAfter(ctx, idA, func(eventID string, payload []byte) error {
		replayed = append(replayed, string(payload))
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayEventsAfter: %v", err)
	}
	if len(replayed) != 1 || replayed[0] != "a2" {
		t.Errorf("replayed = %v, want [a2] (stream-b must not leak in)", replayed)
	}
}

func TestMemoryEventStoreUnknownEventIDReturnsSentinel(t *testing.T) {
	store := NewMemoryEventStore()
	streamID, err := store.ReplayEventsAfter(context.Background(), "bogus", func(string, []byte) error { return nil })
	if err != nil {
		t.Fatalf("ReplayEventsAfter: %v", err)
	}
	if streamID != noStreamContext {
		t.Errorf("streamID = %q, want noStreamContext", streamID)
	}
}

func TestMemoryEventStoreUnknownStreamReturnsSentinel(t *testing.T) {
	store := NewMemoryEventStore()
	ctx := context.Background()
	store.StoreEvent(ctx, "stream-a", []byte("a1"))

	streamID, err := store.ReplayEventsAfter(ctx, encodeEventID("stream-z", 1), func(string, []byte) error { return nil })
	if err != nil {
		t.Fatalf("ReplayEventsAfter: %v", err)
	}
	if streamID != noStreamContext {
		t.Errorf("streamID = %q, want noStreamContext", streamID)
	}
}
