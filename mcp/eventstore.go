// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// noStreamContext is returned as the stream id from ReplayEventsAfter when
// the given event id is unrecognized: the sentinel the contract calls for
// rather than an error, since an unknown Last-Event-ID is a client that
// fell too far behind, not a transport failure.
const noStreamContext = ""

// EventStore backs GET-stream resumability for the stateful Streamable-HTTP
// server transport: every SSE event it emits is first appended here, so a
// client that reconnects with Last-Event-ID can have everything it missed
// replayed in order.
type EventStore interface {
	// StoreEvent appends payload to streamID's event log and returns the
	// new event's id.
	StoreEvent(ctx context.Context, streamID string, payload []byte) (eventID string, err error)
	// ReplayEventsAfter invokes emit for every event stored in the same
	// stream as eventID that was appended after it, in order, skipping
	// empty (priming) payloads. It returns the stream id eventID belongs
	// to, or noStreamContext if eventID is unrecognized.
	ReplayEventsAfter(ctx context.Context, eventID string, emit func(eventID string, payload []byte) error) (streamID string, err error)
}

// eventRecord is one stored event within a stream.
type eventRecord struct {
	seq     int64
	payload []byte
}

func encodeEventID(streamID string, seq int64) string {
	return streamID + ":" + strconv.FormatInt(seq, 10)
}

func decodeEventID(eventID string) (streamID string, seq int64, ok bool) {
	i := strings.LastIndexByte(eventID, ':')
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.ParseInt(eventID[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return eventID[:i], n, true
}

// MemoryEventStore is an in-process EventStore. Safe for concurrent use;
// event logs are never trimmed, so it is meant for development and
// testing rather than long-lived production streams.
type MemoryEventStore struct {
	mu      sync.Mutex
	streams map[string][]eventRecord
	nextSeq atomic.Int64
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{streams: make(map[string][]eventRecord)}
}

func (m *MemoryEventStore) StoreEvent(ctx context.Context, streamID string, payload []byte) (string, error) {
	seq := m.nextSeq.Add(1)
	rec := eventRecord{seq: seq, payload: append([]byte(nil), payload...)}
	m.mu.Lock()
	m.streams[streamID] = append(m.streams[streamID], rec)
	m.mu.Unlock()
	return encodeEventID(streamID, seq), nil
}

func (m *MemoryEventStore) ReplayEventsAfter(ctx context.Context, eventID string, emit func(string, []byte) error) (string, error) {
	streamID, seq, ok := decodeEventID(eventID)
	if !ok {
		return noStreamContext, nil
	}
	m.mu.Lock()
	records := m.streams[streamID]
	if records == nil {
		m.mu.Unlock()
		return noStreamContext, nil
	}
	cp := append([]eventRecord(nil), records...)
	m.mu.Unlock()

	for _, rec := range cp {
		if rec.seq <= seq {
			continue
		}
		if len(rec.payload) == 0 {
			continue
		}
		if err := emit(encodeEventID(streamID, rec.seq), rec.payload); err != nil {
			return streamID, err
		}
	}
	return streamID, nil
}

// RedisEventStore is a Redis-backed EventStore, so resumption survives a
// server restart: a durable concern the in-memory store cannot offer.
// Each stream is a Redis list of "<seq> <payload>" entries under
// "<prefix><streamID>".
type RedisEventStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisEventStore creates a RedisEventStore. prefix namespaces its keys;
// "mcp:events:" is used if empty.
func NewRedisEventStore(rdb *redis.Client, prefix string) *RedisEventStore {
	if prefix == "" {
		prefix = "mcp:events:"
	}
	return &RedisEventStore{rdb: rdb, prefix: prefix}
}

func (s *RedisEventStore) key(streamID string) string { return s.prefix + streamID }

func (s *RedisEventStore) StoreEvent(ctx context.Context, streamID string, payload []byte) (string, error) {
	seq, err := s.rdb.Incr(ctx, s.prefix+"seq:"+streamID).Result()
	if err != nil {
		return "", err
	}
	entry := fmt.Sprintf("%d %s", seq, payload)
	if err := s.rdb.RPush(ctx, s.key(streamID), entry).Err(); err != nil {
		return "", err
	}
	return encodeEventID(streamID, seq), nil
}

func (s *RedisEventStore) ReplayEventsAfter(ctx context.Context, eventID string, emit func(string, []byte) error) (string, error) {
	streamID, seq, ok := decodeEventID(eventID)
	if !ok {
		return noStreamContext, nil
	}
	entries, err := s.rdb.LRange(ctx, s.key(streamID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return noStreamContext, nil
		}
		return "", err
	}
	if len(entries) == 0 {
		return noStreamContext, nil
	}
	for _, entry := range entries {
		parts := strings.SplitN(entry, " ", 2)
		if len(parts) != 2 {
			continue
		}
		entrySeq, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || entrySeq <= seq {
			continue
		}
		payload := []byte(parts[1])
		if len(payload) == 0 {
			continue
		}
		if err := emit(encodeEventID(streamID, entrySeq), payload); err != nil {
			return streamID, err
		}
	}
	return streamID, nil
}
