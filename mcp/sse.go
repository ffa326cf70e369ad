// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// sseEvent is one Server-Sent Event: an optional id, an optional
// reconnection-delay hint, and a data payload (the JSON-RPC message bytes).
type sseEvent struct {
	id    string
	retry time.Duration
	data  []byte
}

// writeEvent writes e in the `id: ...\ndata: ...\n\n` form §4.1 describes,
// splitting data on internal newlines into multiple `data:` lines (the
// protocol engine never produces multi-line JSON, but this keeps the
// writer correct for any payload).
func writeEvent(w io.Writer, e sseEvent) (int, error) {
	var buf bytes.Buffer
	if e.id != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.id)
	}
	if e.retry > 0 {
		fmt.Fprintf(&buf, "retry: %d\n", e.retry.Milliseconds())
	}
	lines := strings.Split(string(e.data), "\n")
	for _, line := range lines {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteByte('\n')
	return w.Write(buf.Bytes())
}

// sseScanner parses an SSE byte stream into events, tolerating CRLF line
// endings and a leading space after the field colon. An event with empty
// data is a priming event: Next returns it with its id set and empty data
// (see isPriming), so callers can record an anchor without treating it as
// a message.
type sseScanner struct {
	r    *bufio.Reader
	err  error
	lastID string
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{r: bufio.NewReader(r)}
}

// Next returns the next event, or io.EOF once the stream ends cleanly.
func (s *sseScanner) Next() (sseEvent, error) {
	if s.err != nil {
		return sseEvent{}, s.err
	}
	var id string
	var dataLines []string
	var retry time.Duration
	sawAny := false

	for {
		line, err := s.r.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				if sawAny {
					return s.emit(id, dataLines, retry)
				}
				s.err = io.EOF
				return sseEvent{}, io.EOF
			}
			s.err = err
			return sseEvent{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if !sawAny {
				continue // ignore stray blank lines between events
			}
			return s.emit(id, dataLines, retry)
		}
		sawAny = true
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			id = value
		case "data":
			dataLines = append(dataLines, value)
		case "retry":
			if ms, err := parseMillis(value); err == nil {
				retry = ms
			}
		default:
			// unknown field, ignored per the SSE spec
		}
	}
}

func (s *sseScanner) emit(id string, dataLines []string, retry time.Duration) (sseEvent, error) {
	if id != "" {
		s.lastID = id
	}
	data := []byte(strings.Join(dataLines, "\n"))
	return sseEvent{id: id, retry: retry, data: data}, nil
}

func parseMillis(s string) (time.Duration, error) {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

// isPriming reports whether e is a priming event (empty data payload used
// only to hand the client an anchor id).
func (e sseEvent) isPriming() bool { return len(e.data) == 0 }
