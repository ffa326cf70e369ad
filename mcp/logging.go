// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// defaultLogger discards everything: a Server or Client with no logger
// configured is silent, since stdout is reserved for the JSON-RPC stream
// on the stdio transport and a library should never log to stderr by
// default on a caller's behalf.
var defaultLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// LoggingOptions configures the optional diagnostic logger a Server or
// Client can attach for its own operational logging — protocol errors,
// transport failures, session lifecycle events — distinct from the MCP
// logging capability, which is a peer-to-peer protocol feature.
type LoggingOptions struct {
	// FilePath, if non-empty, directs diagnostic output to a rotating
	// file via lumberjack instead of Writer.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Writer is used when FilePath is empty. Defaults to io.Discard.
	Writer io.Writer
	Level  slog.Level
}

// NewLogger builds a *slog.Logger from opts. A zero LoggingOptions yields
// the silent default logger.
func NewLogger(opts LoggingOptions) *slog.Logger {
	var w io.Writer = opts.Writer
	if opts.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    nonZero(opts.MaxSizeMB, 10),
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
	} else if w == nil {
		return defaultLogger
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level}))
}

func nonZero(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
