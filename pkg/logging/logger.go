// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for Agent0 components.
//
// The package wraps Go's standard library slog with the conventions used
// across the trainer: stderr output by default (Unix CLI friendly), optional
// JSON formatting for machine consumption, a per-component "service"
// attribute, and an in-memory capture handler for test assertions.
//
// Basic usage:
//
//	logger := logging.Default()
//	logger.Info("iteration complete", "frontier_size", n)
//
// Component-scoped loggers carry context through the pipeline:
//
//	loopLogger := logger.With("component", "co_evolution_loop")
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls Logger behavior. The zero value produces an Info-level
// text logger on stderr.
type Config struct {
	// Level is the minimum severity emitted. Default: LevelInfo.
	Level Level

	// Service identifies the component generating logs and is attached
	// to every entry as the "service" attribute.
	Service string

	// JSON switches stderr output to JSON objects. Text otherwise.
	JSON bool

	// Quiet disables stderr output entirely. Combine with Handler for
	// test capture or custom destinations.
	Quiet bool

	// Handler, when set, receives every record in addition to stderr.
	Handler slog.Handler
}

// Logger is a thin wrapper over slog.Logger carrying the trainer's
// conventions. Safe for concurrent use.
type Logger struct {
	slog *slog.Logger
}

// New creates a Logger from config.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	var handlers []slog.Handler
	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}
	if config.Handler != nil {
		handlers = append(handlers, config.Handler)
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	return &Logger{slog: slog.New(handler)}
}

// Default returns an Info-level stderr logger for the "agent0" service.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "agent0"})
}

// Debug logs at Debug level with key-value attributes.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at Info level with key-value attributes.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at Warn level with key-value attributes.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at Error level with key-value attributes.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a child logger carrying additional attributes. The parent
// is not modified.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Slog exposes the underlying slog.Logger for APIs that want one directly.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// multiHandler fans records out to several slog handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// CaptureHandler records log messages in memory for test assertions.
//
//	capture := logging.NewCaptureHandler()
//	logger := logging.New(logging.Config{Quiet: true, Handler: capture})
//	...
//	assert.Contains(t, capture.Messages(), "frontier built")
type CaptureHandler struct {
	mu       sync.Mutex
	messages []string
}

// NewCaptureHandler creates an empty capture handler.
func NewCaptureHandler() *CaptureHandler {
	return &CaptureHandler{}
}

func (h *CaptureHandler) Enabled(ctx context.Context, level slog.Level) bool { return true }

func (h *CaptureHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, r.Message)
	return nil
}

// WithAttrs returns the same handler; capture assertions key off messages.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *CaptureHandler) WithGroup(name string) slog.Handler { return h }

// Messages returns a copy of all captured log messages.
func (h *CaptureHandler) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.messages))
	copy(out, h.messages)
	return out
}
