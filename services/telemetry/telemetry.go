// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry streams structured training metrics to pluggable sinks.
//
// The trainer core only ever writes metrics; it never reads them back. Sinks
// receive flat metric maps (name -> numeric or text value) so any backend,
// whether a local JSONL file or a test buffer, can consume them without
// schema coupling.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink accepts flat metric payloads from the training pipeline.
//
// Implementations must be safe for concurrent use. Sink failures must never
// disturb training: implementations log and drop rather than propagate.
type Sink interface {
	// Log records a flat map of metric names to numeric or text values.
	// Empty payloads are ignored.
	Log(metrics map[string]any)

	// LogText records a single free-form text entry under a metric key,
	// e.g. judge feedback strings.
	LogText(key, text string)
}

// NopSink discards all payloads. Used when telemetry is disabled.
type NopSink struct{}

func (NopSink) Log(metrics map[string]any) {}
func (NopSink) LogText(key, text string)   {}

var _ Sink = NopSink{}

// JSONLSink appends one JSON object per payload to a local file, matching
// the reports/telemetry.jsonl layout the reporting commands consume.
//
// Each record carries a "ts" unix timestamp alongside the caller's metrics.
type JSONLSink struct {
	mu   sync.Mutex
	path string
}

// NewJSONLSink creates the parent directory if needed and returns a sink
// appending to path.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	return &JSONLSink{path: path}, nil
}

// Log implements Sink. Write failures are swallowed: telemetry is a
// reporting side effect, not a correctness dependency.
func (s *JSONLSink) Log(metrics map[string]any) {
	if len(metrics) == 0 {
		return
	}
	record := make(map[string]any, len(metrics)+1)
	record["ts"] = float64(time.Now().UnixMilli()) / 1000.0
	for k, v := range metrics {
		record[k] = v
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(data, '\n'))
}

// LogText implements Sink.
func (s *JSONLSink) LogText(key, text string) {
	s.Log(map[string]any{key: text})
}

var _ Sink = (*JSONLSink)(nil)

// BufferedSink collects payloads in memory for test assertions.
type BufferedSink struct {
	mu      sync.Mutex
	entries []map[string]any
}

// NewBufferedSink returns an empty buffered sink.
func NewBufferedSink() *BufferedSink {
	return &BufferedSink{}
}

// Log implements Sink.
func (s *BufferedSink) Log(metrics map[string]any) {
	if len(metrics) == 0 {
		return
	}
	cp := make(map[string]any, len(metrics))
	for k, v := range metrics {
		cp[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, cp)
}

// LogText implements Sink.
func (s *BufferedSink) LogText(key, text string) {
	s.Log(map[string]any{key: text})
}

// Entries returns a copy of all recorded payloads in arrival order.
func (s *BufferedSink) Entries() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.entries))
	copy(out, s.entries)
	return out
}

// Keys returns every metric name that appeared in any payload, in first-seen
// order. Convenient for asserting which events fired.
func (s *BufferedSink) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var keys []string
	for _, entry := range s.entries {
		for k := range entry {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

var _ Sink = (*BufferedSink)(nil)
