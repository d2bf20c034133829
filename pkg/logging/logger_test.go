// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import "testing"

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestNew_CapturesMessages(t *testing.T) {
	capture := NewCaptureHandler()
	logger := New(Config{Quiet: true, Handler: capture, Service: "test"})

	logger.Info("iteration complete", "frontier_size", 3)
	logger.Warn("verifier unreachable")

	messages := capture.Messages()
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0] != "iteration complete" || messages[1] != "verifier unreachable" {
		t.Errorf("unexpected messages: %v", messages)
	}
}

func TestLogger_With_DoesNotMutateParent(t *testing.T) {
	capture := NewCaptureHandler()
	parent := New(Config{Quiet: true, Handler: capture})
	child := parent.With("component", "frontier_filter")

	if child == parent {
		t.Fatal("With must return a new logger")
	}

	parent.Info("from parent")
	child.Info("from child")
	if len(capture.Messages()) != 2 {
		t.Errorf("both loggers must reach the shared handler")
	}
}

func TestDefault_NotNil(t *testing.T) {
	if Default() == nil || Default().Slog() == nil {
		t.Fatal("Default must produce a usable logger")
	}
}
