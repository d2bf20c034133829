// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sandbox

import (
	"context"
	"strings"
	"testing"
)

// echoRunner reflects the submitted code into stdout.
type echoRunner struct {
	calls []string
}

func (r *echoRunner) Execute(ctx context.Context, code, taskID string) Result {
	r.calls = append(r.calls, code)
	return Result{
		TaskID: taskID,
		Code:   code,
		Stdout: "ran: " + strings.TrimSpace(code),
		Status: "ok",
	}
}

func TestStopGoController_Run_NoCode(t *testing.T) {
	runner := &echoRunner{}
	ctrl, err := NewStopGoController(runner, StopGoConfig{CaptureStdout: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response := "Just reasoning, no code here."
	result := ctrl.Run(context.Background(), response, "task1")

	if result.PatchedResponse != response {
		t.Errorf("response must pass through unchanged")
	}
	if len(result.Events) != 0 {
		t.Errorf("expected no events, got %d", len(result.Events))
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner must not be invoked")
	}
}

func TestStopGoController_Run_ExtractsAndSplices(t *testing.T) {
	runner := &echoRunner{}
	ctrl, err := NewStopGoController(runner, StopGoConfig{CaptureStdout: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response := "Let me compute:\n```python\nprint(2+2)\n```\nDone."
	result := ctrl.Run(context.Background(), response, "task1")

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	if runner.calls[0] != "print(2+2)\n" {
		t.Errorf("extracted code = %q", runner.calls[0])
	}
	if !strings.Contains(result.PatchedResponse, "[tool stdout]\nran: print(2+2)") {
		t.Errorf("stdout trailer missing: %q", result.PatchedResponse)
	}
	// The original block stays in place ahead of the trailer.
	if !strings.Contains(result.PatchedResponse, "```python\nprint(2+2)\n```") {
		t.Errorf("original block removed: %q", result.PatchedResponse)
	}
	if result.Events[0].TaskID != "task1_code0" {
		t.Errorf("task id = %q, want task1_code0", result.Events[0].TaskID)
	}
}

func TestStopGoController_Run_CapsBlocks(t *testing.T) {
	runner := &echoRunner{}
	ctrl, err := NewStopGoController(runner, StopGoConfig{MaxCodeBlocks: 2, CaptureStdout: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response := strings.Repeat("```python\nprint(1)\n```\n", 5)
	result := ctrl.Run(context.Background(), response, "task1")

	if len(result.Events) != 2 {
		t.Errorf("expected 2 capped events, got %d", len(result.Events))
	}
}

func TestStopGoController_Run_StderrCapture(t *testing.T) {
	runner := &resultRunner{result: Result{Stderr: "Traceback: boom", Status: "exit-1"}}
	ctrl, err := NewStopGoController(runner, StopGoConfig{CaptureStderr: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := ctrl.Run(context.Background(), "```python\n1/0\n```", "task1")
	if !strings.Contains(result.PatchedResponse, "[tool stderr]\nTraceback: boom") {
		t.Errorf("stderr trailer missing: %q", result.PatchedResponse)
	}
}

func TestStopGoController_Run_NoCaptureLeavesResponseAlone(t *testing.T) {
	runner := &echoRunner{}
	ctrl, err := NewStopGoController(runner, StopGoConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response := "```python\nprint(1)\n```"
	result := ctrl.Run(context.Background(), response, "task1")

	if result.PatchedResponse != response {
		t.Errorf("capture disabled must leave response unchanged: %q", result.PatchedResponse)
	}
	if len(result.Events) != 1 {
		t.Errorf("block must still execute, got %d events", len(result.Events))
	}
}

func TestNewStopGoController_InvalidRegex(t *testing.T) {
	_, err := NewStopGoController(&echoRunner{}, StopGoConfig{TriggerRegex: "("})
	if err == nil {
		t.Fatal("expected compile error for invalid trigger regex")
	}
}

// resultRunner returns a fixed result regardless of input.
type resultRunner struct {
	result Result
}

func (r *resultRunner) Execute(ctx context.Context, code, taskID string) Result {
	out := r.result
	out.TaskID = taskID
	out.Code = code
	return out
}
