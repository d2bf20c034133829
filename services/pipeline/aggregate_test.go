// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
)

// scriptedExecutor returns pre-canned final answers in call order.
type scriptedExecutor struct {
	answers []string
	calls   int
	err     error
}

func (e *scriptedExecutor) Solve(ctx context.Context, task string) (*ExecutionTrace, error) {
	if e.err != nil {
		return nil, e.err
	}
	answer := e.answers[e.calls%len(e.answers)]
	e.calls++
	return &ExecutionTrace{
		Task:        task,
		FinalAnswer: answer,
		ToolEvents:  []ToolEvent{{TaskID: "t", Status: "ok"}},
	}, nil
}

func TestMajorityVote(t *testing.T) {
	tests := []struct {
		name     string
		answers  []string
		want     string
		wantPHat float64
	}{
		{
			name:     "clear majority",
			answers:  []string{"4", "4", "5", "4"},
			want:     "4",
			wantPHat: 0.75,
		},
		{
			name:     "tie breaks first seen",
			answers:  []string{"a", "b", "a", "b"},
			want:     "a",
			wantPHat: 0.5,
		},
		{
			name:     "unanimous",
			answers:  []string{"7", "7"},
			want:     "7",
			wantPHat: 1.0,
		},
		{
			name:     "empty answers excluded from vote but counted in denominator",
			answers:  []string{"", "", "4", "4"},
			want:     "4",
			wantPHat: 0.5,
		},
		{
			name:     "all empty",
			answers:  []string{"", "", ""},
			want:     "",
			wantPHat: 0,
		},
		{
			name:     "no answers",
			answers:  nil,
			want:     "",
			wantPHat: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, pHat := MajorityVote(tt.answers)
			if got != tt.want {
				t.Errorf("majority = %q, want %q", got, tt.want)
			}
			if math.Abs(pHat-tt.wantPHat) > 1e-9 {
				t.Errorf("p_hat = %v, want %v", pHat, tt.wantPHat)
			}
		})
	}
}

func TestConsistencyAggregator_Aggregate(t *testing.T) {
	executor := &scriptedExecutor{answers: []string{
		`\boxed{4}`, `\boxed{4}`, `\boxed{5}`, `\boxed{4}`,
	}}
	agg := NewConsistencyAggregator(executor, nil)

	feedback, err := agg.Aggregate(context.Background(), "compute 2+2", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if executor.calls != 4 {
		t.Errorf("expected 4 executor calls, got %d", executor.calls)
	}
	if feedback.MajorityAnswer != "4" {
		t.Errorf("majority = %q, want 4", feedback.MajorityAnswer)
	}
	if math.Abs(feedback.PHat-0.75) > 1e-9 {
		t.Errorf("p_hat = %v, want 0.75", feedback.PHat)
	}
	if len(feedback.Traces) != 4 || len(feedback.Answers) != 4 {
		t.Errorf("expected 4 traces and answers, got %d/%d", len(feedback.Traces), len(feedback.Answers))
	}
	if got := feedback.AvgToolCalls(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("avg tool calls = %v, want 1.0", got)
	}
}

func TestConsistencyAggregator_Aggregate_CoercesK(t *testing.T) {
	executor := &scriptedExecutor{answers: []string{`\boxed{1}`}}
	agg := NewConsistencyAggregator(executor, nil)

	feedback, err := agg.Aggregate(context.Background(), "task", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if executor.calls != 1 {
		t.Errorf("expected k coerced to 1, got %d calls", executor.calls)
	}
	if feedback.PHat != 1.0 {
		t.Errorf("p_hat = %v, want 1.0", feedback.PHat)
	}
}

func TestConsistencyAggregator_Aggregate_ExecutorError(t *testing.T) {
	wantErr := errors.New("backend down")
	agg := NewConsistencyAggregator(&scriptedExecutor{err: wantErr}, nil)

	_, err := agg.Aggregate(context.Background(), "task", 3)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped executor error, got %v", err)
	}
}

func TestExecutorFeedback_AvgToolCalls_Empty(t *testing.T) {
	feedback := &ExecutorFeedback{}
	if got := feedback.AvgToolCalls(); got != 0 {
		t.Errorf("expected 0 for empty feedback, got %v", got)
	}
}
