// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline turns raw policy generations into filtered training
// signal: majority-vote consistency estimation, novelty guarding, frontier
// filtering with external verification, and multi-term reward shaping.
package pipeline

// CurriculumSample is one task proposed by the curriculum policy.
// Immutable after creation.
type CurriculumSample struct {
	// Prompt is the seed prompt sent to the curriculum policy.
	Prompt string `json:"prompt"`

	// RawOutput is the policy's full generation, i.e. the task text.
	RawOutput string `json:"raw_output"`
}

// ToolEvent records one tool invocation observed during a rollout. The
// sandbox is a black box; only the captured streams and status matter here.
type ToolEvent struct {
	TaskID   string  `json:"task_id"`
	Code     string  `json:"code"`
	Stdout   string  `json:"stdout"`
	Stderr   string  `json:"stderr"`
	Status   string  `json:"status"`
	LatencyS float64 `json:"latency_s"`
}

// TurnRecord is one conversational turn within a rollout.
type TurnRecord struct {
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	ToolEvents []ToolEvent `json:"tool_events,omitempty"`
}

// ExecutionTrace is one executor rollout: the ordered turns, all tool
// events aggregated across turns, the final answer text, and where the full
// transcript artifact was persisted. Immutable once the rollout finishes.
type ExecutionTrace struct {
	Task        string       `json:"task"`
	TraceID     string       `json:"trace_id"`
	Turns       []TurnRecord `json:"turns"`
	Transcript  string       `json:"transcript"`
	ToolEvents  []ToolEvent  `json:"tool_events"`
	FinalAnswer string       `json:"final_answer"`
	RolloutPath string       `json:"rollout_path"`
}

// ExecutorFeedback aggregates k rollouts of one task.
//
// Invariant: 0 <= PHat <= 1. When no answers were produced, PHat is 0 and
// MajorityAnswer is empty.
type ExecutorFeedback struct {
	// PHat is the majority-vote agreement fraction.
	PHat float64

	// MajorityAnswer is the most frequent normalized answer; ties break by
	// first-encountered order.
	MajorityAnswer string

	// ToolCounts holds the tool invocation count of each trace.
	ToolCounts []int

	// Traces retains all k rollouts for advantage derivation.
	Traces []*ExecutionTrace

	// Answers holds the normalized answer of each trace, index-aligned
	// with Traces.
	Answers []string
}

// AvgToolCalls returns the mean tool invocation count, 0 when empty.
func (f *ExecutorFeedback) AvgToolCalls() float64 {
	if len(f.ToolCounts) == 0 {
		return 0
	}
	total := 0
	for _, c := range f.ToolCounts {
		total += c
	}
	return float64(total) / float64(len(f.ToolCounts))
}

// EvaluatedSample pairs a curriculum sample with its executor feedback.
// One per curriculum sample per loop iteration.
type EvaluatedSample struct {
	Sample   CurriculumSample
	Feedback *ExecutorFeedback
}

// RewardBreakdown holds the three reward terms, each clipped to [0,1].
type RewardBreakdown struct {
	Uncertainty float64 `json:"uncertainty"`
	ToolUsage   float64 `json:"tool_usage"`
	Repetition  float64 `json:"repetition"`
}

// Stats carries the aggregated statistics available to the reward model.
// Nil pointer fields mean the statistic is unavailable and the text
// heuristic strategy applies for that term.
type Stats struct {
	PHat         *float64
	AvgToolCalls *float64
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
