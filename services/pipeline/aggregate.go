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
	"fmt"

	"github.com/noah-ing/Agent0/pkg/logging"
)

// ExecutorPolicy produces one rollout for a task. Implementations block
// until the rollout finishes; the aggregator does not retry.
type ExecutorPolicy interface {
	Solve(ctx context.Context, task string) (*ExecutionTrace, error)
}

// ConsistencyAggregator samples the executor policy k times on one task and
// distills the attempts into majority-vote feedback.
//
// Aggregation is order-independent frequency counting with a first-seen
// tie-break, so a future parallel sampler must sort rollouts by original
// sample index before the tie-break comparison.
type ConsistencyAggregator struct {
	executor ExecutorPolicy
	logger   *logging.Logger
}

// NewConsistencyAggregator creates an aggregator over the given executor.
func NewConsistencyAggregator(executor ExecutorPolicy, logger *logging.Logger) *ConsistencyAggregator {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsistencyAggregator{
		executor: executor,
		logger:   logger.With("component", "consistency_aggregator"),
	}
}

// Aggregate runs the executor k times sequentially, normalizes each final
// answer, and computes the majority agreement fraction. All k traces are
// retained on the returned feedback for downstream advantage derivation.
//
// k < 1 is coerced to 1. An executor failure aborts aggregation and
// propagates to the caller.
func (a *ConsistencyAggregator) Aggregate(ctx context.Context, task string, k int) (*ExecutorFeedback, error) {
	if k < 1 {
		k = 1
	}

	feedback := &ExecutorFeedback{}
	for i := 0; i < k; i++ {
		trace, err := a.executor.Solve(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("executor sample %d/%d: %w", i+1, k, err)
		}
		feedback.Traces = append(feedback.Traces, trace)
		feedback.Answers = append(feedback.Answers, NormalizeAnswer(trace.FinalAnswer))
		feedback.ToolCounts = append(feedback.ToolCounts, len(trace.ToolEvents))
	}

	feedback.MajorityAnswer, feedback.PHat = MajorityVote(feedback.Answers)
	a.logger.Debug("executor feedback aggregated",
		"samples", k,
		"p_hat", feedback.PHat,
		"avg_tool_calls", feedback.AvgToolCalls(),
	)
	return feedback, nil
}

// MajorityVote returns the most frequent non-empty answer and its agreement
// fraction over the full sample count. Ties break by first-encountered
// order. No answers, or all answers empty, yields ("", 0).
func MajorityVote(answers []string) (string, float64) {
	counts := make(map[string]int, len(answers))
	var order []string
	for _, answer := range answers {
		if answer == "" {
			continue
		}
		if counts[answer] == 0 {
			order = append(order, answer)
		}
		counts[answer]++
	}
	if len(order) == 0 {
		return "", 0
	}

	majority := order[0]
	for _, answer := range order[1:] {
		if counts[answer] > counts[majority] {
			majority = answer
		}
	}
	return majority, float64(counts[majority]) / float64(len(answers))
}
