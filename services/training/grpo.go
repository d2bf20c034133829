// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package training

import (
	"context"
	"fmt"

	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/pipeline"
	"github.com/noah-ing/Agent0/services/telemetry"
)

// GRPOCoefficients weights the reward terms in the composite curriculum
// reward. All coefficients are non-negative; repetition enters negatively.
type GRPOCoefficients struct {
	Uncertainty       float64 `yaml:"uncertainty"`
	ToolUsage         float64 `yaml:"tool_usage"`
	RepetitionPenalty float64 `yaml:"repetition_penalty"`
}

// DefaultGRPOCoefficients returns the canonical 0.6/0.3/0.2 weights.
func DefaultGRPOCoefficients() GRPOCoefficients {
	return GRPOCoefficients{Uncertainty: 0.6, ToolUsage: 0.3, RepetitionPenalty: 0.2}
}

// RewardedSample is one curriculum sample with its scored breakdown,
// the input unit for a GRPO step.
type RewardedSample struct {
	Prompt    string
	Response  string
	Breakdown pipeline.RewardBreakdown
}

// Experience is the packaged outcome of a GRPO step for one sample,
// returned for inspection and testing.
type Experience struct {
	Prompt    string
	Response  string
	Reward    float64
	Breakdown pipeline.RewardBreakdown
}

// GRPOTrainer linearly combines reward breakdowns into scalar rewards and
// forwards batches to a curriculum policy-update backend.
type GRPOTrainer struct {
	coeffs  GRPOCoefficients
	backend PolicyBackend
	sink    telemetry.Sink
	logger  *logging.Logger
}

// NewGRPOTrainer creates a trainer. A nil backend means compose-only (no
// policy update is dispatched).
func NewGRPOTrainer(coeffs GRPOCoefficients, backend PolicyBackend, sink telemetry.Sink, logger *logging.Logger) *GRPOTrainer {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GRPOTrainer{
		coeffs:  coeffs,
		backend: backend,
		sink:    sink,
		logger:  logger.With("component", "grpo_trainer"),
	}
}

// ComputeReward combines the breakdown into a scalar:
//
//	max(0, λu*uncertainty + λt*tool_usage - λr*repetition)
//
// Negative composites floor to 0: the reward measures how worth training
// on a sample is, it is never punitive.
func (t *GRPOTrainer) ComputeReward(b pipeline.RewardBreakdown) float64 {
	reward := t.coeffs.Uncertainty*b.Uncertainty +
		t.coeffs.ToolUsage*b.ToolUsage -
		t.coeffs.RepetitionPenalty*b.Repetition
	if reward < 0 {
		return 0
	}
	return reward
}

// Step scores every batch item, dispatches the (prompt, response, reward)
// triples to the backend when one is configured, and returns the
// experiences.
func (t *GRPOTrainer) Step(ctx context.Context, batch []RewardedSample) ([]Experience, error) {
	experiences := make([]Experience, 0, len(batch))
	scalars := make([]ScalarSample, 0, len(batch))
	for _, item := range batch {
		reward := t.ComputeReward(item.Breakdown)
		experiences = append(experiences, Experience{
			Prompt:    item.Prompt,
			Response:  item.Response,
			Reward:    reward,
			Breakdown: item.Breakdown,
		})
		scalars = append(scalars, ScalarSample{Prompt: item.Prompt, Response: item.Response, Value: reward})
		t.sink.Log(map[string]any{"curriculum/reward": reward})
		telemetry.CurriculumReward.Observe(reward)
	}

	if t.backend != nil {
		if err := t.backend.Step(ctx, scalars); err != nil {
			return nil, fmt.Errorf("curriculum backend step: %w", err)
		}
	}
	t.logger.Debug("curriculum step complete", "batch_size", len(batch))
	return experiences, nil
}
