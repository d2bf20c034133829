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
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/pipeline"
	"github.com/noah-ing/Agent0/services/telemetry"
)

const tracerName = "github.com/noah-ing/Agent0/services/training"

// CurriculumPolicy proposes tasks for the executor to attempt.
type CurriculumPolicy interface {
	// GenerateBatch returns n curriculum samples, or an error from the
	// underlying client which propagates uncolored to the loop caller.
	GenerateBatch(ctx context.Context, n int) ([]pipeline.CurriculumSample, error)
}

// LoopConfig sizes the co-evolution loop.
type LoopConfig struct {
	// CurriculumBatch is the number of tasks drawn per iteration.
	CurriculumBatch int `yaml:"curriculum_batch"`

	// ExecutorBatch caps how many frontier entries feed advantage
	// derivation per iteration.
	ExecutorBatch int `yaml:"executor_batch"`

	// Iterations is the total iteration count for Run.
	Iterations int `yaml:"iterations"`

	// ExecutorSamples is k, the rollouts sampled per task. Values below 1
	// coerce to 1. Default 4.
	ExecutorSamples int `yaml:"executor_samples"`
}

// IterationResult summarizes one completed iteration.
type IterationResult struct {
	// FrontierSize is the number of samples that passed the acceptance
	// gate (before the executor-batch cap).
	FrontierSize int

	// ExecutorTraces holds every rollout that fed the executor update.
	ExecutorTraces []*pipeline.ExecutionTrace
}

// CoEvolutionLoop alternates curriculum GRPO updates and executor ADPO
// steps. Strictly sequential: one curriculum batch, k sequential
// rollouts per task, one frontier pass, one advantage batch. No step
// retries internally; a collaborator failure aborts the iteration and
// propagates to the caller of Run. Iterations are cheap to redo, so the
// surrounding harness resumes at iteration granularity.
type CoEvolutionLoop struct {
	cfg        LoopConfig
	curriculum CurriculumPolicy
	aggregator *pipeline.ConsistencyAggregator
	filter     *pipeline.FrontierFilter
	rewards    *pipeline.RewardModel
	grpo       *GRPOTrainer
	adpo       *ADPOTrainer
	logger     *logging.Logger
}

// NewCoEvolutionLoop wires the loop from its collaborators.
func NewCoEvolutionLoop(
	cfg LoopConfig,
	curriculum CurriculumPolicy,
	aggregator *pipeline.ConsistencyAggregator,
	filter *pipeline.FrontierFilter,
	rewards *pipeline.RewardModel,
	grpo *GRPOTrainer,
	adpo *ADPOTrainer,
	logger *logging.Logger,
) *CoEvolutionLoop {
	if cfg.ExecutorSamples < 1 {
		cfg.ExecutorSamples = 4
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CoEvolutionLoop{
		cfg:        cfg,
		curriculum: curriculum,
		aggregator: aggregator,
		filter:     filter,
		rewards:    rewards,
		grpo:       grpo,
		adpo:       adpo,
		logger:     logger.With("component", "co_evolution_loop"),
	}
}

// RunIteration performs one full co-evolution iteration: curriculum batch,
// executor feedback per task, reward scoring, curriculum update, frontier
// filtering, advantage derivation, executor update.
func (l *CoEvolutionLoop) RunIteration(ctx context.Context) (*IterationResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "coevolution.iteration")
	defer span.End()

	batch, err := l.curriculum.GenerateBatch(ctx, l.cfg.CurriculumBatch)
	if err != nil {
		return nil, fmt.Errorf("curriculum batch: %w", err)
	}
	span.SetAttributes(attribute.Int("curriculum_batch", len(batch)))

	evaluated := make([]pipeline.EvaluatedSample, 0, len(batch))
	rewarded := make([]RewardedSample, 0, len(batch))
	for _, sample := range batch {
		feedback, err := l.aggregator.Aggregate(ctx, sample.RawOutput, l.cfg.ExecutorSamples)
		if err != nil {
			return nil, fmt.Errorf("aggregate feedback: %w", err)
		}

		pHat := feedback.PHat
		avgTools := feedback.AvgToolCalls()
		breakdown := l.rewards.Score(ctx, sample.RawOutput, &pipeline.Stats{
			PHat:         &pHat,
			AvgToolCalls: &avgTools,
		})
		rewarded = append(rewarded, RewardedSample{
			Prompt:    sample.Prompt,
			Response:  sample.RawOutput,
			Breakdown: breakdown,
		})
		evaluated = append(evaluated, pipeline.EvaluatedSample{Sample: sample, Feedback: feedback})
	}

	if _, err := l.grpo.Step(ctx, rewarded); err != nil {
		return nil, err
	}

	frontier := l.filter.BuildFrontier(ctx, evaluated)
	telemetry.FrontierSize.Set(float64(len(frontier)))
	span.SetAttributes(attribute.Int("frontier_size", len(frontier)))

	capped := frontier
	if l.cfg.ExecutorBatch > 0 && len(capped) > l.cfg.ExecutorBatch {
		capped = capped[:l.cfg.ExecutorBatch]
	}

	var traces []*pipeline.ExecutionTrace
	var ambiguity []AmbiguityStats
	for _, record := range capped {
		if record.Feedback == nil {
			continue
		}
		for _, trace := range record.Feedback.Traces {
			traces = append(traces, trace)
			ambiguity = append(ambiguity, traceToStats(record.Sample.RawOutput, trace, record.Feedback))
		}
	}
	if len(ambiguity) > 0 {
		if _, err := l.adpo.Step(ctx, ambiguity); err != nil {
			return nil, err
		}
	}

	telemetry.LoopIterations.Inc()
	l.logger.Info("iteration complete",
		"frontier_size", len(frontier),
		"executor_traces", len(traces),
	)
	return &IterationResult{FrontierSize: len(frontier), ExecutorTraces: traces}, nil
}

// Run executes the configured number of iterations, accumulating results.
// The first collaborator failure aborts the run; completed iterations are
// returned alongside the error.
func (l *CoEvolutionLoop) Run(ctx context.Context) ([]*IterationResult, error) {
	var history []*IterationResult
	for i := 0; i < l.cfg.Iterations; i++ {
		result, err := l.RunIteration(ctx)
		if err != nil {
			return history, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		history = append(history, result)
	}
	return history, nil
}

// traceToStats derives the ambiguity unit for one rollout. Consistency
// starts from the feedback's p_hat, penalized for turn-count excess
// (min(0.3, 0.04*(turns-2))) and tool usage (min(0.2, 0.02*toolEvents)),
// clamped to [0,1]. Advantage is +1.0 when the rollout's normalized answer
// matches the majority, else -0.25, reduced by 0.01 per tool event.
func traceToStats(prompt string, trace *pipeline.ExecutionTrace, feedback *pipeline.ExecutorFeedback) AmbiguityStats {
	consistency := feedback.PHat
	turnPenalty := math.Min(0.3, 0.04*math.Max(0, float64(len(trace.Turns)-2)))
	toolPenalty := math.Min(0.2, 0.02*float64(len(trace.ToolEvents)))
	consistency = math.Max(0, math.Min(1, consistency-turnPenalty-toolPenalty))

	advantage := -0.25
	if pipeline.NormalizeAnswer(trace.FinalAnswer) == feedback.MajorityAnswer {
		advantage = 1.0
	}
	advantage -= 0.01 * float64(len(trace.ToolEvents))

	return AmbiguityStats{
		Consistency: consistency,
		Advantage:   advantage,
		Prompt:      prompt,
		Response:    trace.FinalAnswer,
	}
}
