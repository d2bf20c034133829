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
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/noah-ing/Agent0/services/pipeline"
	"github.com/noah-ing/Agent0/services/telemetry"
)

// distinctTasks are pairwise dissimilar so the novelty guard never rejects
// them, within or across iterations.
var distinctTasks = []string{
	"Count the lattice points strictly inside a circle of radius 7.",
	"Prove that every tournament on five vertices has a Hamiltonian path.",
	"Simulate 1000 rolls of two dice and estimate the variance of the sum.",
	"Factor the polynomial x^6 - 1 over the rationals.",
	"How many binary strings of length 12 avoid three consecutive ones?",
	"Derive the closed form of the sum of the first n cubes.",
	"Estimate pi using a Monte Carlo method with rejection sampling.",
	"Find the smallest positive integer with exactly 24 divisors.",
}

// sequencedCurriculum emits globally unique task texts drawn in order from
// distinctTasks.
type sequencedCurriculum struct {
	next int
	err  error
}

func (c *sequencedCurriculum) GenerateBatch(ctx context.Context, n int) ([]pipeline.CurriculumSample, error) {
	if c.err != nil {
		return nil, c.err
	}
	batch := make([]pipeline.CurriculumSample, 0, n)
	for i := 0; i < n; i++ {
		if c.next >= len(distinctTasks) {
			return nil, fmt.Errorf("test curriculum exhausted after %d tasks", len(distinctTasks))
		}
		batch = append(batch, pipeline.CurriculumSample{
			Prompt:    "seed",
			RawOutput: distinctTasks[c.next],
		})
		c.next++
	}
	return batch, nil
}

// cyclingExecutor returns boxed answers in a fixed cycle; with k=4 the
// majority fraction is 0.75, inside the default consistency band.
type cyclingExecutor struct {
	calls int
	err   error
}

func (e *cyclingExecutor) Solve(ctx context.Context, task string) (*pipeline.ExecutionTrace, error) {
	if e.err != nil {
		return nil, e.err
	}
	answers := []string{`\boxed{4}`, `\boxed{4}`, `\boxed{5}`, `\boxed{4}`}
	answer := answers[e.calls%len(answers)]
	e.calls++
	return &pipeline.ExecutionTrace{
		Task:        task,
		FinalAnswer: answer,
		Turns:       []pipeline.TurnRecord{{Role: "assistant", Content: answer}},
		ToolEvents:  []pipeline.ToolEvent{{TaskID: "t", Status: "ok"}},
	}, nil
}

// alwaysValid admits everything the band lets through.
type alwaysValid struct{}

func (alwaysValid) Verify(ctx context.Context, text string) pipeline.Verdict {
	return pipeline.Verdict{Kind: pipeline.VerdictValid}
}

func newTestLoop(cfg LoopConfig, curriculum CurriculumPolicy, executor pipeline.ExecutorPolicy, grpoBackend, adpoBackend PolicyBackend) *CoEvolutionLoop {
	sink := telemetry.NewBufferedSink()
	judge := alwaysValid{}
	filter := pipeline.NewFrontierFilter(pipeline.FilterConfig{}, judge, nil, sink, nil)
	rewards := pipeline.NewRewardModel(judge, sink, nil, 4.0)
	aggregator := pipeline.NewConsistencyAggregator(executor, nil)
	grpo := NewGRPOTrainer(DefaultGRPOCoefficients(), grpoBackend, sink, nil)
	adpo := NewADPOTrainer(testADPOConfig(), adpoBackend, sink, nil)
	return NewCoEvolutionLoop(cfg, curriculum, aggregator, filter, rewards, grpo, adpo, nil)
}

func TestCoEvolutionLoop_RunIteration(t *testing.T) {
	grpoBackend := &recordingBackend{}
	adpoBackend := &recordingBackend{}
	executor := &cyclingExecutor{}
	loop := newTestLoop(
		LoopConfig{CurriculumBatch: 2, ExecutorBatch: 4, Iterations: 1, ExecutorSamples: 4},
		&sequencedCurriculum{}, executor, grpoBackend, adpoBackend,
	)

	result, err := loop.RunIteration(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FrontierSize != 2 {
		t.Errorf("frontier size = %d, want 2", result.FrontierSize)
	}
	// 2 accepted tasks, 4 retained rollouts each.
	if len(result.ExecutorTraces) != 8 {
		t.Errorf("executor traces = %d, want 8", len(result.ExecutorTraces))
	}
	if executor.calls != 8 {
		t.Errorf("executor calls = %d, want 8", executor.calls)
	}

	// Curriculum update sees the full batch.
	if len(grpoBackend.batches) != 1 || len(grpoBackend.batches[0]) != 2 {
		t.Fatal("grpo backend did not receive one batch of 2")
	}
	// Executor update sees one scalar per retained rollout.
	if len(adpoBackend.batches) != 1 || len(adpoBackend.batches[0]) != 8 {
		t.Fatal("adpo backend did not receive one batch of 8")
	}
}

func TestCoEvolutionLoop_RunIteration_CapsExecutorBatch(t *testing.T) {
	adpoBackend := &recordingBackend{}
	loop := newTestLoop(
		LoopConfig{CurriculumBatch: 3, ExecutorBatch: 1, Iterations: 1, ExecutorSamples: 4},
		&sequencedCurriculum{}, &cyclingExecutor{}, nil, adpoBackend,
	)

	result, err := loop.RunIteration(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// All three pass the gate, but only one frontier entry feeds the
	// executor update.
	if result.FrontierSize != 3 {
		t.Errorf("frontier size = %d, want 3", result.FrontierSize)
	}
	if len(result.ExecutorTraces) != 4 {
		t.Errorf("executor traces = %d, want capped 4", len(result.ExecutorTraces))
	}
	if len(adpoBackend.batches) != 1 || len(adpoBackend.batches[0]) != 4 {
		t.Fatal("adpo backend did not receive one capped batch of 4")
	}
}

func TestCoEvolutionLoop_Run_AccumulatesHistory(t *testing.T) {
	loop := newTestLoop(
		LoopConfig{CurriculumBatch: 1, ExecutorBatch: 4, Iterations: 3, ExecutorSamples: 4},
		&sequencedCurriculum{}, &cyclingExecutor{}, nil, nil,
	)

	history, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history = %d iterations, want 3", len(history))
	}
}

func TestCoEvolutionLoop_Run_PropagatesExecutorError(t *testing.T) {
	wantErr := errors.New("inference server down")
	loop := newTestLoop(
		LoopConfig{CurriculumBatch: 1, ExecutorBatch: 4, Iterations: 2, ExecutorSamples: 4},
		&sequencedCurriculum{}, &cyclingExecutor{err: wantErr}, nil, nil,
	)

	history, err := loop.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped executor error, got %v", err)
	}
	if len(history) != 0 {
		t.Errorf("failed first iteration must leave empty history, got %d", len(history))
	}
}

func TestCoEvolutionLoop_Run_PropagatesCurriculumError(t *testing.T) {
	wantErr := errors.New("curriculum endpoint 503")
	loop := newTestLoop(
		LoopConfig{CurriculumBatch: 1, ExecutorBatch: 4, Iterations: 1, ExecutorSamples: 4},
		&sequencedCurriculum{err: wantErr}, &cyclingExecutor{}, nil, nil,
	)

	_, err := loop.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped curriculum error, got %v", err)
	}
}

func TestTraceToStats(t *testing.T) {
	feedback := &pipeline.ExecutorFeedback{PHat: 0.75, MajorityAnswer: "4"}

	tests := []struct {
		name            string
		trace           *pipeline.ExecutionTrace
		wantConsistency float64
		wantAdvantage   float64
	}{
		{
			name: "majority match with one tool event",
			trace: &pipeline.ExecutionTrace{
				FinalAnswer: `\boxed{4}`,
				Turns:       []pipeline.TurnRecord{{Role: "assistant"}},
				ToolEvents:  []pipeline.ToolEvent{{}},
			},
			wantConsistency: 0.73, // 0.75 - 0.02 tool penalty
			wantAdvantage:   0.99, // 1.0 - 0.01 per tool event
		},
		{
			name: "minority answer",
			trace: &pipeline.ExecutionTrace{
				FinalAnswer: `\boxed{5}`,
				Turns:       []pipeline.TurnRecord{{Role: "assistant"}},
			},
			wantConsistency: 0.75,
			wantAdvantage:   -0.25,
		},
		{
			name: "turn penalty kicks in past two turns",
			trace: &pipeline.ExecutionTrace{
				FinalAnswer: `\boxed{4}`,
				Turns:       make([]pipeline.TurnRecord, 5),
			},
			wantConsistency: 0.63, // 0.75 - 0.04*(5-2)
			wantAdvantage:   1.0,
		},
		{
			name: "penalties are capped",
			trace: &pipeline.ExecutionTrace{
				FinalAnswer: `\boxed{4}`,
				Turns:       make([]pipeline.TurnRecord, 40),
				ToolEvents:  make([]pipeline.ToolEvent, 40),
			},
			wantConsistency: 0.25, // 0.75 - 0.3 - 0.2
			wantAdvantage:   0.6,  // 1.0 - 0.01*40
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := traceToStats("task", tt.trace, feedback)
			if math.Abs(stats.Consistency-tt.wantConsistency) > 1e-9 {
				t.Errorf("consistency = %v, want %v", stats.Consistency, tt.wantConsistency)
			}
			if math.Abs(stats.Advantage-tt.wantAdvantage) > 1e-9 {
				t.Errorf("advantage = %v, want %v", stats.Advantage, tt.wantAdvantage)
			}
		})
	}
}
