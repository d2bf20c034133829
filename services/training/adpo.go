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

	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/telemetry"
)

// AmbiguityStats is the per-rollout unit consumed by advantage rescaling:
// the executor's penalized consistency, the raw correctness advantage, and
// the (prompt, response) pair the update applies to.
type AmbiguityStats struct {
	Consistency float64
	Advantage   float64
	Prompt      string
	Response    string
}

// Rescaled is one rescaled rollout record.
type Rescaled struct {
	Adv      float64
	ClipLow  float64
	ClipHigh float64
	Prompt   string
	Response string
}

// ADPOConfig tunes ambiguity-dynamic policy optimization.
type ADPOConfig struct {
	// LowerClip is the fixed lower PPO clip bound.
	LowerClip float64 `yaml:"lower_clip"`

	// BaseUpperClip is the upper clip bound at maximal ambiguity
	// (consistency 0.5).
	BaseUpperClip float64 `yaml:"base_upper_clip"`

	// Scale widens the upper clip as consistency departs from 0.5.
	Scale float64 `yaml:"scale"`
}

// ADPOTrainer rescales advantages by ambiguity and adjusts PPO clip bounds:
// rollouts near the ambiguous midpoint keep full advantage magnitude, while
// near-certain rollouts (very easy or very hard) are damped toward zero so
// the policy update concentrates on genuinely uncertain cases.
type ADPOTrainer struct {
	cfg     ADPOConfig
	backend PolicyBackend
	sink    telemetry.Sink
	logger  *logging.Logger
}

// NewADPOTrainer creates a trainer. A nil backend means rescale-only.
func NewADPOTrainer(cfg ADPOConfig, backend PolicyBackend, sink telemetry.Sink, logger *logging.Logger) *ADPOTrainer {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ADPOTrainer{
		cfg:     cfg,
		backend: backend,
		sink:    sink,
		logger:  logger.With("component", "adpo_trainer"),
	}
}

// dynamicUpper widens the clip range as consistency departs from 0.5;
// confident samples stay tight.
func (t *ADPOTrainer) dynamicUpper(consistency float64) float64 {
	return t.cfg.BaseUpperClip + t.cfg.Scale*math.Abs(0.5-consistency)
}

// Rescale applies the ambiguity weight to one rollout:
//
//	weight   = max(0, 1 - 2*|consistency - 0.5|)
//	adv      = advantage * weight
//	clipHigh = baseUpper + scale*|0.5 - consistency|
func (t *ADPOTrainer) Rescale(stats AmbiguityStats) Rescaled {
	weight := math.Max(0, 1-2*math.Abs(stats.Consistency-0.5))
	return Rescaled{
		Adv:      stats.Advantage * weight,
		ClipLow:  t.cfg.LowerClip,
		ClipHigh: t.dynamicUpper(stats.Consistency),
		Prompt:   stats.Prompt,
		Response: stats.Response,
	}
}

// Step rescales every rollout, dispatches the (prompt, response, advantage)
// triples to the backend when one is configured, and returns the records.
func (t *ADPOTrainer) Step(ctx context.Context, batch []AmbiguityStats) ([]Rescaled, error) {
	records := make([]Rescaled, 0, len(batch))
	scalars := make([]ScalarSample, 0, len(batch))
	for _, item := range batch {
		rec := t.Rescale(item)
		records = append(records, rec)
		scalars = append(scalars, ScalarSample{Prompt: rec.Prompt, Response: rec.Response, Value: rec.Adv})
		t.sink.Log(map[string]any{"executor/adv_scaled": rec.Adv})
		telemetry.ExecutorAdvantage.Observe(rec.Adv)
	}

	if t.backend != nil {
		if err := t.backend.Step(ctx, scalars); err != nil {
			return nil, fmt.Errorf("executor backend step: %w", err)
		}
	}
	t.logger.Debug("executor step complete", "batch_size", len(batch))
	return records, nil
}
