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

	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/telemetry"
)

// FilterConfig tunes the acceptance gate.
type FilterConfig struct {
	// Low and High bound the closed consistency band. Samples with p_hat
	// outside [Low, High] are rejected: the band targets ambiguous tasks,
	// not easy (p_hat near 1) or unsolved (p_hat near 0) ones.
	// Reversed bounds are swapped; defaults are 0.3 and 0.8.
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`

	// RepetitionThreshold is the similarity cutoff for the novelty guard.
	// Default 0.8.
	RepetitionThreshold float64 `yaml:"repetition_threshold"`

	// MaxHistory caps the novelty guard history. Default 256.
	MaxHistory int `yaml:"max_history"`

	// AcceptOnUnavailable admits samples whose verifier verdict was
	// Unavailable instead of rejecting them. Default false: fail closed,
	// but the outage is counted and logged distinctly either way.
	AcceptOnUnavailable bool `yaml:"accept_on_unavailable"`
}

// Normalize swaps reversed band bounds and fills zero values with defaults.
func (c FilterConfig) Normalize() FilterConfig {
	if c.Low == 0 && c.High == 0 {
		c.Low, c.High = 0.3, 0.8
	}
	if c.Low > c.High {
		c.Low, c.High = c.High, c.Low
	}
	if c.RepetitionThreshold <= 0 || c.RepetitionThreshold > 1 {
		c.RepetitionThreshold = 0.8
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = 256
	}
	return c
}

// FrontierFilter decides which evaluated samples enter the training
// frontier. Per candidate the stages run cheapest-first, with mutually
// exclusive terminal outcomes:
//
//  1. Reject: repetitive (before spending anything else on a duplicate).
//  2. Reject: p_hat outside the consistency band (before spending a
//     possibly remote verifier call on a task known to be too easy/hard).
//  3. Reject: verifier ruled the sample invalid (or was unavailable,
//     per config).
//  4. Accept: the task text is remembered by the novelty guard.
//
// One telemetry event is emitted per stage transition. Telemetry is a
// reporting side effect only; the frontier does not depend on it.
type FrontierFilter struct {
	cfg    FilterConfig
	judge  Verifier
	guard  *NoveltyGuard
	sink   telemetry.Sink
	logger *logging.Logger
}

// NewFrontierFilter creates a filter. The guard is injected so tests and
// loops own isolated history; pass nil to have the filter construct one
// from config.
func NewFrontierFilter(cfg FilterConfig, judge Verifier, guard *NoveltyGuard, sink telemetry.Sink, logger *logging.Logger) *FrontierFilter {
	cfg = cfg.Normalize()
	if guard == nil {
		guard = NewNoveltyGuard(cfg.RepetitionThreshold, cfg.MaxHistory)
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FrontierFilter{
		cfg:    cfg,
		judge:  judge,
		guard:  guard,
		sink:   sink,
		logger: logger.With("component", "frontier_filter"),
	}
}

// Config returns the normalized filter configuration.
func (f *FrontierFilter) Config() FilterConfig { return f.cfg }

// BuildFrontier runs every evaluated sample through the gate and returns
// the accepted subset in input order.
func (f *FrontierFilter) BuildFrontier(ctx context.Context, evaluated []EvaluatedSample) []EvaluatedSample {
	var frontier []EvaluatedSample
	for _, record := range evaluated {
		if f.admit(ctx, record) {
			frontier = append(frontier, record)
		}
	}
	f.logger.Info("frontier built", "candidates", len(evaluated), "accepted", len(frontier))
	return frontier
}

func (f *FrontierFilter) admit(ctx context.Context, record EvaluatedSample) bool {
	text := record.Sample.RawOutput

	if f.guard.IsRepetitive(text) {
		f.sink.Log(map[string]any{"frontier/rejected_repetition": 1})
		telemetry.FrontierDecisions.WithLabelValues("rejected_repetition").Inc()
		return false
	}

	consistency := clip01(record.Feedback.PHat)
	f.sink.Log(map[string]any{"frontier/consistency": consistency})
	if consistency < f.cfg.Low || consistency > f.cfg.High {
		f.sink.Log(map[string]any{"frontier/rejected_consistency": consistency})
		telemetry.FrontierDecisions.WithLabelValues("rejected_consistency").Inc()
		return false
	}

	verdict := f.judge.Verify(ctx, text)
	f.sink.Log(map[string]any{"judge/is_valid": boolToFloat(verdict.IsValid())})
	if verdict.Feedback != "" {
		f.sink.LogText("judge/feedback", verdict.Feedback)
	}
	if verdict.Kind == VerdictUnavailable {
		telemetry.FrontierDecisions.WithLabelValues("judge_unavailable").Inc()
		f.logger.Warn("verifier unavailable for candidate", "accepting", f.cfg.AcceptOnUnavailable)
		if !f.cfg.AcceptOnUnavailable {
			return false
		}
	} else if verdict.Kind == VerdictInvalid {
		telemetry.FrontierDecisions.WithLabelValues("rejected_judge").Inc()
		return false
	}

	f.sink.Log(map[string]any{"frontier/accepted": 1})
	telemetry.FrontierDecisions.WithLabelValues("accepted").Inc()
	f.guard.Remember(text)
	return true
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
