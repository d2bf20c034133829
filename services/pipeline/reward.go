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
	"math"
	"regexp"
	"strings"

	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/telemetry"
)

var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\?`),
	regexp.MustCompile(`(?i)Let's think`),
	regexp.MustCompile(`(?i)explain why`),
	regexp.MustCompile(`(?i)prove`),
	regexp.MustCompile(`(?i)derive`),
}

var toolPatterns = []*regexp.Regexp{
	regexp.MustCompile("```python"),
	regexp.MustCompile(`(?i)code`),
	regexp.MustCompile(`(?i)calculator`),
	regexp.MustCompile(`(?i)write a program`),
}

var uncertaintyTerms = []string{"complex", "challenging", "multi-step", "hard", "open"}

// StatisticalEstimate derives reward terms from aggregated executor
// statistics. Preferred whenever feedback sampling ran.
type StatisticalEstimate struct {
	PHat         float64
	AvgToolCalls float64
}

// Uncertainty is maximal (1) at p_hat = 0.5 and falls off linearly toward
// zero at p_hat 0 or 1: ambiguous tasks score highest.
func (e StatisticalEstimate) Uncertainty() float64 {
	return clip01(1 - 2*math.Abs(e.PHat-0.5))
}

// ToolUsage normalizes the mean tool call count against cap.
func (e StatisticalEstimate) ToolUsage(cap float64) float64 {
	avg := math.Max(0, e.AvgToolCalls)
	return clip01(avg / math.Max(cap, 1e-3))
}

// TextHeuristicEstimate derives reward terms from the sample text alone,
// the fallback when no executor statistics are available.
type TextHeuristicEstimate struct {
	Text string
}

// Uncertainty combines a length-based complexity proxy with counts of
// question and uncertainty-indicating phrases.
func (e TextHeuristicEstimate) Uncertainty() float64 {
	tokens := len(strings.Fields(e.Text))
	complexity := clip01(float64(tokens) / 400)

	questionHits := countMatches(questionPatterns, e.Text)
	lower := strings.ToLower(e.Text)
	boost := 0
	for _, term := range uncertaintyTerms {
		if strings.Contains(lower, term) {
			boost++
		}
	}
	return clip01(0.25 + 0.4*complexity + 0.05*float64(questionHits) + 0.05*float64(boost))
}

// ToolUsage estimates from tool-indicating phrases in the text.
func (e TextHeuristicEstimate) ToolUsage() float64 {
	toolHits := countMatches(toolPatterns, e.Text)
	usage := 0.1 + 0.2*math.Log1p(float64(toolHits))
	if strings.Contains(e.Text, "```python") {
		usage += 0.15
	}
	return clip01(usage)
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	total := 0
	for _, pat := range patterns {
		total += len(pat.FindAllStringIndex(text, -1))
	}
	return total
}

// UniqueTokenRatio returns unique/total whitespace tokens, 1 for empty text.
func UniqueTokenRatio(text string) float64 {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return 1
	}
	unique := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		unique[tok] = struct{}{}
	}
	return float64(len(unique)) / float64(len(tokens))
}

// RewardModel converts a task text plus optional aggregated statistics into
// a normalized reward breakdown. The verifier verdict is always consulted
// and nudges uncertainty by 0.05 (valid down, otherwise up) before the
// final clip.
type RewardModel struct {
	judge   Verifier
	sink    telemetry.Sink
	logger  *logging.Logger
	toolCap float64
}

// NewRewardModel creates a reward model. toolCap <= 0 coerces to 4.0.
func NewRewardModel(judge Verifier, sink telemetry.Sink, logger *logging.Logger, toolCap float64) *RewardModel {
	if toolCap <= 0 {
		toolCap = 4.0
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RewardModel{
		judge:   judge,
		sink:    sink,
		logger:  logger.With("component", "reward_model"),
		toolCap: toolCap,
	}
}

// Score produces the reward breakdown for one sample. stats may be nil or
// partially populated; each term independently picks the statistical or
// text-heuristic strategy based on what is available.
func (m *RewardModel) Score(ctx context.Context, sampleText string, stats *Stats) RewardBreakdown {
	verdict := m.judge.Verify(ctx, sampleText)
	heuristic := TextHeuristicEstimate{Text: sampleText}

	var uncertainty float64
	if stats != nil && stats.PHat != nil {
		uncertainty = StatisticalEstimate{PHat: *stats.PHat}.Uncertainty()
	} else {
		uncertainty = heuristic.Uncertainty()
	}
	if verdict.IsValid() {
		uncertainty = clip01(uncertainty - 0.05)
	} else {
		uncertainty = clip01(uncertainty + 0.05)
	}

	var toolUsage float64
	if stats != nil && stats.AvgToolCalls != nil {
		toolUsage = StatisticalEstimate{AvgToolCalls: *stats.AvgToolCalls}.ToolUsage(m.toolCap)
	} else {
		toolUsage = heuristic.ToolUsage()
	}

	repetition := clip01(1 - UniqueTokenRatio(sampleText))

	breakdown := RewardBreakdown{
		Uncertainty: uncertainty,
		ToolUsage:   toolUsage,
		Repetition:  repetition,
	}

	payload := map[string]any{
		"curriculum/uncertainty": uncertainty,
		"curriculum/tool_usage":  toolUsage,
		"curriculum/repetition":  repetition,
		"curriculum/judge_pass":  boolToFloat(verdict.IsValid()),
	}
	if stats != nil && stats.PHat != nil {
		payload["curriculum/p_hat"] = *stats.PHat
	}
	if stats != nil && stats.AvgToolCalls != nil {
		payload["executor/tool_calls_avg"] = *stats.AvgToolCalls
	}
	m.sink.Log(payload)
	if verdict.Feedback != "" {
		m.sink.LogText("curriculum/judge_feedback", verdict.Feedback)
	}

	return breakdown
}
