// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instruments for the co-evolution pipeline. Registered on the
// default registry so the dashboard's /metrics endpoint picks them up.
var (
	// FrontierDecisions counts acceptance-gate outcomes by terminal reason:
	// "accepted", "rejected_repetition", "rejected_consistency",
	// "rejected_judge", "judge_unavailable".
	FrontierDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agent0",
		Subsystem: "frontier",
		Name:      "decisions_total",
		Help:      "Acceptance gate outcomes by terminal reason.",
	}, []string{"reason"})

	// CurriculumReward observes composite GRPO rewards per curriculum sample.
	CurriculumReward = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agent0",
		Subsystem: "curriculum",
		Name:      "reward",
		Help:      "Composite curriculum reward per sample.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	// ExecutorAdvantage observes rescaled ADPO advantages per rollout.
	ExecutorAdvantage = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agent0",
		Subsystem: "executor",
		Name:      "advantage_scaled",
		Help:      "Ambiguity-rescaled advantage per rollout.",
		Buckets:   prometheus.LinearBuckets(-0.5, 0.15, 11),
	})

	// LoopIterations counts completed co-evolution iterations.
	LoopIterations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agent0",
		Subsystem: "loop",
		Name:      "iterations_total",
		Help:      "Completed co-evolution iterations.",
	})

	// FrontierSize reports the frontier size of the latest iteration.
	FrontierSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "agent0",
		Subsystem: "frontier",
		Name:      "size",
		Help:      "Frontier size of the most recent iteration.",
	})
)
