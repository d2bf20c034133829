// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"context"
	"fmt"

	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/pipeline"
)

// defaultCurriculumSeed drives task generation.
// TODO(seeding): synthesize frontier-aware seeds from recent acceptance
// stats instead of a fixed prompt.
const defaultCurriculumSeed = "Create a novel math reasoning task that benefits from code execution."

// CurriculumAgent proposes frontier tasks by sampling the curriculum
// policy once per batch item.
type CurriculumAgent struct {
	baseAgent
	seed   string
	logger *logging.Logger
}

// NewCurriculumAgent creates the curriculum role over the given client.
func NewCurriculumAgent(cfg AgentConfig, client LLMClient, logger *logging.Logger) *CurriculumAgent {
	if logger == nil {
		logger = logging.Default()
	}
	return &CurriculumAgent{
		baseAgent: baseAgent{cfg: cfg, client: client},
		seed:      defaultCurriculumSeed,
		logger:    logger.With("component", "curriculum_agent"),
	}
}

// GenerateBatch draws n curriculum samples. A client failure aborts the
// batch and propagates to the caller; there are no partial batches.
func (a *CurriculumAgent) GenerateBatch(ctx context.Context, n int) ([]pipeline.CurriculumSample, error) {
	samples := make([]pipeline.CurriculumSample, 0, n)
	for i := 0; i < n; i++ {
		raw, err := a.invoke(ctx, a.seed)
		if err != nil {
			return nil, fmt.Errorf("curriculum sample %d/%d: %w", i+1, n, err)
		}
		samples = append(samples, pipeline.CurriculumSample{Prompt: a.seed, RawOutput: raw})
	}
	a.logger.Debug("curriculum batch generated", "size", len(samples))
	return samples, nil
}
