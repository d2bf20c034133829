// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package training composes rewards into policy updates: GRPO for the
// curriculum policy, ADPO for the executor policy, and the co-evolution
// loop that alternates them.
package training

import (
	"context"

	"github.com/noah-ing/Agent0/pkg/logging"
)

// ScalarSample is one (prompt, response, scalar) training triple. The
// scalar is a reward for curriculum updates and a rescaled advantage for
// executor updates.
type ScalarSample struct {
	Prompt   string
	Response string
	Value    float64
}

// PolicyBackend performs an opaque optimizer step over a batch of scalar
// training triples. The core is fire-and-forget: it never reads anything
// back from the backend, so any concrete trainer (in-process, remote
// service, or logging stub) can satisfy this.
type PolicyBackend interface {
	Step(ctx context.Context, batch []ScalarSample) error
}

// NopBackend discards batches. Used when a policy update side is disabled.
type NopBackend struct{}

// Step implements PolicyBackend.
func (NopBackend) Step(ctx context.Context, batch []ScalarSample) error { return nil }

var _ PolicyBackend = NopBackend{}

// LoggingBackend records batch sizes, standing in for a real trainer hook
// during dry runs.
type LoggingBackend struct {
	Name   string
	Logger *logging.Logger
}

// Step implements PolicyBackend.
func (b *LoggingBackend) Step(ctx context.Context, batch []ScalarSample) error {
	logger := b.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Info("policy backend step", "backend", b.Name, "batch_size", len(batch))
	return nil
}

var _ PolicyBackend = (*LoggingBackend)(nil)
