// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/noah-ing/Agent0/pkg/logging"
)

// FlexFloat is a float that survives malformed YAML values. Numbers and
// numeric strings parse normally; anything else leaves the value unset so
// the caller substitutes the default. Substitutions are logged at load time.
type FlexFloat struct {
	Value float64
	Set   bool
}

// Or returns the parsed value, or def when unset.
func (f FlexFloat) Or(def float64) float64 {
	if f.Set {
		return f.Value
	}
	return def
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *FlexFloat) UnmarshalYAML(node *yaml.Node) error {
	var v float64
	if err := node.Decode(&v); err == nil {
		f.Value, f.Set = v, true
		return nil
	}
	var s string
	if err := node.Decode(&s); err == nil {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			f.Value, f.Set = parsed, true
			return nil
		}
	}
	// Leave unset; the default applies.
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (f FlexFloat) MarshalYAML() (any, error) {
	if !f.Set {
		return nil, nil
	}
	return f.Value, nil
}

// Load reads the YAML config at path on top of defaults. A missing or
// empty path returns defaults. Unreadable files fail; malformed individual
// values coerce to defaults with a warning.
func Load(path string, logger *logging.Logger) (Config, error) {
	if logger == nil {
		logger = logging.Default()
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return coerce(cfg, logger), nil
}

// coerce pushes out-of-range values back to defaults, logging each.
func coerce(cfg Config, logger *logging.Logger) Config {
	def := Default()

	if !cfg.Filter.Low.Set || !cfg.Filter.High.Set {
		logger.Warn("consistency band bound missing or malformed, using defaults",
			"low", cfg.Filter.Low.Or(def.Filter.Low.Value),
			"high", cfg.Filter.High.Or(def.Filter.High.Value),
		)
	}
	if cfg.Filter.MaxHistory <= 0 {
		cfg.Filter.MaxHistory = def.Filter.MaxHistory
	}

	if cfg.GRPO.Uncertainty < 0 || cfg.GRPO.ToolUsage < 0 || cfg.GRPO.RepetitionPenalty < 0 {
		logger.Warn("negative GRPO coefficient, using defaults", "got", cfg.GRPO)
		cfg.GRPO = def.GRPO
	}

	if cfg.Loop.CurriculumBatch <= 0 {
		cfg.Loop.CurriculumBatch = def.Loop.CurriculumBatch
	}
	if cfg.Loop.ExecutorBatch <= 0 {
		cfg.Loop.ExecutorBatch = def.Loop.ExecutorBatch
	}
	if cfg.Loop.Iterations <= 0 {
		cfg.Loop.Iterations = def.Loop.Iterations
	}
	if cfg.Loop.ExecutorSamples < 1 {
		logger.Warn("executor_samples below 1, coercing", "got", cfg.Loop.ExecutorSamples)
		cfg.Loop.ExecutorSamples = 1
	}

	return cfg
}
