// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the trainer's YAML configuration. Malformed or
// out-of-range values coerce to well-known defaults rather than failing:
// the loop stays runnable with partial configuration, and every coercion
// is logged.
package config

import (
	"github.com/noah-ing/Agent0/services/pipeline"
	"github.com/noah-ing/Agent0/services/policy"
	"github.com/noah-ing/Agent0/services/sandbox"
	"github.com/noah-ing/Agent0/services/training"
)

// Config is the full trainer configuration surface.
type Config struct {
	Filter    FilterSection             `yaml:"filter"`
	Rewards   RewardSection             `yaml:"rewards"`
	GRPO      training.GRPOCoefficients `yaml:"grpo"`
	ADPO      training.ADPOConfig       `yaml:"adpo"`
	Loop      training.LoopConfig       `yaml:"loop"`
	Judge     JudgeSection              `yaml:"judge"`
	Policies  PolicySection             `yaml:"policies"`
	Sandbox   sandbox.Config            `yaml:"sandbox"`
	StopGo    sandbox.StopGoConfig      `yaml:"stop_go"`
	Telemetry TelemetrySection          `yaml:"telemetry"`
	Dashboard DashboardSection          `yaml:"dashboard"`
}

// FilterSection mirrors pipeline.FilterConfig with lenient value parsing:
// non-numeric band bounds coerce to defaults instead of failing the load.
type FilterSection struct {
	Low                 FlexFloat `yaml:"low"`
	High                FlexFloat `yaml:"high"`
	RepetitionThreshold FlexFloat `yaml:"repetition_threshold"`
	MaxHistory          int       `yaml:"max_history"`
	AcceptOnUnavailable bool      `yaml:"accept_on_unavailable"`
}

// FilterConfig converts the section to the pipeline type; band
// normalization (swap + defaults) happens in pipeline.FilterConfig.
func (s FilterSection) FilterConfig() pipeline.FilterConfig {
	return pipeline.FilterConfig{
		Low:                 s.Low.Or(0.3),
		High:                s.High.Or(0.8),
		RepetitionThreshold: s.RepetitionThreshold.Or(0.8),
		MaxHistory:          s.MaxHistory,
		AcceptOnUnavailable: s.AcceptOnUnavailable,
	}.Normalize()
}

// RewardSection tunes the reward model.
type RewardSection struct {
	ToolCap FlexFloat `yaml:"tool_cap"`
}

// JudgeSection configures the external verifier. An empty endpoint selects
// the local format judge.
type JudgeSection struct {
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// PolicySection configures both policy roles.
type PolicySection struct {
	Curriculum policy.AgentConfig         `yaml:"curriculum"`
	Executor   policy.ExecutorAgentConfig `yaml:"executor"`
}

// TelemetrySection configures the metric sink.
type TelemetrySection struct {
	// Path is the telemetry JSONL file. Empty disables telemetry.
	Path string `yaml:"path"`
}

// DashboardSection configures the optional run dashboard.
type DashboardSection struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the canonical configuration: the trainer runs with this
// when no file is given.
func Default() Config {
	return Config{
		Filter: FilterSection{
			Low:                 FlexFloat{Value: 0.3, Set: true},
			High:                FlexFloat{Value: 0.8, Set: true},
			RepetitionThreshold: FlexFloat{Value: 0.8, Set: true},
			MaxHistory:          256,
		},
		Rewards: RewardSection{ToolCap: FlexFloat{Value: 4.0, Set: true}},
		GRPO:    training.DefaultGRPOCoefficients(),
		ADPO:    training.ADPOConfig{LowerClip: 0.2, BaseUpperClip: 0.28, Scale: 0.1},
		Loop: training.LoopConfig{
			CurriculumBatch: 8,
			ExecutorBatch:   4,
			Iterations:      1,
			ExecutorSamples: 4,
		},
		Judge: JudgeSection{APIKeyEnv: "OPENAI_API_KEY", Model: "gpt-4o-mini-verifier"},
		Policies: PolicySection{
			Curriculum: policy.AgentConfig{
				Name:         "curriculum",
				Endpoint:     "http://localhost:8000/v1",
				Model:        "agent0-curriculum",
				APIKeyEnv:    "AGENT0_API_KEY",
				MaxTokens:    1024,
				Temperature:  1.0,
				SystemPrompt: "You are a curriculum designer proposing tasks at the frontier of the solver's ability.",
			},
			Executor: policy.ExecutorAgentConfig{
				AgentConfig: policy.AgentConfig{
					Name:         "executor",
					Endpoint:     "http://localhost:8001/v1",
					Model:        "agent0-executor",
					APIKeyEnv:    "AGENT0_API_KEY",
					MaxTokens:    2048,
					Temperature:  0.7,
					SystemPrompt: "You solve tasks step by step, running python code when it helps.",
				},
				MaxTurns:   4,
				RolloutDir: "data/rollouts",
			},
		},
		Sandbox: sandbox.Config{
			PythonRuntime:     "python3.11",
			ExecutionTimeoutS: 20,
			MemoryLimitMB:     512,
			ArtifactDir:       "data/sandbox",
		},
		StopGo: sandbox.StopGoConfig{
			MaxCodeBlocks: 3,
			CaptureStdout: true,
			CaptureStderr: true,
		},
		Telemetry: TelemetrySection{Path: "reports/telemetry.jsonl"},
		Dashboard: DashboardSection{Addr: ":8600"},
	}
}
