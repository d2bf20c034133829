// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-ing/Agent0/cmd/agent0/config"
	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/dashboard"
	"github.com/noah-ing/Agent0/services/pipeline"
	"github.com/noah-ing/Agent0/services/policy"
	"github.com/noah-ing/Agent0/services/sandbox"
	"github.com/noah-ing/Agent0/services/telemetry"
	"github.com/noah-ing/Agent0/services/training"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		iterations int
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the co-evolution training loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if verbose {
				level = logging.LevelDebug
			}
			logger := logging.New(logging.Config{Level: level, Service: "agent0"})

			cfg, err := config.Load(configPath, logger)
			if err != nil {
				return err
			}
			if iterations > 0 {
				cfg.Loop.Iterations = iterations
			}

			loop, store, err := buildLoop(cfg, logger)
			if err != nil {
				return err
			}

			if cfg.Dashboard.Enabled {
				server := dashboard.NewServer(store, logger)
				go func() {
					if err := server.Run(cfg.Dashboard.Addr); err != nil {
						logger.Error("dashboard stopped", "error", err)
					}
				}()
			}

			ctx := cmd.Context()
			start := time.Now()
			for i := 0; i < cfg.Loop.Iterations; i++ {
				result, err := loop.RunIteration(ctx)
				if err != nil {
					return fmt.Errorf("iteration %d: %w", i+1, err)
				}
				store.Record(dashboard.IterationSummary{
					Iteration:      i + 1,
					FrontierSize:   result.FrontierSize,
					ExecutorTraces: len(result.ExecutorTraces),
					CompletedAt:    time.Now(),
				})
				fmt.Fprintf(os.Stdout, "iteration %d: frontier=%d traces=%d\n",
					i+1, result.FrontierSize, len(result.ExecutorTraces))
			}
			fmt.Fprintf(os.Stdout, "run complete: %d iterations in %s\n",
				cfg.Loop.Iterations, time.Since(start).Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults apply when omitted)")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "override configured iteration count")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

// buildLoop wires every collaborator from config. Construction order
// mirrors the data flow: sandbox -> policies -> pipeline -> trainers.
func buildLoop(cfg config.Config, logger *logging.Logger) (*training.CoEvolutionLoop, *dashboard.StatusStore, error) {
	var sink telemetry.Sink = telemetry.NopSink{}
	if cfg.Telemetry.Path != "" {
		jsonl, err := telemetry.NewJSONLSink(cfg.Telemetry.Path)
		if err != nil {
			return nil, nil, err
		}
		sink = jsonl
	}

	box, err := sandbox.NewPythonSandbox(cfg.Sandbox)
	if err != nil {
		return nil, nil, err
	}
	stopGo, err := sandbox.NewStopGoController(box, cfg.StopGo)
	if err != nil {
		return nil, nil, err
	}

	curriculumClient, err := policy.NewOpenAICompatClient(
		cfg.Policies.Curriculum.Endpoint, cfg.Policies.Curriculum.Model, cfg.Policies.Curriculum.APIKeyEnv)
	if err != nil {
		return nil, nil, fmt.Errorf("curriculum client: %w", err)
	}
	executorClient, err := policy.NewOpenAICompatClient(
		cfg.Policies.Executor.Endpoint, cfg.Policies.Executor.Model, cfg.Policies.Executor.APIKeyEnv)
	if err != nil {
		return nil, nil, fmt.Errorf("executor client: %w", err)
	}

	curriculum := policy.NewCurriculumAgent(cfg.Policies.Curriculum, curriculumClient, logger)
	executor, err := policy.NewExecutorAgent(cfg.Policies.Executor, executorClient, stopGo, sink, logger)
	if err != nil {
		return nil, nil, err
	}

	var judge pipeline.Verifier = pipeline.FormatJudge{}
	if cfg.Judge.Endpoint != "" {
		remote, err := pipeline.NewRemoteJudge(pipeline.RemoteJudgeConfig{
			Endpoint: cfg.Judge.Endpoint,
			APIKey:   os.Getenv(cfg.Judge.APIKeyEnv),
			Model:    cfg.Judge.Model,
		}, logger)
		if err != nil {
			logger.Warn("remote judge unavailable, using local format judge", "error", err)
		} else {
			judge = remote
		}
	}

	filterCfg := cfg.Filter.FilterConfig()
	guard := pipeline.NewNoveltyGuard(filterCfg.RepetitionThreshold, filterCfg.MaxHistory)
	filter := pipeline.NewFrontierFilter(filterCfg, judge, guard, sink, logger)
	rewards := pipeline.NewRewardModel(judge, sink, logger, cfg.Rewards.ToolCap.Or(4.0))
	aggregator := pipeline.NewConsistencyAggregator(executor, logger)

	grpo := training.NewGRPOTrainer(cfg.GRPO,
		&training.LoggingBackend{Name: "curriculum", Logger: logger}, sink, logger)
	adpo := training.NewADPOTrainer(cfg.ADPO,
		&training.LoggingBackend{Name: "executor", Logger: logger}, sink, logger)

	loop := training.NewCoEvolutionLoop(cfg.Loop, curriculum, aggregator, filter, rewards, grpo, adpo, logger)
	return loop, dashboard.NewStatusStore(0), nil
}
