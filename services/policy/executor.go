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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-ing/Agent0/pkg/logging"
	"github.com/noah-ing/Agent0/services/pipeline"
	"github.com/noah-ing/Agent0/services/sandbox"
	"github.com/noah-ing/Agent0/services/telemetry"
)

const defaultContinuationPrompt = "Continue the reasoning for turn %d. " +
	"Incorporate any tool output above before proceeding. " +
	"When you are certain, respond with 'FINAL ANSWER: <value>'."

var defaultFinalMarkers = []string{"FINAL ANSWER:", `\boxed{`, "</final_answer>"}

// ExecutorAgentConfig extends the role config with stop-go settings.
type ExecutorAgentConfig struct {
	AgentConfig `yaml:",inline"`

	// MaxTurns bounds the stop-go conversation. Default 4.
	MaxTurns int `yaml:"max_turns"`

	// RolloutDir receives one JSON transcript artifact per rollout.
	// Default data/rollouts.
	RolloutDir string `yaml:"rollout_dir"`
}

// ExecutorAgent solves tasks via multi-turn tool use: it invokes the
// serving endpoint, runs any emitted code blocks through the stop-go
// controller, splices the tool output back, and continues until a final
// marker appears or turns run out. Every rollout is captured as an
// immutable ExecutionTrace with a persisted transcript artifact.
type ExecutorAgent struct {
	baseAgent
	cfg          ExecutorAgentConfig
	tool         *sandbox.StopGoController
	sink         telemetry.Sink
	logger       *logging.Logger
	finalMarkers []string
}

// NewExecutorAgent creates the executor role. The stop-go controller is
// required; sink may be nil.
func NewExecutorAgent(cfg ExecutorAgentConfig, client LLMClient, tool *sandbox.StopGoController, sink telemetry.Sink, logger *logging.Logger) (*ExecutorAgent, error) {
	if tool == nil {
		return nil, fmt.Errorf("executor agent requires a stop-go controller")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 4
	}
	if cfg.RolloutDir == "" {
		cfg.RolloutDir = "data/rollouts"
	}
	if err := os.MkdirAll(cfg.RolloutDir, 0750); err != nil {
		return nil, fmt.Errorf("create rollout dir: %w", err)
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ExecutorAgent{
		baseAgent:    baseAgent{cfg: cfg.AgentConfig, client: client},
		cfg:          cfg,
		tool:         tool,
		sink:         sink,
		logger:       logger.With("component", "executor_agent"),
		finalMarkers: defaultFinalMarkers,
	}, nil
}

// Solve implements pipeline.ExecutorPolicy.
func (a *ExecutorAgent) Solve(ctx context.Context, task string) (*pipeline.ExecutionTrace, error) {
	traceID := "exec_" + uuid.NewString()
	conversation := []Message{{Role: "user", Content: task}}
	turns := []pipeline.TurnRecord{{Role: "user", Content: task}}
	var aggregated []pipeline.ToolEvent
	finalAnswer := ""

	for turnIdx := 0; turnIdx < a.cfg.MaxTurns; turnIdx++ {
		response, err := a.invokeConversation(ctx, conversation)
		if err != nil {
			return nil, fmt.Errorf("executor turn %d: %w", turnIdx+1, err)
		}

		toolResult := a.tool.Run(ctx, response, fmt.Sprintf("%s_turn%d", traceID, turnIdx))
		patched := toolResult.PatchedResponse
		turnEvents := toEvents(toolResult.Events)
		aggregated = append(aggregated, turnEvents...)
		turns = append(turns, pipeline.TurnRecord{
			Role:       "assistant",
			Content:    patched,
			ToolEvents: turnEvents,
		})
		a.sink.Log(map[string]any{
			"executor/tool_events": len(turnEvents),
			"executor/turn_index":  turnIdx + 1,
			"executor/turn_tokens": len(patched),
		})

		conversation = append(conversation, Message{Role: "assistant", Content: patched})
		if a.isTerminal(patched) || turnIdx == a.cfg.MaxTurns-1 {
			finalAnswer = patched
			break
		}

		followUp := fmt.Sprintf(defaultContinuationPrompt, turnIdx+2)
		conversation = append(conversation, Message{Role: "user", Content: followUp})
		turns = append(turns, pipeline.TurnRecord{Role: "user", Content: followUp})
	}

	if finalAnswer == "" {
		finalAnswer = turns[len(turns)-1].Content
	}

	var transcript strings.Builder
	for idx, turn := range turns {
		if idx > 0 {
			transcript.WriteString("\n\n")
		}
		fmt.Fprintf(&transcript, "[%d] %s: %s", idx, turn.Role, turn.Content)
	}

	trace := &pipeline.ExecutionTrace{
		Task:        task,
		TraceID:     traceID,
		Turns:       turns,
		Transcript:  transcript.String(),
		ToolEvents:  aggregated,
		FinalAnswer: finalAnswer,
	}
	trace.RolloutPath = a.persist(trace)

	a.sink.Log(map[string]any{
		"rollout/task":        task,
		"rollout/trace_id":    traceID,
		"rollout/turns":       len(turns),
		"rollout/tool_events": len(aggregated),
	})
	return trace, nil
}

func (a *ExecutorAgent) isTerminal(text string) bool {
	for _, marker := range a.finalMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// persist writes the rollout artifact. Failures degrade to an empty path
// rather than failing the rollout; the trace itself stays in memory.
func (a *ExecutorAgent) persist(trace *pipeline.ExecutionTrace) string {
	path := filepath.Join(a.cfg.RolloutDir,
		fmt.Sprintf("%s_%d.json", trace.TraceID, time.Now().UnixMilli()))
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return ""
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		a.logger.Warn("rollout artifact write failed", "path", path, "error", err)
		return ""
	}
	return path
}

func toEvents(results []sandbox.Result) []pipeline.ToolEvent {
	if len(results) == 0 {
		return nil
	}
	events := make([]pipeline.ToolEvent, 0, len(results))
	for _, r := range results {
		events = append(events, pipeline.ToolEvent{
			TaskID:   r.TaskID,
			Code:     r.Code,
			Stdout:   r.Stdout,
			Stderr:   r.Stderr,
			Status:   r.Status,
			LatencyS: r.LatencyS,
		})
	}
	return events
}

var _ pipeline.ExecutorPolicy = (*ExecutorAgent)(nil)
