// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sandbox

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// StopGoConfig controls how code blocks are extracted from model output
// and how their results are spliced back.
type StopGoConfig struct {
	// TriggerRegex matches one executable block; the first capture group
	// (when present) is the code to run. Default: fenced python blocks.
	TriggerRegex string `yaml:"trigger_regex"`

	// MaxCodeBlocks bounds executions per response. Default 3.
	MaxCodeBlocks int `yaml:"max_code_blocks"`

	// CaptureStdout splices captured stdout after the block.
	CaptureStdout bool `yaml:"capture_stdout"`

	// CaptureStderr splices captured stderr after the block.
	CaptureStderr bool `yaml:"capture_stderr"`
}

const defaultTriggerRegex = "(?s)```python\\n(.*?)```"

// StopGoResult is the controller's outcome for one response.
type StopGoResult struct {
	// PatchedResponse is the response with tool output trailers spliced
	// in after each executed block. Unchanged when nothing matched.
	PatchedResponse string

	// Events holds one sandbox result per executed block, nil when the
	// response contained no code.
	Events []Result
}

// StopGoController parses model output, runs each code block through the
// sandbox, and feeds the captured streams back into the response so the
// next turn can incorporate them.
type StopGoController struct {
	runner  Runner
	cfg     StopGoConfig
	trigger *regexp.Regexp
}

// NewStopGoController compiles the trigger regex and returns a controller.
func NewStopGoController(runner Runner, cfg StopGoConfig) (*StopGoController, error) {
	if cfg.TriggerRegex == "" {
		cfg.TriggerRegex = defaultTriggerRegex
	}
	if cfg.MaxCodeBlocks <= 0 {
		cfg.MaxCodeBlocks = 3
	}
	trigger, err := regexp.Compile(cfg.TriggerRegex)
	if err != nil {
		return nil, fmt.Errorf("compile trigger regex: %w", err)
	}
	return &StopGoController{runner: runner, cfg: cfg, trigger: trigger}, nil
}

// Run extracts up to MaxCodeBlocks blocks, executes each, and splices the
// captured output after the originating block.
func (c *StopGoController) Run(ctx context.Context, response, taskID string) StopGoResult {
	matches := c.trigger.FindAllStringSubmatch(response, -1)
	if len(matches) > c.cfg.MaxCodeBlocks {
		matches = matches[:c.cfg.MaxCodeBlocks]
	}
	if len(matches) == 0 {
		return StopGoResult{PatchedResponse: response}
	}

	patched := response
	events := make([]Result, 0, len(matches))
	for idx, match := range matches {
		code := match[0]
		if len(match) > 1 {
			code = match[1]
		}
		result := c.runner.Execute(ctx, code, fmt.Sprintf("%s_code%d", taskID, idx))
		events = append(events, result)

		var snippets []string
		if c.cfg.CaptureStdout && result.Stdout != "" {
			snippets = append(snippets, "[tool stdout]\n"+result.Stdout)
		}
		if c.cfg.CaptureStderr && result.Stderr != "" {
			snippets = append(snippets, "[tool stderr]\n"+result.Stderr)
		}
		if len(snippets) > 0 {
			trailer := "\n\n" + strings.Join(snippets, "\n")
			patched = strings.Replace(patched, match[0], match[0]+trailer, 1)
		}
	}
	return StopGoResult{PatchedResponse: patched, Events: events}
}
