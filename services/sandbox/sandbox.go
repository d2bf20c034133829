// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sandbox runs model-emitted code blocks through the sandfuzz CLI
// and splices the captured output back into executor responses (stop-go
// orchestration). The sandbox is a black box from the trainer's
// perspective: it returns stdout, stderr, and a status string.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config controls sandbox execution.
type Config struct {
	// PythonRuntime names the language runtime passed to sandfuzz.
	PythonRuntime string `yaml:"python_runtime"`

	// ExecutionTimeoutS bounds one code block's wall time in seconds.
	ExecutionTimeoutS int `yaml:"execution_timeout_s"`

	// MemoryLimitMB bounds one code block's memory.
	MemoryLimitMB int `yaml:"memory_limit_mb"`

	// ArtifactDir receives one JSON artifact per execution.
	ArtifactDir string `yaml:"artifact_dir"`

	// LogPath, when set, appends one JSONL record per execution.
	LogPath string `yaml:"log_path"`
}

// Result is one sandbox execution outcome. Status is "ok", "exit-N",
// "missing-binary", or "timeout".
type Result struct {
	TaskID   string  `json:"task_id"`
	Code     string  `json:"code"`
	Stdout   string  `json:"stdout"`
	Stderr   string  `json:"stderr"`
	Status   string  `json:"status"`
	LatencyS float64 `json:"latency_s"`
}

// Runner executes one code block. PythonSandbox is the production
// implementation; tests substitute stubs.
type Runner interface {
	Execute(ctx context.Context, code, taskID string) Result
}

// PythonSandbox delegates code blocks to the sandfuzz CLI.
type PythonSandbox struct {
	cfg Config
}

// NewPythonSandbox creates the artifact directory and returns a sandbox.
func NewPythonSandbox(cfg Config) (*PythonSandbox, error) {
	if cfg.PythonRuntime == "" {
		cfg.PythonRuntime = "python3.11"
	}
	if cfg.ExecutionTimeoutS <= 0 {
		cfg.ExecutionTimeoutS = 20
	}
	if cfg.MemoryLimitMB <= 0 {
		cfg.MemoryLimitMB = 512
	}
	if cfg.ArtifactDir == "" {
		cfg.ArtifactDir = "data/sandbox"
	}
	if err := os.MkdirAll(cfg.ArtifactDir, 0750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	return &PythonSandbox{cfg: cfg}, nil
}

// Execute runs one code block through sandfuzz, capturing stdout/stderr and
// mapping process failures onto status strings. Execution never returns an
// error: sandbox failures are data, not control flow.
func (s *PythonSandbox) Execute(ctx context.Context, code, taskID string) Result {
	timeout := time.Duration(s.cfg.ExecutionTimeoutS+2) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sandfuzz", "run",
		"--lang", s.cfg.PythonRuntime,
		"--timeout", strconv.Itoa(s.cfg.ExecutionTimeoutS),
		"--memory", strconv.Itoa(s.cfg.MemoryLimitMB),
	)
	cmd.Stdin = strings.NewReader(code)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	latency := time.Since(start).Seconds()

	result := Result{
		TaskID:   taskID,
		Code:     code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Status:   "ok",
		LatencyS: latency,
	}
	switch {
	case err == nil:
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Status = "timeout"
		result.Stdout = ""
		result.Stderr = "execution exceeded timeout"
	case errors.Is(err, exec.ErrNotFound):
		result.Status = "missing-binary"
		result.Stdout = ""
		result.Stderr = "sandfuzz binary not found"
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Status = fmt.Sprintf("exit-%d", exitErr.ExitCode())
		} else {
			result.Status = "missing-binary"
			result.Stdout = ""
			result.Stderr = err.Error()
		}
	}

	s.persist(result)
	return result
}

func (s *PythonSandbox) persist(result Result) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(s.cfg.ArtifactDir, result.TaskID+".json")
	_ = os.WriteFile(path, data, 0640)

	if s.cfg.LogPath == "" {
		return
	}
	line, err := json.Marshal(result)
	if err != nil {
		return
	}
	f, err := os.OpenFile(s.cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}

var _ Runner = (*PythonSandbox)(nil)
