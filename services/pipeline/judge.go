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
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/noah-ing/Agent0/pkg/logging"
)

// VerdictKind distinguishes a genuine judgment from a transport failure.
// The acceptance gate owns the policy for Unavailable verdicts; the judge
// only reports what happened.
type VerdictKind int

const (
	// VerdictValid means the judge ruled the sample well-formed and correct.
	VerdictValid VerdictKind = iota

	// VerdictInvalid means the judge ruled the sample defective.
	VerdictInvalid

	// VerdictUnavailable means the judge could not be reached. The
	// feedback carries the transport error.
	VerdictUnavailable
)

// String returns the verdict kind name.
func (k VerdictKind) String() string {
	switch k {
	case VerdictValid:
		return "valid"
	case VerdictInvalid:
		return "invalid"
	case VerdictUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Verdict is a verifier outcome with optional free-form feedback.
type Verdict struct {
	Kind     VerdictKind
	Feedback string
}

// IsValid reports whether the judge affirmatively validated the sample.
func (v Verdict) IsValid() bool { return v.Kind == VerdictValid }

// Verifier rules on candidate task texts. Implementations never return an
// error: transport failures surface as VerdictUnavailable so callers can
// apply their own policy.
type Verifier interface {
	Verify(ctx context.Context, text string) Verdict
}

// FormatJudge applies the local format heuristic: a sample is valid iff it
// carries a boxed answer. Used standalone when no remote verifier is
// configured.
type FormatJudge struct{}

// Verify implements Verifier.
func (FormatJudge) Verify(ctx context.Context, text string) Verdict {
	if strings.Contains(text, `\boxed`) {
		return Verdict{Kind: VerdictValid, Feedback: "format ok (local)"}
	}
	return Verdict{Kind: VerdictInvalid, Feedback: "missing boxed answer (local)"}
}

var _ Verifier = FormatJudge{}

const judgeInstructions = "Return `yes` if the answer is correct and well formatted, else `no`."

// RemoteJudge asks an OpenAI-compatible verifier endpoint for a yes/no
// verdict on the sample text.
type RemoteJudge struct {
	client *openai.Client
	model  string
	logger *logging.Logger
}

// RemoteJudgeConfig configures the remote verifier endpoint.
type RemoteJudgeConfig struct {
	// Endpoint is the OpenAI-compatible base URL, e.g. a vLLM server.
	Endpoint string

	// APIKey authenticates the request.
	APIKey string

	// Model names the verifier model. Default: gpt-4o-mini-verifier.
	Model string
}

// NewRemoteJudge creates a judge against the configured endpoint.
func NewRemoteJudge(cfg RemoteJudgeConfig, logger *logging.Logger) (*RemoteJudge, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote judge requires an endpoint")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote judge requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini-verifier"
	}
	if logger == nil {
		logger = logging.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.Endpoint
	return &RemoteJudge{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger.With("component", "remote_judge"),
	}, nil
}

// Verify implements Verifier. A transport failure yields VerdictUnavailable
// with the error as feedback; it is never silently folded into Invalid.
func (j *RemoteJudge) Verify(ctx context.Context, text string) Verdict {
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeInstructions},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		j.logger.Warn("verifier unreachable", "error", err)
		return Verdict{Kind: VerdictUnavailable, Feedback: fmt.Sprintf("verifier error: %v", err)}
	}
	if len(resp.Choices) == 0 {
		return Verdict{Kind: VerdictUnavailable, Feedback: "verifier error: empty response"}
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	if strings.HasPrefix(answer, "y") {
		return Verdict{Kind: VerdictValid, Feedback: "remote"}
	}
	return Verdict{Kind: VerdictInvalid, Feedback: "remote"}
}

var _ Verifier = (*RemoteJudge)(nil)
