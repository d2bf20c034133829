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
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatClient speaks the OpenAI chat-completion protocol against any
// compatible serving endpoint: a vLLM server in the training rig, or the
// hosted API for the verifier.
type OpenAICompatClient struct {
	client *openai.Client
	model  string
}

// NewOpenAICompatClient creates a client for the given endpoint and model.
// The API key is read from apiKeyEnv (default OPENAI_API_KEY); vLLM servers
// that skip auth accept any non-empty key.
func NewOpenAICompatClient(endpoint, model, apiKeyEnv string) (*OpenAICompatClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("serving endpoint not set")
	}
	if model == "" {
		return nil, fmt.Errorf("model name not set")
	}
	if apiKeyEnv == "" {
		apiKeyEnv = "OPENAI_API_KEY"
	}
	apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv))
	if apiKey == "" {
		slog.Warn("API key env not set, using placeholder", "env", apiKeyEnv)
		apiKey = "unset"
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(endpoint, "/")
	return &OpenAICompatClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Chat implements the LLMClient interface.
func (c *OpenAICompatClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	req := openai.ChatCompletionRequest{Model: c.model}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("serving endpoint returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ LLMClient = (*OpenAICompatClient)(nil)
