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

import "context"

// AgentConfig describes one policy role against a serving endpoint.
type AgentConfig struct {
	// Name identifies the role ("curriculum", "executor") in logs.
	Name string `yaml:"name"`

	// Endpoint is the OpenAI-compatible serving base URL.
	Endpoint string `yaml:"endpoint"`

	// Model names the served model.
	Model string `yaml:"model"`

	// APIKeyEnv names the env var holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// MaxTokens bounds each generation.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature.
	Temperature float32 `yaml:"temperature"`

	// SystemPrompt is prepended to every conversation.
	SystemPrompt string `yaml:"system_prompt"`
}

// baseAgent handles prompt assembly and call dispatch shared by both
// policy roles.
type baseAgent struct {
	cfg    AgentConfig
	client LLMClient
}

// invokeConversation prepends the system prompt and dispatches the full
// conversation with the role's generation parameters.
func (a *baseAgent) invokeConversation(ctx context.Context, conversation []Message) (string, error) {
	messages := make([]Message, 0, len(conversation)+1)
	messages = append(messages, Message{Role: "system", Content: a.cfg.SystemPrompt})
	messages = append(messages, conversation...)

	params := GenerationParams{}
	if a.cfg.Temperature > 0 {
		temp := a.cfg.Temperature
		params.Temperature = &temp
	}
	if a.cfg.MaxTokens > 0 {
		maxTokens := a.cfg.MaxTokens
		params.MaxTokens = &maxTokens
	}
	return a.client.Chat(ctx, messages, params)
}

// invoke dispatches a single user message.
func (a *baseAgent) invoke(ctx context.Context, userContent string) (string, error) {
	return a.invokeConversation(ctx, []Message{{Role: "user", Content: userContent}})
}
