// Package policy wraps the language-model serving endpoints behind the
// curriculum and executor roles: prompt assembly, call dispatch, and
// multi-turn stop-go solving with rollout capture.
package policy

import "context"

// Message is one chat turn sent to a serving endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any serving backend.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}
