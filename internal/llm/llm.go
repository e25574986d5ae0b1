// Package llm streams chat completions from a language model backend.
package llm

import (
	"context"
	"encoding/json"
)

// Roles of chat turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params is a fully defaulted completion request. Messages are kept as raw
// JSON so caller-supplied turns reach the model unchanged.
type Params struct {
	Model       string
	Messages    []json.RawMessage
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// EmitFunc receives generated text in order. Returning an error stops the stream.
type EmitFunc func(text string) error

// Backend produces completion text incrementally.
type Backend interface {
	Name() string
	Stream(ctx context.Context, p Params, emit EmitFunc) error
}

// RawMessages encodes typed turns for Params.Messages.
func RawMessages(msgs ...Message) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		b, _ := json.Marshal(m)
		out = append(out, b)
	}
	return out
}
