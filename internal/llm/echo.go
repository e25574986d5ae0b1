package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Echo is an offline backend that streams the last user turn back word by
// word. It needs no credentials and is used for demos and tests.
type Echo struct {
	// Delay between words.
	Delay time.Duration
}

// Name implements Backend.
func (Echo) Name() string { return "echo" }

// Stream implements Backend. The reply is truncated to MaxTokens words.
func (e Echo) Stream(ctx context.Context, p Params, emit EmitFunc) error {
	words := strings.Fields(lastUserText(p.Messages))
	if len(words) == 0 {
		words = []string{"..."}
	}
	if p.MaxTokens > 0 && len(words) > p.MaxTokens {
		words = words[:p.MaxTokens]
	}

	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		if e.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.Delay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(w); err != nil {
			return err
		}
	}
	return nil
}

func lastUserText(msgs []json.RawMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		var m struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		}
		if json.Unmarshal(msgs[i], &m) != nil || m.Role != RoleUser {
			continue
		}
		if s, ok := m.Content.(string); ok {
			return s
		}
	}
	return ""
}
