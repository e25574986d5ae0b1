// Package assistant talks to murmurd's /api/chat endpoint.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/llm"
	"go.uber.org/zap"
)

// maxReplyBytes caps replies collected for chat messages.
const maxReplyBytes = 16 * 1024

// Request is the /api/chat body. Zero values are omitted so the server applies
// its defaults.
type Request struct {
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

// StatusError is a non-200 answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat endpoint returned %d: %s", e.StatusCode, e.Message)
}

// Client calls a murmurd server. It implements chat.ReplySource.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second}},
		logger:  logger,
	}
}

// Complete posts req and copies the streamed completion to w as it arrives.
func (c *Client) Complete(ctx context.Context, req Request, w io.Writer) error {
	if req.Messages == nil {
		req.Messages = []llm.Message{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

// Reply implements chat.ReplySource: the model plays peer, answering self.
func (c *Client) Reply(ctx context.Context, self, peer chat.User, history []chat.Message) (string, error) {
	var sb limitedBuilder
	err := c.Complete(ctx, Request{Messages: Turns(self, peer, history), MaxTokens: 120}, &sb)
	if err != nil && !errors.Is(err, errReplyTooLong) {
		return "", err
	}
	reply := strings.TrimSpace(sb.String())
	c.logger.Debug("assistant reply", zap.String("peer", peer.ID), zap.Int("len", len(reply)))
	return reply, nil
}

// Turns maps a conversation to chat turns from peer's point of view: what
// self wrote becomes user input, what peer wrote becomes assistant output.
func Turns(self, peer chat.User, history []chat.Message) []llm.Message {
	turns := make([]llm.Message, 0, len(history)+1)
	turns = append(turns, llm.Message{
		Role: llm.RoleSystem,
		Content: fmt.Sprintf("You are %s, chatting with %s in a messaging app. "+
			"Reply in one or two short, casual sentences.", peer.Name, self.Name),
	})
	for _, m := range history {
		switch {
		case m.SenderID == self.ID && m.ReceiverID == peer.ID:
			turns = append(turns, llm.Message{Role: llm.RoleUser, Content: m.Text})
		case m.SenderID == peer.ID && m.ReceiverID == self.ID:
			turns = append(turns, llm.Message{Role: llm.RoleAssistant, Content: m.Text})
		}
	}
	return turns
}

func readStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

var errReplyTooLong = errors.New("reply too long")

// limitedBuilder keeps at most maxReplyBytes and then refuses writes. The cut
// falls on a rune boundary.
type limitedBuilder struct {
	strings.Builder
}

func (b *limitedBuilder) Write(p []byte) (int, error) {
	room := maxReplyBytes - b.Len()
	if room <= 0 {
		return 0, errReplyTooLong
	}
	if len(p) > room {
		cut := room
		for cut > 0 && !utf8.RuneStart(p[cut]) {
			cut--
		}
		b.Builder.Write(p[:cut])
		return cut, errReplyTooLong
	}
	return b.Builder.Write(p)
}

// String returns the collected text without a rune left incomplete by the cut.
func (b *limitedBuilder) String() string {
	return strings.ToValidUTF8(b.Builder.String(), "")
}
