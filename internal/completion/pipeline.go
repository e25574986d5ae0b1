// Package completion validates chat completion requests and relays the
// backend's output to the caller as it is produced.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/matheus3301/murmur/internal/llm"
	"go.uber.org/zap"
)

// Defaults applied to missing or unusable parameters.
const (
	DefaultModel       = "gpt-4o"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

var (
	// ErrInvalidRequest means the body has no messages array. Its text is
	// shown to callers verbatim.
	ErrInvalidRequest = errors.New("'messages' must be an array of message objects")
	// ErrBackendFailure wraps anything that went wrong talking to the model.
	ErrBackendFailure = errors.New("backend failure")
)

// Request is a validated, defaulted completion request.
type Request struct {
	Messages    []json.RawMessage
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Pipeline turns request bodies into backend calls. It is stateless and safe
// for concurrent use.
type Pipeline struct {
	backend llm.Backend
	model   string
	logger  *zap.Logger
}

// New creates a pipeline. An empty model means DefaultModel.
func New(backend llm.Backend, model string, logger *zap.Logger) *Pipeline {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{backend: backend, model: model, logger: logger}
}

// Backend returns the name of the configured backend.
func (p *Pipeline) Backend() string {
	return p.backend.Name()
}

// Prepare validates body and fills in defaults. Only ErrInvalidRequest is returned.
func (p *Pipeline) Prepare(body []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, ErrInvalidRequest
	}

	var msgs []json.RawMessage
	raw, ok := fields["messages"]
	if !ok || json.Unmarshal(raw, &msgs) != nil || msgs == nil {
		return nil, ErrInvalidRequest
	}

	req := &Request{
		Messages:    msgs,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
	if v, ok := number(fields["max_tokens"]); ok && v > 0 {
		req.MaxTokens = clampTokens(v)
	}
	if v, ok := number(fields["temperature"]); ok {
		req.Temperature = v
	}
	if v, ok := number(fields["top_p"]); ok {
		req.TopP = v
	}
	return req, nil
}

// Stream runs req against the backend and hands each chunk to emit in arrival
// order. The backend goroutine blocks until emit has consumed the previous
// chunk, so a slow caller slows the backend instead of growing a buffer.
//
// Returns emit's error if the caller went away, or an error wrapping
// ErrBackendFailure if the backend failed.
func (p *Pipeline) Stream(ctx context.Context, req *Request, emit func([]byte) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	params := llm.Params{
		Model:       p.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	chunks := make(chan string)
	done := make(chan error, 1)
	go func() {
		defer close(chunks)
		done <- p.backend.Stream(ctx, params, func(text string) error {
			select {
			case chunks <- text:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	start := time.Now()
	var (
		emitErr error
		n       int
	)
	for text := range chunks {
		if err := emit([]byte(text)); err != nil {
			emitErr = err
			cancel()
			break
		}
		n++
	}
	backendErr := <-done

	if emitErr != nil {
		p.logger.Info("completion aborted by caller", zap.Int("chunks", n), zap.Error(emitErr))
		return fmt.Errorf("emit: %w", emitErr)
	}
	if backendErr != nil {
		return fmt.Errorf("%w: %w", ErrBackendFailure, backendErr)
	}
	p.logger.Debug("completion streamed",
		zap.String("backend", p.backend.Name()),
		zap.Int("chunks", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// number reports whether raw holds a JSON number.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v any
	if json.Unmarshal(raw, &v) != nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// clampTokens rounds fractional values up and caps absurd ones.
func clampTokens(v float64) int {
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Ceil(v))
}
