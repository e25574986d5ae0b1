package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/murmur/internal/completion"
	"github.com/matheus3301/murmur/internal/config"
	"github.com/matheus3301/murmur/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	chunks []string
	err    error
	params []llm.Params
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Stream(_ context.Context, p llm.Params, emit llm.EmitFunc) error {
	b.params = append(b.params, p)
	for _, c := range b.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return b.err
}

func testConfig() *config.Server {
	return &config.Server{
		Port:           "0",
		Backend:        config.BackendEcho,
		Model:          "gpt-4o",
		AllowedOrigins: []string{"*"},
	}
}

func newTestServer(cfg *config.Server, b llm.Backend) *Server {
	return NewServer(cfg, completion.New(b, cfg.Model, nil), nil)
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatRejectsNonArrayMessages(t *testing.T) {
	b := &stubBackend{}
	rec := post(t, newTestServer(testConfig(), b), `{"messages":"not-an-array"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"'messages' must be an array of message objects"}`, rec.Body.String())
	assert.Empty(t, b.params, "backend must not be called")
}

func TestChatStreamsPlainText(t *testing.T) {
	b := &stubBackend{chunks: []string{"Hel", "lo"}}
	rec := post(t, newTestServer(testConfig(), b), `{"messages":[],"max_tokens":-5}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Hello", rec.Body.String())
	assert.True(t, rec.Flushed)

	require.Len(t, b.params, 1)
	assert.Equal(t, 500, b.params[0].MaxTokens)
	assert.InDelta(t, 0.7, b.params[0].Temperature, 1e-9)
	assert.InDelta(t, 0.9, b.params[0].TopP, 1e-9)
	assert.Equal(t, "gpt-4o", b.params[0].Model)
}

func TestChatEmptyCompletion(t *testing.T) {
	rec := post(t, newTestServer(testConfig(), &stubBackend{}), `{"messages":[]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Body.String())
}

func TestChatBackendFailureHidesDetail(t *testing.T) {
	b := &stubBackend{err: &llm.APIError{StatusCode: 401, Message: "sk-secret is invalid"}}
	rec := post(t, newTestServer(testConfig(), b), `{"messages":[]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"There was an error processing your request"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "sk-secret")
}

func TestChatMalformedJSON(t *testing.T) {
	rec := post(t, newTestServer(testConfig(), &stubBackend{}), `{"messages":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatFailureMidStreamKeepsStatus(t *testing.T) {
	b := &stubBackend{chunks: []string{"partial"}, err: errors.New("connection reset")}
	rec := post(t, newTestServer(testConfig(), b), `{"messages":[]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestChatBodyTooLarge(t *testing.T) {
	body := `{"messages":[],"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := post(t, newTestServer(testConfig(), &stubBackend{}), body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChatRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	s := newTestServer(cfg, &stubBackend{chunks: []string{"ok"}})

	first := post(t, s, `{"messages":[]}`)
	second := post(t, s, `{"messages":[]}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, second.Body.String())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(testConfig(), llm.Echo{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","backend":"echo"}`, rec.Body.String())
}

func TestCORSRestrictedOrigins(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"http://allowed.test"}
	s := newTestServer(cfg, &stubBackend{})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	ok := preflight("http://allowed.test")
	assert.Equal(t, "http://allowed.test", ok.Header().Get("Access-Control-Allow-Origin"))

	denied := preflight("http://evil.test")
	assert.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusForbidden, denied.Code)
}

func TestServerStartStop(t *testing.T) {
	cfg := testConfig()
	cfg.Port = "0"
	s := newTestServer(cfg, llm.Echo{})
	require.NoError(t, s.Listen())

	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	resp, err := http.Post("http://"+s.Addr()+"/api/chat", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"over the wire"}]}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "over the wire", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, <-errc)
}
