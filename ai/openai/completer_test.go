package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/gleaner/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model               string  `json:"model"`
	MaxCompletionTokens int     `json:"max_completion_tokens"`
	Temperature         float64 `json:"temperature"`
	Messages            []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, status int, content string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprintf(w, `{"error":{"message":"status %d","type":"test"}}`, status)
			return
		}
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],`+
			`"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleter_Complete(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, http.StatusOK, `{"author":"unknown"}`, &seen)

	cfg := ai.NewConfig(ai.WithHost(srv.URL), ai.WithAPIKey("sk-test"))
	c, err := NewCompleter(cfg)
	require.NoError(t, err)

	reply, err := c.Complete(context.Background(),
		ai.Prompt{System: "instruction", User: "content"},
		cfg.CleanupProfile())
	require.NoError(t, err)
	assert.Equal(t, `{"author":"unknown"}`, reply)

	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.Equal(t, 16000, seen.MaxCompletionTokens)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "user", seen.Messages[1].Role)
}

func TestCompleter_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ai.ErrRateLimited},
		{http.StatusInternalServerError, ai.ErrUpstream},
		{http.StatusBadRequest, ai.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newChatServer(t, tt.status, "", nil)
			c, err := NewCompleter(ai.NewConfig(ai.WithHost(srv.URL)))
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), ai.Prompt{User: "x"}, ai.DefaultConfig().ExtractionProfile())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewCompleter_InvalidConfig(t *testing.T) {
	_, err := NewCompleter(ai.NewConfig(ai.WithExtractionModel("", 0)))
	assert.Error(t, err)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"net error", timeoutErr{}, ai.ErrConnection},
		{"eof", fmt.Errorf("read: %w", io.EOF), ai.ErrConnection},
		{"refused", errors.New("dial tcp: connection refused"), ai.ErrConnection},
		{"429 status", errors.New("API returned unexpected status code: 429: slow down"), ai.ErrRateLimited},
		{"rate limit text", errors.New("Rate limit reached for requests"), ai.ErrRateLimited},
		{"503 status", errors.New("API returned unexpected status code: 503"), ai.ErrUpstream},
		{"overloaded", errors.New("the model is overloaded"), ai.ErrUpstream},
		{"401 status", errors.New("API returned unexpected status code: 401"), ai.ErrInvalidRequest},
		{"unknown", errors.New("model not found"), ai.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(ctx, tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	t.Run("canceled context is not transient", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		got := classify(cctx, errors.New("connection reset"))
		assert.ErrorIs(t, got, context.Canceled)
		assert.False(t, ai.IsTransient(got))
	})
}
