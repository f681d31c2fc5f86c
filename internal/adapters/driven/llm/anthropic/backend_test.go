package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

func TestNewBackend_RequiresAPIKey(t *testing.T) {
	_, err := NewBackend(Config{})
	assert.Error(t, err)

	b, err := NewBackend(Config{APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", b.Name())
	assert.Equal(t, DefaultModel, b.Model())
}

func TestBackend_Extract(t *testing.T) {
	var got messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"assets\":"},{"type":"text","text":"[]}"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	b, err := NewBackend(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := b.Extract(context.Background(), "extract this")
	require.NoError(t, err)
	assert.Equal(t, `{"assets":[]}`, out)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, systemPrompt, got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "extract this", got.Messages[0].Content)
}

func TestBackend_ExtractClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"overloaded", 529, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"invalid key", http.StatusUnauthorized, false},
		{"invalid request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"x","message":"` + tt.name + `"}}`))
			}))
			defer server.Close()

			b, err := NewBackend(Config{APIKey: "key", BaseURL: server.URL})
			require.NoError(t, err)
			_, err = b.Extract(context.Background(), "p")

			var be *domain.BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.transient, be.Transient())
			assert.Equal(t, tt.status, be.StatusCode)
		})
	}
}

func TestBackend_ExtractEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	b, err := NewBackend(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = b.Extract(context.Background(), "p")
	assert.True(t, domain.IsTransient(err))
}
