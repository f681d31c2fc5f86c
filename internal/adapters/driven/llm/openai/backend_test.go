package openai

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

	b, err := NewBackend(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())
	assert.Equal(t, DefaultModel, b.Model())
}

func TestBackend_Extract(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"assets\":[]}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	b, err := NewBackend(Config{Name: "secondary", APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := b.Extract(context.Background(), "extract this")
	require.NoError(t, err)
	assert.Equal(t, `{"assets":[]}`, out)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "extract this", got.Messages[0].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestBackend_ExtractClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad key", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "5")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"` + tt.name + `"}}`))
			}))
			defer server.Close()

			b, err := NewBackend(Config{APIKey: "sk-test", BaseURL: server.URL})
			require.NoError(t, err)
			_, err = b.Extract(context.Background(), "p")

			var be *domain.BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.transient, be.Transient())
			assert.Equal(t, 5, be.RetryAfter)
			assert.Contains(t, be.Error(), tt.name)
		})
	}
}

func TestBackend_ExtractNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	b, err := NewBackend(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = b.Extract(context.Background(), "p")
	assert.True(t, domain.IsTransient(err))
}

func TestBackend_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	good, err := NewBackend(Config{APIKey: "sk-good", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, good.Ping(context.Background()))

	bad, err := NewBackend(Config{APIKey: "sk-bad", BaseURL: server.URL})
	require.NoError(t, err)
	err = bad.Ping(context.Background())
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
}
