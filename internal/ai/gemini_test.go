package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k3y", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)

		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.SystemInstruction)
		assert.Equal(t, "only context", body.SystemInstruction.Parts[0].Text)
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "user", body.Contents[0].Role)
		assert.Equal(t, "question?", body.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Par"},{"text":"is"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient(GeminiConfig{BaseURL: srv.URL, APIKey: "k3y", Model: "gemini-test"}, time.Second)
	answer, err := client.Generate(context.Background(), "only context", "question?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", answer)
	assert.Equal(t, "gemini-test", client.Name())
}

func TestGeminiClient_BlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	_, err := NewGeminiClient(GeminiConfig{BaseURL: srv.URL, Model: "m"}, time.Second).Generate(context.Background(), "", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
	assert.False(t, IsRetryable(err))
}

func TestGeminiClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewGeminiClient(GeminiConfig{BaseURL: srv.URL, Model: "m"}, time.Second).Generate(context.Background(), "", "q")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, IsRetryable(err))
}

func TestGeminiClient_TransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewGeminiClient(GeminiConfig{BaseURL: baseURL, APIKey: "SECRET-KEY-123", Model: "gemini"}, time.Second)
	_, err := client.Generate(context.Background(), "", "q")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.True(t, IsRetryable(err))
}
