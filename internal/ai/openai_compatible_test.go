package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChatModel_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Model    string        `json:"model"`
			Messages []ChatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "be brief", body.Messages[0].Content)
		assert.Equal(t, "user", body.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Paris.  "}}]}`))
	}))
	defer srv.Close()

	model := NewOpenAIChatModel(NewOpenAICompatibleClient(time.Second), ChatConfig{
		BaseURL: srv.URL + "/v1/",
		APIKey:  "secret",
		Model:   "gpt-test",
	})
	answer, err := model.Generate(context.Background(), "be brief", "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "  Paris.  ", answer)
	assert.Equal(t, "gpt-test", model.Name())
}

func TestOpenAICompatibleClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient(time.Second)
	_, err := client.Complete(context.Background(), ChatConfig{BaseURL: srv.URL, Model: "m"}, nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.True(t, IsRetryable(err))
}

func TestOpenAICompatibleClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompatibleClient(time.Second).Complete(context.Background(), ChatConfig{BaseURL: srv.URL}, nil)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0,1]},
			{"index":0,"embedding":[1,0]}
		]}`))
	}))
	defer srv.Close()

	vecs, err := NewOpenAICompatibleClient(time.Second).EmbedBatch(context.Background(),
		EmbeddingConfig{BaseURL: srv.URL, Model: "emb"}, []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestEmbedBatch_RejectsBlankInput(t *testing.T) {
	client := NewOpenAICompatibleClient(time.Second)
	_, err := client.EmbedBatch(context.Background(), EmbeddingConfig{BaseURL: "http://127.0.0.1:0"}, []string{"ok", "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input 1 is empty")
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompatibleClient(time.Second).EmbedBatch(context.Background(),
		EmbeddingConfig{BaseURL: srv.URL}, []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestEmbedder_SplitsIntoBatches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.LessOrEqual(t, len(body.Input), 2)

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		for i, text := range body.Input {
			resp.Data = append(resp.Data, item{Index: i, Embedding: []float32{float32(len(text))}})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	emb := NewEmbedder(NewOpenAICompatibleClient(time.Second), EmbeddingConfig{BaseURL: srv.URL, Model: "emb-small"}, 2)
	vecs, err := emb.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, vecs)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, "emb-small", emb.Model())
}

func TestEmbedder_SingleTextUsesScalarInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "where is it", body["input"])
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5,0.5]}]}`))
	}))
	defer srv.Close()

	emb := NewEmbedder(NewOpenAICompatibleClient(time.Second), EmbeddingConfig{BaseURL: srv.URL}, 0)
	vecs, err := emb.Embed(context.Background(), []string{"where is it"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.5}}, vecs)
}

func TestOpenAICompatibleClient_APIErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompatibleClient(time.Second).Complete(context.Background(), ChatConfig{BaseURL: srv.URL, APIKey: "sk-secret", Model: "m"}, nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "upstream overloaded", statusErr.Body)
	assert.True(t, IsRetryable(err))
	assert.NotContains(t, err.Error(), "sk-secret")
}

func TestOpenAICompatibleClient_UnauthorizedIsFinal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompatibleClient(time.Second).Complete(context.Background(), ChatConfig{BaseURL: srv.URL, Model: "m"}, nil)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}
