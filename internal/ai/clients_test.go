package ai_test

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

	"github.com/nyashahama/love-letters-backend/internal/ai"
	"github.com/nyashahama/love-letters-backend/internal/outbound"
)

func TestOpenAIClient_SendsPromptAndReturnsFirstChoice(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  My Darling Love,\nalways.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	w := ai.NewOpenAIClient("sk-test", "gpt-4o-mini", srv.URL+"/v1/", outbound.New("openai", time.Second))

	text, err := w.Write(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "My Darling Love,\nalways.", text)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Equal(t, 0.9, got["temperature"])
	assert.Equal(t, float64(600), got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAIClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	w := ai.NewOpenAIClient("bad", "gpt-4o-mini", srv.URL, outbound.New("openai", time.Second))

	_, err := w.Write(context.Background(), prompt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestOpenAIClient_EmptyContentIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer srv.Close()

	w := ai.NewOpenAIClient("k", "m", srv.URL, outbound.New("openai", time.Second))

	_, err := w.Write(context.Background(), prompt)
	assert.True(t, errors.Is(err, ai.ErrEmptyCompletion))
}

func TestOpenAIClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	w := ai.NewOpenAIClient("k", "m", srv.URL, outbound.New("openai", time.Second))

	_, err := w.Write(context.Background(), prompt)
	require.Error(t, err)
}

func TestAnthropicClient_ReturnsTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sys", body["system"])

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Dearest heart"}]}`))
	}))
	defer srv.Close()

	w := ai.NewAnthropicClient("key", "claude", srv.URL, outbound.New("anthropic", time.Second))

	text, err := w.Write(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Dearest heart", text)
}
