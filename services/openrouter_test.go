package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterComplete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "http://localhost:3000", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, openRouterTitle, r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  ¡Hola! 😊 "}}]}`))
	}))
	defer srv.Close()

	client := NewOpenRouter("key-1", srv.URL+"/", "mistralai/mistral-7b-instruct", "http://localhost:3000")
	reply, err := client.Complete(context.Background(), ChatRequest{System: "sys", Prompt: "hola", MaxTokens: 150, Temperature: 0.6})

	require.NoError(t, err)
	assert.Equal(t, "¡Hola! 😊", reply)
	assert.Equal(t, "mistralai/mistral-7b-instruct", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "hola"}, got.Messages[1])
	assert.Equal(t, 150, got.MaxTokens)
	assert.False(t, got.Stream)
}

func TestOpenRouterStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Insufficient credits"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenRouter("key", srv.URL, "m", "").Complete(context.Background(), ChatRequest{Prompt: "hola"})

	require.Error(t, err)
	assert.Equal(t, http.StatusPaymentRequired, StatusCode(err))
	assert.Contains(t, err.Error(), "Insufficient credits")
	assert.Equal(t, BillingMessage, ChatErrorMessage(err))
}

func TestOpenRouterNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	reply, err := NewOpenRouter("key", srv.URL, "m", "").Complete(context.Background(), ChatRequest{Prompt: "hola"})
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestOpenRouterWithoutKey(t *testing.T) {
	_, err := NewOpenRouter("", "http://unused", "m", "").Complete(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrAINotConfigured)
}

func TestErrorMessageFallsBackToBody(t *testing.T) {
	assert.Equal(t, "bad gateway", errorMessage([]byte(" bad gateway \n")))
}
