package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req AIRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "qwen2.5", req.Model)
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		if assert.NotNil(t, req.Options) {
			assert.Equal(t, float32(0), req.Options.Temperature)
			assert.Equal(t, 500, req.Options.NumPredict)
		}

		_ = json.NewEncoder(w).Encode(AIResponse{Model: req.Model, Response: `{"merchant":"Shoprite"}`, Done: true})
	}))
	defer srv.Close()

	o := NewOllamaAdapter(srv.URL, "qwen2.5", zerolog.Nop())
	assert.Equal(t, "qwen2.5", o.Model())

	out, err := o.Complete(context.Background(), ports.CompletionRequest{Prompt: "p", MaxTokens: 500, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, `{"merchant":"Shoprite"}`, out)
}

func TestCompleteErrors(t *testing.T) {
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer missing.Close()

	_, err := NewOllamaAdapter(missing.URL, "", zerolog.Nop()).Complete(context.Background(), ports.CompletionRequest{Prompt: "p"})
	assert.ErrorContains(t, err, "ollama API error: 404")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AIResponse{Done: true})
	}))
	defer empty.Close()

	_, err = NewOllamaAdapter(empty.URL, "", zerolog.Nop()).Complete(context.Background(), ports.CompletionRequest{Prompt: "p"})
	assert.ErrorContains(t, err, "empty response")
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	o := NewOllamaAdapter(srv.URL, "", zerolog.Nop())
	_, err := o.Complete(context.Background(), ports.CompletionRequest{Prompt: "p", Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewOllamaAdapterHost(t *testing.T) {
	o := NewOllamaAdapter("10.0.0.5", "", zerolog.Nop())
	assert.Equal(t, "http://10.0.0.5:11434", o.baseURL)
	assert.Equal(t, DefaultModel, o.Model())
}
