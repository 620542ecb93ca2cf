package llm

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

	"github.com/sells-group/risk-cli/internal/resilience"
)

func vllmConfig(baseURL string) Config {
	return Config{
		Backend:        BackendVLLM,
		BaseURL:        baseURL,
		Model:          "qwen",
		Timeout:        2 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 5 * time.Millisecond,
	}
}

func writeCompletion(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":      "cmpl-1",
		"choices": []map[string]any{{"index": 0, "text": text}},
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"vllm ok", Config{Backend: BackendVLLM, BaseURL: "http://localhost:8000/v1", Model: "m"}, false},
		{"vllm missing url", Config{Backend: BackendVLLM, Model: "m"}, true},
		{"vllm bad url", Config{Backend: BackendVLLM, BaseURL: "localhost", Model: "m"}, true},
		{"missing model", Config{Backend: BackendVLLM, BaseURL: "http://x"}, true},
		{"anthropic ok", Config{Backend: BackendAnthropic, APIKey: "k", Model: "claude-haiku-4-5-20251001"}, false},
		{"anthropic missing key", Config{Backend: BackendAnthropic, Model: "m"}, true},
		{"unknown backend", Config{Backend: "openai", BaseURL: "http://x", Model: "m"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_DefaultsToVLLM(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost:8000/v1", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, BackendVLLM, c.(*client).name)

	_, err = New(Config{Model: "m"})
	assert.Error(t, err)
}

func TestComplete_VLLMPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qwen", body["model"])
		assert.Equal(t, "rate Acme", body["prompt"])
		assert.InDelta(t, 0.2, body["temperature"], 0.0001)
		assert.InDelta(t, 0.9, body["top_p"], 0.0001)
		assert.InDelta(t, 2048, body["max_tokens"], 0.0001)
		writeCompletion(w, `{"recommended_rating":"Low"}`)
	}))
	defer srv.Close()

	c, err := New(vllmConfig(srv.URL + "/v1"))
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "rate Acme")
	require.NoError(t, err)
	assert.Equal(t, `{"recommended_rating":"Low"}`, text)
}

func TestComplete_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeCompletion(w, "ok")
	}))
	defer srv.Close()

	c, err := New(vllmConfig(srv.URL))
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_ExhaustionIsUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := vllmConfig(srv.URL)
	cfg.MaxRetries = 1
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLLMUnavailable))
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(2), calls.Load())

	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 2, ue.Attempts)
}

func TestComplete_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"prompt too long"}`))
	}))
	defer srv.Close()

	c, err := New(vllmConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_AttemptTimeoutRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		writeCompletion(w, "second try")
	}))
	defer srv.Close()

	cfg := vllmConfig(srv.URL)
	cfg.Timeout = 100 * time.Millisecond
	c, err := New(cfg)
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "second try", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_ParentCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeCompletion(w, "late")
	}))
	defer srv.Close()

	c, err := New(vllmConfig(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Complete(ctx, "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsUnavailable(err))
}

func TestComplete_ThroughProxy(t *testing.T) {
	var proxied atomic.Bool
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A forward proxy sees the absolute target URL.
		if r.URL.Host == "vllm.internal:8000" {
			proxied.Store(true)
		}
		writeCompletion(w, "via proxy")
	}))
	defer proxy.Close()

	cfg := vllmConfig("http://vllm.internal:8000/v1")
	cfg.ProxyURL = proxy.URL
	c, err := New(cfg)
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "via proxy", text)
	assert.True(t, proxied.Load())
}

func TestPing_VLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"qwen"}]}`))
	}))
	defer srv.Close()

	c, err := New(vllmConfig(srv.URL + "/v1"))
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))

	cfg := vllmConfig(srv.URL + "/v1")
	cfg.Model = "llama"
	c, err = New(cfg)
	require.NoError(t, err)
	err = c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "not served")
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(vllmConfig(url))
	require.NoError(t, err)
	assert.True(t, IsUnavailable(c.Ping(context.Background())))
}

func anthropicServer(t *testing.T, status int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Contains(t, r.URL.Path, "/messages")
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": `{"recommended_rating":"High"}`}},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 100, "output_tokens": 20},
		})
	}))
}

func anthropicConfig(baseURL string) Config {
	return Config{
		Backend:        BackendAnthropic,
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "claude-haiku-4-5-20251001",
		Timeout:        2 * time.Second,
		MaxRetries:     1,
		InitialBackoff: 5 * time.Millisecond,
	}
}

func TestComplete_Anthropic(t *testing.T) {
	var calls atomic.Int32
	srv := anthropicServer(t, http.StatusOK, &calls)
	defer srv.Close()

	c, err := New(anthropicConfig(srv.URL))
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "rate Acme")
	require.NoError(t, err)
	assert.Equal(t, `{"recommended_rating":"High"}`, text)
	assert.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_AnthropicOverloadedRetried(t *testing.T) {
	var calls atomic.Int32
	srv := anthropicServer(t, http.StatusServiceUnavailable, &calls)
	defer srv.Close()

	c, err := New(anthropicConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_AnthropicAuthNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := anthropicServer(t, http.StatusUnauthorized, &calls)
	defer srv.Close()

	c, err := New(anthropicConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, resilience.IsClientError(err))
	assert.Equal(t, int32(1), calls.Load())
}
