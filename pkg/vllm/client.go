// Package vllm is a client for the OpenAI-compatible completions API served
// by vLLM.
package vllm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/resilience"
)

// Client performs completion and model-listing calls.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Models(ctx context.Context) (*ModelsResponse, error)
}

// CompletionRequest is the body of POST /completions.
type CompletionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
}

// CompletionResponse is the subset of the completions payload we read.
type CompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Text returns the first choice's text, or "" when there is none.
func (r *CompletionResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Text
}

// Choice is one generated completion.
type Choice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ModelsResponse is the body of GET /models.
type ModelsResponse struct {
	Data []Model `json:"data"`
}

// Model is a model served by the endpoint.
type Model struct {
	ID string `json:"id"`
}

// Has reports whether id is among the served models.
func (r *ModelsResponse) Has(id string) bool {
	for _, m := range r.Data {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Option configures the client.
type Option func(*httpClient)

// WithAPIKey sets a bearer token for endpoints started with --api-key.
func WithAPIKey(key string) Option {
	return func(c *httpClient) {
		c.apiKey = key
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8000/v1".
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "vllm: marshal request")
	}

	respBody, err := c.do(ctx, http.MethodPost, "/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result CompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "vllm: unmarshal response")
	}
	if len(result.Choices) == 0 {
		return nil, eris.New("vllm: response has no choices")
	}
	return &result, nil
}

func (c *httpClient) Models(ctx context.Context) (*ModelsResponse, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}

	var result ModelsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "vllm: unmarshal models")
	}
	return &result, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "vllm: create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "vllm: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "vllm: read response")
	}
	if err := resilience.CheckStatus("vllm", resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}
