// Package llm sends assessment prompts to a completion endpoint and returns
// the raw model text. Retries and per-attempt timeouts live here so that the
// backends stay thin.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/resilience"
)

// ErrLLMUnavailable is matched (via errors.Is) by every failure that leaves a
// prompt without a completion.
var ErrLLMUnavailable = eris.New("llm: endpoint unavailable")

// Backend names accepted by Config.Backend.
const (
	BackendVLLM      = "vllm"
	BackendAnthropic = "anthropic"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultTimeout     = 180 * time.Second
	DefaultMaxRetries  = 2
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.2
	DefaultTopP        = 0.9
)

// Client completes prompts.
type Client interface {
	// Complete returns the model's text for prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// Ping checks that the endpoint is reachable and correctly configured.
	Ping(ctx context.Context) error
}

// Config describes one completion endpoint.
type Config struct {
	Backend     string
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
	TopP        float64
	ProxyURL    string

	// InitialBackoff is the delay before the first retry; it doubles after
	// each attempt.
	InitialBackoff time.Duration

	// HTTPClient replaces the client built from Timeout and ProxyURL.
	HTTPClient *http.Client
}

// Validate reports configuration that can never produce a completion.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendVLLM:
		if c.BaseURL == "" {
			return eris.New("llm: vllm backend requires base_url")
		}
	case BackendAnthropic:
		if c.APIKey == "" {
			return eris.New("llm: anthropic backend requires api_key")
		}
	default:
		return eris.Errorf("llm: unknown backend %q", c.Backend)
	}
	if c.Model == "" {
		return eris.New("llm: model is required")
	}
	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return eris.Errorf("llm: invalid base_url %q", c.BaseURL)
		}
	}
	if c.ProxyURL != "" {
		if _, err := url.Parse(c.ProxyURL); err != nil {
			return eris.Wrapf(err, "llm: invalid proxy_url %q", c.ProxyURL)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendVLLM
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.TopP <= 0 {
		c.TopP = DefaultTopP
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	return c
}

// httpClient builds the transport shared by the backends. The per-attempt
// deadline comes from the context, so the client itself has no timeout.
func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.ProxyURL != "" {
		if u, err := url.Parse(c.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Transport: transport}
}

// backend performs a single attempt against one API flavour.
type backend interface {
	complete(ctx context.Context, prompt string) (string, error)
	ping(ctx context.Context) error
}

type client struct {
	name    string
	b       backend
	timeout time.Duration
	retry   resilience.RetryConfig
}

// New validates cfg and returns a client for its backend.
func New(cfg Config) (Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var b backend
	switch cfg.Backend {
	case BackendAnthropic:
		b = newAnthropicBackend(cfg)
	default:
		b = newVLLMBackend(cfg)
	}

	return &client{
		name:    cfg.Backend,
		b:       b,
		timeout: cfg.Timeout,
		retry:   resilience.WithRetries(cfg.MaxRetries, cfg.InitialBackoff),
	}, nil
}

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := c.retry
	cfg.ShouldRetry = func(err error) bool {
		return resilience.IsTransient(err) || resilience.IsAttemptTimeout(ctx, err)
	}
	cfg.OnRetry = resilience.RetryLogger("llm", c.name)

	attempts := 0
	text, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.b.complete(attemptCtx, prompt)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "llm: complete")
		}
		return "", &UnavailableError{Backend: c.name, Attempts: attempts, Err: err}
	}
	return text, nil
}

func (c *client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.b.ping(pingCtx); err != nil {
		return &UnavailableError{Backend: c.name, Attempts: 1, Err: err}
	}
	return nil
}

// UnavailableError carries the last backend error after retries ran out.
type UnavailableError struct {
	Backend  string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("llm: %s unavailable after %d attempt(s): %v", e.Backend, e.Attempts, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *UnavailableError) Unwrap() []error {
	return []error{ErrLLMUnavailable, e.Err}
}

// IsUnavailable reports whether err is an exhausted or misconfigured LLM call.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrLLMUnavailable)
}
