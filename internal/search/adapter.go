package search

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/resilience"
)

// Options configures the provider adapters. Zero values select defaults.
type Options struct {
	MaxResults int
	Cap        int
	Timeout    time.Duration
	RatePerSec float64
	Retries    int
	UserAgent  string

	GoogleAPIKey string
	GoogleCX     string
	SearXNGURL   string

	BrowserExecPath string
	BrowserWait     time.Duration

	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = 1
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.BrowserWait <= 0 {
		o.BrowserWait = 2 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

// NewProvider builds the adapter for id.
func NewProvider(id ProviderID, opts Options) (Provider, error) {
	opts = opts.withDefaults()
	switch id {
	case ProviderDuckDuckGo:
		return newDuckDuckGo(opts), nil
	case ProviderGoogle:
		return newGoogle(opts), nil
	case ProviderSearXNG:
		if opts.SearXNGURL == "" {
			return nil, eris.New("search: searxng requires search.searxng_url")
		}
		return newSearXNG(opts), nil
	case ProviderBrowser:
		return newBrowser(opts), nil
	default:
		return nil, eris.Errorf("search: unknown provider %q", id)
	}
}

// Registry builds aggregators for a provider selection from shared options.
// Each adapter is built once, so its throttle and 429 back-off are shared by
// every run that selects it.
type Registry struct {
	opts Options

	mu        sync.Mutex
	providers map[ProviderID]Provider
}

// NewRegistry returns a registry that builds adapters from opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts.withDefaults(), providers: make(map[ProviderID]Provider)}
}

// Aggregator returns an aggregator over the selected providers. An empty
// selection means every provider.
func (r *Registry) Aggregator(ids []ProviderID) *Aggregator {
	if len(ids) == 0 {
		ids = AllProviders
	}
	return NewAggregator(r.resolve(ids), r.opts.MaxResults, r.opts.Cap)
}

// Cap is the merged-result bound of the aggregators this registry builds.
func (r *Registry) Cap() int {
	if r.opts.Cap > 0 {
		return r.opts.Cap
	}
	return r.opts.MaxResults * 2
}

// resolve returns the cached adapters for ids, building missing ones.
// Providers that cannot be configured are skipped with a warning so
// "combined" selection still works on partially configured installs.
func (r *Registry) resolve(ids []ProviderID) []Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Provider
	for _, id := range ids {
		p, ok := r.providers[id]
		if !ok {
			var err error
			p, err = NewProvider(id, r.opts)
			if err != nil {
				zap.L().Warn("search: provider unavailable", zap.String("provider", string(id)), zap.Error(err))
				continue
			}
			r.providers[id] = p
		}
		out = append(out, p)
	}
	return out
}

// throttle paces one adapter's outbound calls and retries transient
// failures. The rate halves on 429 and recovers by 20% per success, bounded
// to [initial/4, initial*2].
type throttle struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	initial rate.Limit
	current rate.Limit
	timeout time.Duration
	retry   resilience.RetryConfig
	name    ProviderID
}

func newThrottle(name ProviderID, opts Options) *throttle {
	r := rate.Limit(opts.RatePerSec)
	cfg := resilience.WithRetries(opts.Retries, 500*time.Millisecond)
	cfg.MaxBackoff = 5 * time.Second
	return &throttle{
		limiter: rate.NewLimiter(r, 1),
		initial: r,
		current: r,
		timeout: opts.Timeout,
		retry:   cfg,
		name:    name,
	}
}

func (t *throttle) do(ctx context.Context, fn func(ctx context.Context) ([]model.SearchResult, error)) ([]model.SearchResult, error) {
	cfg := t.retry
	cfg.ShouldRetry = func(err error) bool {
		return resilience.IsTransient(err) || resilience.IsAttemptTimeout(ctx, err)
	}
	cfg.OnRetry = resilience.RetryLogger("search", string(t.name))

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.SearchResult, error) {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "search: rate limit wait")
		}
		attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		res, err := fn(attemptCtx)
		t.observe(err)
		return res, err
	})
}

func (t *throttle) observe(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.current
	var te *resilience.TransientError
	switch {
	case err == nil:
		next = t.current * 1.2
		if next > t.initial*2 {
			next = t.initial * 2
		}
	case errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests:
		next = t.current * 0.5
		if next < t.initial/4 {
			next = t.initial / 4
		}
		zap.L().Warn("search: provider rate limited, slowing down",
			zap.String("provider", string(t.name)),
			zap.Float64("new_rate", float64(next)),
		)
	default:
		return
	}
	t.current = next
	t.limiter.SetLimit(next)
}

func (t *throttle) limit() rate.Limit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

var snippetPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from provider text and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(snippetPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}
