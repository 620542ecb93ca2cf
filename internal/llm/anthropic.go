package llm

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/resilience"
	"github.com/sells-group/risk-cli/pkg/anthropic"
)

const anthropicSystem = `You are an operational risk analyst. You assess companies on a Low / Medium / High scale using only the evidence you are given. Always answer with a single JSON object and nothing else.`

type anthropicBackend struct {
	client anthropic.Client
	cfg    Config
}

func newAnthropicBackend(cfg Config) *anthropicBackend {
	opts := []anthropic.Option{anthropic.WithHTTPClient(cfg.httpClient())}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicBackend{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		cfg:    cfg,
	}
}

func (b *anthropicBackend) complete(ctx context.Context, prompt string) (string, error) {
	temp := b.cfg.Temperature
	resp, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       b.cfg.Model,
		MaxTokens:   int64(b.cfg.MaxTokens),
		System:      anthropic.BuildCachedSystemBlocks(anthropicSystem),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", classifyAnthropic(err)
	}
	resp.Usage.LogCost(b.cfg.Model, "assess")
	return resp.Text(), nil
}

// ping sends a one-token request; the Messages API has no cheaper probe that
// also validates the model name.
func (b *anthropicBackend) ping(ctx context.Context) error {
	_, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     b.cfg.Model,
		MaxTokens: 1,
		Messages:  []anthropic.Message{{Role: "user", Content: "ping"}},
	})
	if err != nil {
		return classifyAnthropic(err)
	}
	return nil
}

// classifyAnthropic maps SDK errors onto the resilience taxonomy so that the
// retry loop treats both backends alike.
func classifyAnthropic(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if code := anthropic.StatusCode(err); code != 0 {
		return resilience.CheckStatus("anthropic", code, []byte(err.Error()))
	}
	return eris.Wrap(err, "llm: anthropic request")
}
