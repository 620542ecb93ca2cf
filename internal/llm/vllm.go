package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/pkg/vllm"
)

type vllmBackend struct {
	client vllm.Client
	cfg    Config
}

func newVLLMBackend(cfg Config) *vllmBackend {
	opts := []vllm.Option{vllm.WithHTTPClient(cfg.httpClient())}
	if cfg.APIKey != "" {
		opts = append(opts, vllm.WithAPIKey(cfg.APIKey))
	}
	return &vllmBackend{
		client: vllm.NewClient(cfg.BaseURL, opts...),
		cfg:    cfg,
	}
}

func (b *vllmBackend) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Complete(ctx, vllm.CompletionRequest{
		Model:       b.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   b.cfg.MaxTokens,
		Temperature: b.cfg.Temperature,
		TopP:        b.cfg.TopP,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (b *vllmBackend) ping(ctx context.Context) error {
	models, err := b.client.Models(ctx)
	if err != nil {
		return err
	}
	if !models.Has(b.cfg.Model) {
		return eris.Errorf("llm: model %q is not served by %s", b.cfg.Model, b.cfg.BaseURL)
	}
	return nil
}
