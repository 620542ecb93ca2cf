package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/assess"
	"github.com/sells-group/risk-cli/internal/llm"
	"github.com/sells-group/risk-cli/internal/prompt"
	"github.com/sells-group/risk-cli/internal/scrape"
	"github.com/sells-group/risk-cli/internal/search"
	"github.com/sells-group/risk-cli/internal/store"
	"github.com/sells-group/risk-cli/pkg/jina"
)

// assessEnv holds the engine and the resources it was built from.
type assessEnv struct {
	Engine *assess.Engine
	LLM    llm.Client
	Store  store.Store // may be nil
}

// Close releases resources held by the environment.
func (e *assessEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the run store at cfg.Store.Path.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Path == "" {
		return nil, eris.New("store path is required (RISK_STORE_PATH)")
	}
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initAssess validates cfg for mode and builds the engine. The store is
// optional: when it cannot be opened the run continues without page caching
// or run history.
func initAssess(ctx context.Context, mode string, pingLLM bool) (*assessEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	client, err := llm.New(cfg.LLMClientConfig())
	if err != nil {
		return nil, eris.Wrap(err, "init llm client")
	}

	env := &assessEnv{LLM: client}
	if cfg.Store.Path != "" {
		st, err := initStore(ctx)
		if err != nil {
			zap.L().Warn("store unavailable, continuing without cache or history", zap.Error(err))
		} else {
			env.Store = st
			if n, err := st.DeleteExpiredPages(ctx); err == nil && n > 0 {
				zap.L().Debug("pruned expired cached pages", zap.Int("count", n))
			}
		}
	}

	registry := search.NewRegistry(cfg.SearchOptions())
	engineCfg := assess.Config{
		LLM:         client,
		Search:      registry,
		Aliases:     cfg.Columns.Aliases,
		Prompt:      prompt.Options{MaxChars: cfg.Prompt.MaxChars},
		TopicHint:   cfg.Search.TopicHint,
		Parallelism: cfg.Assess.Parallelism,
		RunTimeout:  time.Duration(cfg.Assess.RunTimeoutSecs) * time.Second,
		PingLLM:     pingLLM,
	}
	if cfg.Scrape.Enabled {
		engineCfg.Enricher = scrape.NewEnricher(buildScrapeChain(env.Store), scrape.EnrichOptions{
			MaxSources:   cfg.Scrape.MaxSources,
			MaxRiskPages: cfg.Scrape.MaxRiskPages,
			MaxExcerpt:   cfg.Scrape.MaxExcerpt,
			Cap:          registry.Cap(),
			Concurrency:  cfg.Scrape.Concurrency,
		})
	}

	engine, err := assess.New(engineCfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Engine = engine
	return env, nil
}

// buildScrapeChain returns local HTTP first with Jina as the fallback for
// blocked or script-rendered pages. Both go through the page cache when a
// store is available.
func buildScrapeChain(st store.Store) *scrape.Chain {
	scrapers := []scrape.Scraper{scrape.NewLocalScraper(nil)}
	if cfg.Jina.Key != "" {
		jinaOpts := []jina.Option{}
		if cfg.Jina.BaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithBaseURL(cfg.Jina.BaseURL))
		}
		scrapers = append(scrapers, scrape.NewJinaAdapter(jina.NewClient(cfg.Jina.Key, jinaOpts...)))
	}
	if st != nil {
		ttl := time.Duration(cfg.Scrape.CacheTTLHours) * time.Hour
		for i, s := range scrapers {
			scrapers[i] = scrape.NewCachedScraper(s, st, ttl)
		}
	}
	return scrape.NewChain(scrapers...)
}

// resolveProviders prefers the flag selection and falls back to config.
func resolveProviders(flagVals []string) ([]search.ProviderID, error) {
	if len(flagVals) == 0 {
		flagVals = cfg.Search.Providers
	}
	return search.ParseProviders(flagVals)
}
