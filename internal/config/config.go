// Package config loads risk-cli settings from config.yaml and RISK_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/risk-cli/internal/columns"
	"github.com/sells-group/risk-cli/internal/llm"
	"github.com/sells-group/risk-cli/internal/search"
)

// Config is the top-level configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Jina    JinaConfig    `yaml:"jina" mapstructure:"jina"`
	Prompt  PromptConfig  `yaml:"prompt" mapstructure:"prompt"`
	Assess  AssessConfig  `yaml:"assess" mapstructure:"assess"`
	Columns ColumnsConfig `yaml:"columns" mapstructure:"columns"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// LLMConfig describes the completion endpoint.
type LLMConfig struct {
	Backend     string  `yaml:"backend" mapstructure:"backend"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	ProxyURL    string  `yaml:"proxy_url" mapstructure:"proxy_url"`
}

// SearchConfig configures the provider adapters.
type SearchConfig struct {
	Providers    []string      `yaml:"providers" mapstructure:"providers"`
	MaxResults   int           `yaml:"max_results" mapstructure:"max_results"`
	Cap          int           `yaml:"cap" mapstructure:"cap"`
	TopicHint    string        `yaml:"topic_hint" mapstructure:"topic_hint"`
	TimeoutSecs  int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries      int           `yaml:"retries" mapstructure:"retries"`
	RatePerSec   float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	GoogleAPIKey string        `yaml:"google_api_key" mapstructure:"google_api_key"`
	GoogleCX     string        `yaml:"google_cx" mapstructure:"google_cx"`
	SearXNGURL   string        `yaml:"searxng_url" mapstructure:"searxng_url"`
	Browser      BrowserConfig `yaml:"browser" mapstructure:"browser"`
}

// BrowserConfig configures the headless-browser provider.
type BrowserConfig struct {
	ExecPath string `yaml:"exec_path" mapstructure:"exec_path"`
	WaitMS   int    `yaml:"wait_ms" mapstructure:"wait_ms"`
}

// ScrapeConfig bounds page enrichment for internet mode.
type ScrapeConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	MaxSources    int  `yaml:"max_sources" mapstructure:"max_sources"`
	MaxRiskPages  int  `yaml:"max_risk_pages" mapstructure:"max_risk_pages"`
	MaxExcerpt    int  `yaml:"max_excerpt" mapstructure:"max_excerpt"`
	Concurrency   int  `yaml:"concurrency" mapstructure:"concurrency"`
	CacheTTLHours int  `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// JinaConfig configures the Jina Reader fallback scraper.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PromptConfig bounds prompt size.
type PromptConfig struct {
	MaxChars int `yaml:"max_chars" mapstructure:"max_chars"`
}

// AssessConfig controls the orchestrator.
type AssessConfig struct {
	Parallelism    int  `yaml:"parallelism" mapstructure:"parallelism"`
	RunTimeoutSecs int  `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
	PingLLM        bool `yaml:"ping_llm" mapstructure:"ping_llm"`
}

// ColumnsConfig overrides the column alias lists.
type ColumnsConfig struct {
	Aliases columns.Aliases `yaml:"aliases" mapstructure:"aliases"`
}

// StoreConfig locates the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory (optional) and overlays
// RISK_* environment variables, e.g. RISK_LLM_BASE_URL.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("llm.backend", llm.BackendVLLM)
	v.SetDefault("llm.base_url", "http://localhost:8000/v1")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout_secs", 180)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("llm.temperature", llm.DefaultTemperature)
	v.SetDefault("llm.proxy_url", "")
	v.SetDefault("search.providers", []string{"ddg"})
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.cap", 10)
	v.SetDefault("search.topic_hint", "operational risk")
	v.SetDefault("search.timeout_secs", 20)
	v.SetDefault("search.retries", 2)
	v.SetDefault("search.rate_per_sec", 1.0)
	v.SetDefault("search.user_agent", "")
	v.SetDefault("search.google_api_key", "")
	v.SetDefault("search.google_cx", "")
	v.SetDefault("search.searxng_url", "")
	v.SetDefault("search.browser.exec_path", "")
	v.SetDefault("search.browser.wait_ms", 2000)
	v.SetDefault("scrape.enabled", true)
	v.SetDefault("scrape.max_sources", 5)
	v.SetDefault("scrape.max_risk_pages", 3)
	v.SetDefault("scrape.max_excerpt", 1500)
	v.SetDefault("scrape.concurrency", 4)
	v.SetDefault("scrape.cache_ttl_hours", 24)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("prompt.max_chars", 12000)
	v.SetDefault("assess.parallelism", 4)
	v.SetDefault("assess.run_timeout_secs", 0)
	v.SetDefault("assess.ping_llm", true)
	v.SetDefault("store.path", "risk.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields the given command needs. Modes: "assess",
// "check", "serve", "detect", "runs".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "assess", "serve":
		errs = append(errs, c.validateLLM()...)
		errs = append(errs, c.validateSearch()...)
		if c.Assess.Parallelism < 1 || c.Assess.Parallelism > 64 {
			errs = append(errs, "assess.parallelism must be between 1 and 64")
		}
		if c.Assess.RunTimeoutSecs < 0 {
			errs = append(errs, "assess.run_timeout_secs must be >= 0")
		}
		if c.Prompt.MaxChars < 1000 {
			errs = append(errs, "prompt.max_chars must be >= 1000")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "check":
		errs = append(errs, c.validateLLM()...)
	case "detect":
	case "runs":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateLLM() []string {
	var errs []string
	if c.LLM.Model == "" {
		errs = append(errs, "llm.model is required")
	}
	if err := c.LLMClientConfig().Validate(); err != nil && c.LLM.Model != "" {
		errs = append(errs, strings.TrimPrefix(err.Error(), "llm: "))
	}
	if c.LLM.TimeoutSecs <= 0 {
		errs = append(errs, "llm.timeout_secs must be > 0")
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxRetries > 10 {
		errs = append(errs, "llm.max_retries must be between 0 and 10")
	}
	return errs
}

func (c *Config) validateSearch() []string {
	var errs []string
	ids, err := search.ParseProviders(c.Search.Providers)
	if err != nil {
		errs = append(errs, strings.TrimPrefix(err.Error(), "search: "))
	}
	for _, id := range ids {
		if id == search.ProviderSearXNG && c.Search.SearXNGURL == "" {
			errs = append(errs, "search.searxng_url is required for the searxng provider")
		}
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 50 {
		errs = append(errs, "search.max_results must be between 1 and 50")
	}
	if c.Search.Cap < 0 {
		errs = append(errs, "search.cap must be >= 0")
	}
	return errs
}

// LLMClientConfig maps the llm section onto the client configuration.
func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		Backend:     c.LLM.Backend,
		BaseURL:     c.LLM.BaseURL,
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey,
		Timeout:     time.Duration(c.LLM.TimeoutSecs) * time.Second,
		MaxRetries:  c.LLM.MaxRetries,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
		ProxyURL:    c.LLM.ProxyURL,
	}
}

// SearchOptions maps the search section onto adapter options.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		MaxResults:      c.Search.MaxResults,
		Cap:             c.Search.Cap,
		Timeout:         time.Duration(c.Search.TimeoutSecs) * time.Second,
		RatePerSec:      c.Search.RatePerSec,
		Retries:         c.Search.Retries,
		UserAgent:       c.Search.UserAgent,
		GoogleAPIKey:    c.Search.GoogleAPIKey,
		GoogleCX:        c.Search.GoogleCX,
		SearXNGURL:      c.Search.SearXNGURL,
		BrowserExecPath: c.Search.Browser.ExecPath,
		BrowserWait:     time.Duration(c.Search.Browser.WaitMS) * time.Millisecond,
	}
}

// String renders a redacted summary for logs.
func (c *Config) String() string {
	return fmt.Sprintf("llm=%s/%s@%s providers=%v parallelism=%d store=%s",
		c.LLM.Backend, c.LLM.Model, c.LLM.BaseURL, c.Search.Providers, c.Assess.Parallelism, c.Store.Path)
}

// InitLogger initializes the global zap logger based on config.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
