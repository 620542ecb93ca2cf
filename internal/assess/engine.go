// Package assess runs the per-company, per-mode assessment pipeline and
// collects one result for every requested pair.
package assess

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/risk-cli/internal/columns"
	"github.com/sells-group/risk-cli/internal/evidence"
	"github.com/sells-group/risk-cli/internal/llm"
	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/parse"
	"github.com/sells-group/risk-cli/internal/prompt"
	"github.com/sells-group/risk-cli/internal/search"
)

// ErrInvalidEndpoint aborts a run whose LLM endpoint is missing or fails its
// health check.
var ErrInvalidEndpoint = eris.New("assess: invalid or unreachable LLM endpoint")

// ErrNoDataset is returned when Run is called without rows to assess.
var ErrNoDataset = eris.New("assess: dataset is required")

// CancelledMessage is the error text of pairs cut off by cancellation or the
// run timeout.
const CancelledMessage = "cancelled"

const defaultParallelism = 4

// Config is the engine's immutable configuration.
type Config struct {
	LLM llm.Client

	// Search builds an aggregator for each request's provider selection.
	// Searcher, when set, is used instead and the selection is ignored.
	Search   *search.Registry
	Searcher evidence.Searcher
	Enricher evidence.Enricher

	Aliases     columns.Aliases
	Prompt      prompt.Options
	TopicHint   string
	Parallelism int
	RunTimeout  time.Duration

	// PingLLM runs the endpoint health check before any pair starts.
	PingLLM bool
}

// Request selects what to assess. Empty Companies means every company in the
// dataset; empty Modes means every mode.
type Request struct {
	Dataset   *model.Dataset
	Companies []string
	Modes     []model.Mode
	Providers []search.ProviderID
	TopicHint string
}

// Engine runs assessments. It holds no per-run state and may be shared.
type Engine struct {
	cfg      Config
	detector *columns.Detector
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.LLM == nil {
		return nil, eris.Wrap(ErrInvalidEndpoint, "assess: no LLM client configured")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	return &Engine{cfg: cfg, detector: columns.NewDetector(cfg.Aliases)}, nil
}

// Columns detects the column roles of ds.
func (e *Engine) Columns(ds *model.Dataset) (model.ColumnRoleMap, error) {
	if ds == nil {
		return model.ColumnRoleMap{}, ErrNoDataset
	}
	return e.detector.Detect(ds.Columns, ds.Sample())
}

// pair is one unit of work. Missing companies still produce a result.
type pair struct {
	name    string
	company model.Company
	found   bool
	mode    model.Mode
}

// Run assesses every (company, mode) pair of req. It returns an error only
// for run-level failures; pair failures are reported in the result's Status.
// Results are ordered company-major, mode-minor, in request order.
func (e *Engine) Run(ctx context.Context, req Request) ([]model.AssessmentResult, error) {
	roles, err := e.Columns(req.Dataset)
	if err != nil {
		return nil, err
	}

	if e.cfg.PingLLM {
		if err := e.cfg.LLM.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
		}
	}

	modes := req.Modes
	if len(modes) == 0 {
		modes = model.Modes
	}
	pairs := e.pairs(req.Dataset, roles, req.Companies, modes)

	topic := req.TopicHint
	if topic == "" {
		topic = e.cfg.TopicHint
	}
	gatherer := evidence.NewGatherer(e.searcher(req.Providers, modes), e.cfg.Enricher, topic)

	runCtx := ctx
	if e.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]model.AssessmentResult, len(pairs))

	var g errgroup.Group
	g.SetLimit(e.cfg.Parallelism)
	for i, p := range pairs {
		if runCtx.Err() != nil {
			results[i] = cancelled(newResult(p, roles), time.Now())
			continue
		}
		g.Go(func() error {
			results[i] = e.assess(runCtx, gatherer, roles, p)
			return nil
		})
	}
	_ = g.Wait()

	logSummary(results, time.Since(start))
	return results, nil
}

func (e *Engine) pairs(ds *model.Dataset, roles model.ColumnRoleMap, names []string, modes []model.Mode) []pair {
	var companies []pair
	if len(names) == 0 {
		for _, c := range ds.Companies(roles) {
			companies = append(companies, pair{name: c.Name, company: c, found: true})
		}
	} else {
		for _, n := range names {
			c, ok := ds.Lookup(roles, n)
			companies = append(companies, pair{name: n, company: c, found: ok})
		}
	}

	out := make([]pair, 0, len(companies)*len(modes))
	for _, c := range companies {
		for _, m := range modes {
			c.mode = m
			out = append(out, c)
		}
	}
	return out
}

// searcher picks the search backend for a run. Without internet mode no
// aggregator is built.
func (e *Engine) searcher(ids []search.ProviderID, modes []model.Mode) evidence.Searcher {
	if e.cfg.Searcher != nil {
		return e.cfg.Searcher
	}
	if e.cfg.Search == nil {
		return nil
	}
	for _, m := range modes {
		if m == model.ModeInternetSearch {
			return e.cfg.Search.Aggregator(ids)
		}
	}
	return nil
}

// assess walks one pair through its stages. It always returns a result.
func (e *Engine) assess(ctx context.Context, g *evidence.Gatherer, roles model.ColumnRoleMap, p pair) model.AssessmentResult {
	start := time.Now()
	res := newResult(p, roles)
	stage := StagePending

	fail := func(err error) model.AssessmentResult {
		if ctx.Err() != nil {
			return cancelled(res, start)
		}
		zap.L().Error("assess: pair failed",
			zap.String("company", p.name),
			zap.String("mode", string(p.mode)),
			zap.String("stage", stage.String()),
			zap.Error(err),
		)
		res.Status = model.StatusFailed
		res.Error = err.Error()
		res.DurationMS = time.Since(start).Milliseconds()
		return res
	}

	if !p.found {
		return fail(eris.Errorf("assess: company %q not found in dataset", p.name))
	}
	if ctx.Err() != nil {
		return cancelled(res, start)
	}

	bundle, err := g.Gather(ctx, p.company, roles, p.mode)
	if err != nil {
		return fail(err)
	}
	stage = StageEvidenceGathered

	pr := prompt.Build(bundle, e.cfg.Prompt)
	stage = StagePromptBuilt

	raw, err := e.cfg.LLM.Complete(ctx, pr.Text)
	if err != nil {
		return fail(err)
	}
	stage = StageLLMResponded

	parsed := parse.Parse(raw, pr.URLs)
	stage = StageParsed

	res.RecommendedRating = parsed.Rating
	res.Explanation = parsed.Explanation
	res.EvidenceLinks = parsed.Citations
	res.IsCorrect = parsed.IsCorrect
	res.RiskFactors = parsed.RiskFactors
	res.ExternalSignals = parsed.ExternalSignals
	res.Notes = append(res.Notes, bundle.Notes...)
	res.Status = model.StatusOK
	if bundle.Degraded {
		res.Status = model.StatusPartial
	}
	if !parsed.OK {
		res.Status = model.StatusPartial
		res.Notes = append(res.Notes, "response contained no rating on the scale")
	}

	stage = StageDone
	res.DurationMS = time.Since(start).Milliseconds()
	zap.L().Debug("assess: pair done",
		zap.String("company", p.name),
		zap.String("mode", string(p.mode)),
		zap.String("stage", stage.String()),
		zap.String("status", string(res.Status)),
		zap.String("rating", string(res.RecommendedRating)),
	)
	return res
}

func newResult(p pair, roles model.ColumnRoleMap) model.AssessmentResult {
	res := model.AssessmentResult{
		Company:           p.name,
		Mode:              p.mode,
		RecommendedRating: model.RatingUnclear,
		EvidenceLinks:     []string{},
		Status:            model.StatusFailed,
	}
	if p.found {
		res.Company = p.company.Name
		res.CurrentRating = roles.CurrentRating(p.company.Row)
	}
	return res
}

func cancelled(res model.AssessmentResult, start time.Time) model.AssessmentResult {
	res.Status = model.StatusFailed
	res.Error = CancelledMessage
	res.DurationMS = time.Since(start).Milliseconds()
	return res
}

func logSummary(results []model.AssessmentResult, elapsed time.Duration) {
	counts := make(map[model.Status]int, 3)
	var cancelledPairs int
	for _, r := range results {
		counts[r.Status]++
		if r.Error == CancelledMessage {
			cancelledPairs++
		}
	}
	zap.L().Info("assess: run complete",
		zap.Int("pairs", len(results)),
		zap.Int("ok", counts[model.StatusOK]),
		zap.Int("partial", counts[model.StatusPartial]),
		zap.Int("failed", counts[model.StatusFailed]),
		zap.Int("cancelled", cancelledPairs),
		zap.Duration("elapsed", elapsed),
	)
}

