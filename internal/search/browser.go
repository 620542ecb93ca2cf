package search

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/pkg/duckduckgo"
)

const browserSearchURL = "https://html.duckduckgo.com/html/"

// browserSession is one headless browser bound to a single query.
type browserSession interface {
	Render(ctx context.Context, pageURL string) (string, error)
	Close()
}

type sessionFactory func(ctx context.Context, opts Options) (browserSession, error)

type browserProvider struct {
	opts       Options
	newSession sessionFactory
	throttle   *throttle
	searchURL  string
}

func newBrowser(opts Options) *browserProvider {
	return &browserProvider{
		opts:       opts,
		newSession: newChromeSession,
		throttle:   newThrottle(ProviderBrowser, opts),
		searchURL:  browserSearchURL,
	}
}

func (p *browserProvider) ID() ProviderID { return ProviderBrowser }

// Search renders the results page in a fresh browser and parses it. The
// browser is torn down before Search returns, whatever the outcome.
func (p *browserProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	return p.throttle.do(ctx, func(ctx context.Context) ([]model.SearchResult, error) {
		sess, err := p.newSession(ctx, p.opts)
		if err != nil {
			return nil, eris.Wrap(err, "browser: start session")
		}
		defer sess.Close()

		page, err := sess.Render(ctx, p.searchURL+"?q="+url.QueryEscape(query))
		if err != nil {
			return nil, eris.Wrap(err, "browser: render results")
		}

		hits, err := duckduckgo.ParseResults(strings.NewReader(page))
		if err != nil {
			return nil, err
		}
		out := make([]model.SearchResult, 0, maxResults)
		for _, h := range hits {
			if len(out) == maxResults {
				break
			}
			out = append(out, model.SearchResult{
				Title:   cleanText(h.Title),
				Snippet: cleanText(h.Snippet),
				URL:     h.URL,
			})
		}
		return out, nil
	})
}

type chromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	wait        time.Duration
}

func newChromeSession(ctx context.Context, opts Options) (browserSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	if opts.BrowserExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.BrowserExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Start the browser now so launch failures surface here, not in Render.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, eris.Wrap(err, "browser: launch")
	}

	return &chromeSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		wait:        opts.BrowserWait,
	}, nil
}

func (s *chromeSession) Render(ctx context.Context, pageURL string) (string, error) {
	stop := context.AfterFunc(ctx, s.cancelTab)
	defer stop()

	var page string
	err := chromedp.Run(s.ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.wait),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return page, nil
}

func (s *chromeSession) Close() {
	s.cancelTab()
	s.cancelAlloc()
}
