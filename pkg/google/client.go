package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/sells-group/risk-cli/internal/resilience"
)

const (
	defaultAPIURL    = "https://www.googleapis.com/customsearch/v1"
	defaultWebURL    = "https://www.google.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Client performs Google web searches.
type Client interface {
	WebSearch(ctx context.Context, query string, num int) (*WebSearchResponse, error)
}

// WebSearchResponse holds the organic results of one query.
type WebSearchResponse struct {
	Items []Item `json:"items"`
}

// Item is a single organic result. Field names follow the Custom Search
// JSON API so both backends decode into the same shape.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the Custom Search API URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.apiURL = url
	}
}

// WithWebURL overrides the google.com origin used when scraping.
func WithWebURL(url string) Option {
	return func(c *httpClient) {
		c.webURL = url
	}
}

// WithSearchEngine sets the Programmable Search Engine ID (cx). With an API
// key and engine ID the client uses the JSON API instead of scraping.
func WithSearchEngine(cx string) Option {
	return func(c *httpClient) {
		c.cx = cx
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent overrides the user agent sent when scraping.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type httpClient struct {
	apiKey    string
	cx        string
	apiURL    string
	webURL    string
	userAgent string
	http      *http.Client
}

// NewClient creates a Google search client. An empty apiKey selects the
// keyless HTML backend.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		apiURL:    defaultAPIURL,
		webURL:    defaultWebURL,
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) WebSearch(ctx context.Context, query string, num int) (*WebSearchResponse, error) {
	if num <= 0 || num > 10 {
		num = 10
	}
	if c.apiKey != "" && c.cx != "" {
		return c.apiSearch(ctx, query, num)
	}
	return c.scrapeSearch(ctx, query, num)
}

func (c *httpClient) apiSearch(ctx context.Context, query string, num int) (*WebSearchResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	body, err := c.get(ctx, c.apiURL+"?"+params.Encode(), "application/json")
	if err != nil {
		return nil, err
	}

	var result WebSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}
	return &result, nil
}

func (c *httpClient) scrapeSearch(ctx context.Context, query string, num int) (*WebSearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	params.Set("hl", "en")

	body, err := c.get(ctx, c.webURL+"/search?"+params.Encode(), "text/html")
	if err != nil {
		return nil, err
	}

	items, err := ParseResultsPage(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(items) > num {
		items = items[:num]
	}
	return &WebSearchResponse{Items: items}, nil
}

func (c *httpClient) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}
	if err := resilience.CheckStatus("google", resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// ParseResultsPage extracts organic results from a google.com results page.
// A result is an anchor wrapping an <h3> title; its snippet is the longest
// text block in the enclosing result container.
func ParseResultsPage(r io.Reader) ([]Item, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "google: parse html")
	}

	var items []Item
	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if h3 := findElement(n, "h3"); h3 != nil {
				link := resolveLink(attr(n, "href"))
				if link != "" && !seen[link] {
					seen[link] = true
					items = append(items, Item{
						Title:   textContent(h3),
						Link:    link,
						Snippet: snippetFor(n),
					})
				}
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return items, nil
}

// resolveLink turns "/url?q=<target>&..." into the target and drops
// Google-internal links.
func resolveLink(href string) string {
	if strings.HasPrefix(href, "/url?") {
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		href = u.Query().Get("q")
	}
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "google.com" || strings.HasSuffix(host, ".google.com") || strings.HasPrefix(host, "google.") {
		return ""
	}
	return href
}

// snippetFor climbs to the nearest ancestor holding more than the title and
// returns its longest text block outside the anchor.
func snippetFor(a *html.Node) string {
	for p := a.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode || p.Data == "body" {
			return ""
		}
		best := ""
		var walk func(n *html.Node)
		walk = func(n *html.Node) {
			for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
				if ch == a || ch.Type != html.ElementNode {
					continue
				}
				if contains(ch, a) {
					walk(ch)
					continue
				}
				if t := textContent(ch); len(t) > len(best) {
					best = t
				}
			}
		}
		walk(p)
		if best != "" {
			return best
		}
	}
	return ""
}

func contains(n, target *html.Node) bool {
	for p := target.Parent; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

func findElement(n *html.Node, tag string) *html.Node {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode && ch.Data == tag {
			return ch
		}
		if found := findElement(ch, tag); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
