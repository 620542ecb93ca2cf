package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// minBlockLen drops menu items, buttons and other short fragments.
const minBlockLen = 20

// LocalScraper fetches HTML via net/http, detects blocks, and splits the
// page into text blocks. Falls through to Jina when blocked.
type LocalScraper struct {
	client *http.Client
}

// NewLocalScraper creates a LocalScraper. A nil transport uses a dialer with
// conservative timeouts; pass one to route through a proxy.
func NewLocalScraper(transport http.RoundTripper) *LocalScraper {
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

func (l *LocalScraper) Name() string { return "local_http" }

// Supports reports whether targetURL is an http(s) URL.
func (l *LocalScraper) Supports(targetURL string) bool {
	return strings.HasPrefix(targetURL, "http://") || strings.HasPrefix(targetURL, "https://")
}

// Scrape fetches a URL, detects blocks and extracts text blocks and links.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	if len(body) < 100 {
		return nil, eris.New("local_http: empty page")
	}

	page, err := ParseHTML(targetURL, body)
	if err != nil {
		return nil, err
	}
	page.StatusCode = resp.StatusCode
	return &Result{Page: *page, Source: "local_http"}, nil
}

// skipTags are removed with their content before text extraction.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "footer": true, "header": true,
	"svg": true, "form": true,
}

var blockTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"p": true, "li": true, "td": true, "blockquote": true,
}

// ParseHTML splits an HTML document into headings, paragraphs and list items
// and collects its links resolved against pageURL.
func ParseHTML(pageURL string, body []byte) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse html")
	}
	base, _ := url.Parse(pageURL)

	page := &Page{URL: pageURL}
	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "title" && page.Title == "":
				page.Title = textOf(n)
				return
			case skipTags[n.Data]:
				return
			case n.Data == "a":
				if link, ok := resolveLink(base, n); ok {
					page.Links = append(page.Links, link)
				}
			case blockTags[n.Data]:
				if t := textOf(n); len(t) >= minBlockLen && !seen[t] {
					seen[t] = true
					page.Blocks = append(page.Blocks, t)
				}
				for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
					collectLinks(base, ch, page)
				}
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return page, nil
}

func collectLinks(base *url.URL, n *html.Node, page *Page) {
	if n.Type == html.ElementNode && n.Data == "a" {
		if link, ok := resolveLink(base, n); ok {
			page.Links = append(page.Links, link)
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		collectLinks(base, ch, page)
	}
}

func resolveLink(base *url.URL, n *html.Node) (Link, bool) {
	var href string
	for _, a := range n.Attr {
		if a.Key == "href" {
			href = strings.TrimSpace(a.Val)
		}
	}
	if href == "" || strings.HasPrefix(href, "#") {
		return Link{}, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return Link{}, false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return Link{}, false
	}
	ref.Fragment = ""
	return Link{Href: ref.String(), Text: textOf(n)}, true
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
