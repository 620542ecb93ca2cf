package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalScraper_ExtractsBlocksAndLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Acme Corp</title></head>
<body><nav><a href="/careers">Careers at Acme Corp worldwide</a></nav>
<h1>Welcome to Acme Corporation</h1>
<p>We build great products for customers &amp; partners.</p>
<ul><li>Our <a href="/governance">corporate governance</a> framework is reviewed yearly.</li></ul>
<p>Short.</p>
<script>var x = "We build great products";</script>
<footer>Copyright 2024 Acme Corporation Inc.</footer></body></html>`))
	}))
	defer srv.Close()

	s := NewLocalScraper(nil)
	result, err := s.Scrape(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "local_http", result.Source)
	assert.Equal(t, "Acme Corp", result.Page.Title)
	assert.Equal(t, 200, result.Page.StatusCode)
	assert.Equal(t, []string{
		"Welcome to Acme Corporation",
		"We build great products for customers & partners.",
		"Our corporate governance framework is reviewed yearly.",
	}, result.Page.Blocks)
	require.Len(t, result.Page.Links, 1)
	assert.Equal(t, srv.URL+"/governance", result.Page.Links[0].Href)
	assert.Equal(t, "corporate governance", result.Page.Links[0].Text)
}

func TestLocalScraper_Cloudflare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cf-Ray", "abc123")
		w.WriteHeader(403)
		_, _ = w.Write([]byte(`<html><body>Access denied</body></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(nil).Scrape(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestLocalScraper_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(nil).Scrape(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLocalScraper_HTTP404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`<html><body>Not found page with lots of content here to exceed threshold</body></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(nil).Scrape(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLocalScraper_Supports(t *testing.T) {
	s := NewLocalScraper(nil)
	assert.Equal(t, "local_http", s.Name())
	assert.True(t, s.Supports("https://example.com"))
	assert.True(t, s.Supports("http://localhost"))
	assert.False(t, s.Supports("ftp://example.com/file"))
}

func TestParseHTML_Links(t *testing.T) {
	body := []byte(`<html><body>
<a href="https://other.com/x#frag">Other</a>
<a href="#top">Top</a>
<a href="mailto:risk@acme.com">Mail</a>
<a href="risk/policy">Risk policy</a>
</body></html>`)

	page, err := ParseHTML("https://acme.com/about/", body)
	require.NoError(t, err)

	require.Len(t, page.Links, 2)
	assert.Equal(t, "https://other.com/x", page.Links[0].Href)
	assert.Equal(t, "https://acme.com/about/risk/policy", page.Links[1].Href)
}
