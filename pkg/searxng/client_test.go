package searxng

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "Acme Corp operational risk", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"Acme Corp operational risk","results":[
			{"title":"Acme fined","url":"https://news.example.com/acme","content":"Acme was fined.","engines":["bing"],"score":1.5},
			{"title":"Acme home","url":"https://acme.com","content":"","engines":["google","ddg"],"score":0.9}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/")
	resp, err := client.Search(context.Background(), "Acme Corp operational risk")

	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://news.example.com/acme", resp.Results[0].URL)
	assert.Equal(t, "Acme was fined.", resp.Results[0].Content)
	assert.Equal(t, []string{"google", "ddg"}, resp.Results[1].Engines)
}

func TestSearch_FormatDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Search(context.Background(), "acme")

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestSearch_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Search(context.Background(), "acme")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
