package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/pkg/jina"
	jinamocks "github.com/sells-group/risk-cli/pkg/jina/mocks"
)

const readerMarkdown = `# Acme Corp Annual Report

![logo](https://acme.com/logo.png)

- Acme operates **twelve** plants across three continents.
- See our [risk management framework](https://acme.com/risk) for details.

Short line.`

func TestJinaAdapter_Scrape_Success(t *testing.T) {
	m := jinamocks.NewMockClient(t)
	adapter := NewJinaAdapter(m)

	m.On("Read", context.Background(), "https://acme.com").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{Title: "Acme Corp", Content: readerMarkdown + strings.Repeat(" ", 10)},
	}, nil)

	result, err := adapter.Scrape(context.Background(), "https://acme.com")
	require.NoError(t, err)

	assert.Equal(t, "jina", result.Source)
	assert.Equal(t, "https://acme.com", result.Page.URL)
	assert.Equal(t, "Acme Corp", result.Page.Title)
	assert.Equal(t, []string{
		"Acme Corp Annual Report",
		"Acme operates **twelve** plants across three continents.",
		"See our risk management framework for details.",
	}, result.Page.Blocks)
	assert.Equal(t, []Link{{Href: "https://acme.com/risk", Text: "risk management framework"}}, result.Page.Links)
}

func TestJinaAdapter_Scrape_ClientError(t *testing.T) {
	m := jinamocks.NewMockClient(t)
	adapter := NewJinaAdapter(m)

	m.On("Read", context.Background(), "https://fail.com").Return(nil, errors.New("connection refused"))

	_, err := adapter.Scrape(context.Background(), "https://fail.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestJinaAdapter_BreakerOpensAfterFailures(t *testing.T) {
	m := jinamocks.NewMockClient(t)
	adapter := NewJinaAdapter(m)

	m.On("Read", context.Background(), "https://fail.com").Return(nil, errors.New("timeout")).Times(3)

	for range 3 {
		_, err := adapter.Scrape(context.Background(), "https://fail.com")
		require.Error(t, err)
	}

	assert.False(t, adapter.Supports("https://acme.com"))
	_, err := adapter.Scrape(context.Background(), "https://fail.com")
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestJinaAdapter_Scrape_NeedsFallback(t *testing.T) {
	m := jinamocks.NewMockClient(t)
	adapter := NewJinaAdapter(m)

	m.On("Read", context.Background(), "https://blocked.com").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{URL: "https://blocked.com", Content: "short"},
	}, nil)

	_, err := adapter.Scrape(context.Background(), "https://blocked.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs fallback")
}

func TestNeedsFallback(t *testing.T) {
	long := "This is valid content that is long enough to pass the minimum length check. " +
		"It does not contain any challenge signatures and should be considered valid content."

	tests := []struct {
		name string
		resp *jina.ReadResponse
		want bool
	}{
		{"nil response", nil, true},
		{"non-200 code", &jina.ReadResponse{Code: 403}, true},
		{"short content", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "too short"}}, true},
		{"challenge page", &jina.ReadResponse{Code: 200, Data: jina.ReadData{
			Content: "Checking your browser before accessing this site. Please enable JavaScript and cookies to continue.",
		}}, true},
		{"valid content", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: long}}, false},
		{"code 0 is acceptable", &jina.ReadResponse{Code: 0, Data: jina.ReadData{Content: long}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsFallback(tt.resp))
		})
	}
}
