package assess

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/search"
)

// --- LLM Mock ---

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Search Provider Stub ---

type stubProvider struct {
	id      search.ProviderID
	results []model.SearchResult
	err     error
}

func (p *stubProvider) ID() search.ProviderID { return p.id }

func (p *stubProvider) Search(_ context.Context, _ string, maxResults int) ([]model.SearchResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.results) > maxResults {
		return p.results[:maxResults], nil
	}
	return p.results, nil
}
