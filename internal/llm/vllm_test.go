package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-cli/pkg/vllm"
	vllmmocks "github.com/sells-group/risk-cli/pkg/vllm/mocks"
)

func TestVLLMBackend_CompleteForwardsSampling(t *testing.T) {
	client := vllmmocks.NewMockClient(t)
	client.On("Complete", mock.Anything, vllm.CompletionRequest{
		Model:       "qwen2.5-7b-instruct",
		Prompt:      "rate Acme",
		MaxTokens:   512,
		Temperature: 0.1,
		TopP:        0.9,
	}).Return(&vllm.CompletionResponse{
		Choices: []vllm.Choice{{Text: `{"recommended_rating":"Low"}`}},
	}, nil)

	b := &vllmBackend{client: client, cfg: Config{
		Model:       "qwen2.5-7b-instruct",
		MaxTokens:   512,
		Temperature: 0.1,
		TopP:        0.9,
	}}
	text, err := b.complete(context.Background(), "rate Acme")

	require.NoError(t, err)
	assert.Equal(t, `{"recommended_rating":"Low"}`, text)
}

func TestVLLMBackend_PingChecksServedModel(t *testing.T) {
	client := vllmmocks.NewMockClient(t)
	client.On("Models", mock.Anything).Return(&vllm.ModelsResponse{
		Data: []vllm.Model{{ID: "llama-3.1-8b"}},
	}, nil)

	served := &vllmBackend{client: client, cfg: Config{Model: "llama-3.1-8b"}}
	assert.NoError(t, served.ping(context.Background()))

	missing := &vllmBackend{client: client, cfg: Config{Model: "qwen2.5-7b-instruct", BaseURL: "http://gpu-01:8000/v1"}}
	err := missing.ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qwen2.5-7b-instruct")
}
