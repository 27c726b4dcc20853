package embedding

import (
	"context"

	"episodedb/internal/services/openai"
)

// OpenAIClient is the subset of the OpenAI client used for embeddings.
type OpenAIClient interface {
	CreateEmbeddings(ctx context.Context, texts []string, model string) ([]openai.Embedding, error)
}

// OpenAIProvider embeds texts through the OpenAI embeddings endpoint.
type OpenAIProvider struct {
	client OpenAIClient
	model  string
}

// NewOpenAIProvider constructs a provider. An empty model uses
// text-embedding-3-small.
func NewOpenAIProvider(client OpenAIClient, model string) *OpenAIProvider {
	if model == "" {
		model = openai.DefaultEmbeddingModel
	}
	return &OpenAIProvider{client: client, model: model}
}

func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]IndexedVector, error) {
	data, err := p.client.CreateEmbeddings(ctx, texts, p.model)
	if err != nil {
		return nil, err
	}
	out := make([]IndexedVector, len(data))
	for i, item := range data {
		out[i] = IndexedVector{Index: item.Index, Values: item.Embedding}
	}
	return out, nil
}
