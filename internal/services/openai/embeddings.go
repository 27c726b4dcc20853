package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"episodedb/internal/services"
)

// DefaultEmbeddingModel produces 1536-dimensional vectors.
const DefaultEmbeddingModel = "text-embedding-3-small"

// Embedding is one vector of an embeddings response, tagged with the index of
// the input it belongs to.
type Embedding struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embeddingsRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
}

type embeddingsResponse struct {
	Data  []Embedding `json:"data"`
	Model string      `json:"model"`
}

// CreateEmbeddings embeds texts in a single request. Vectors are returned in
// the order the API sent them; callers reorder by Index.
func (c *Client) CreateEmbeddings(ctx context.Context, texts []string, model string) ([]Embedding, error) {
	const op = "embeddings"
	if len(texts) == 0 {
		return nil, services.Wrap(services.ErrValidation, "openai", op, "no input texts", nil)
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: model, EncodingFormat: "float"})
	if err != nil {
		return nil, fmt.Errorf("openai %s: encode body: %w", op, err)
	}
	var out embeddingsResponse
	if err := c.do(ctx, request{op: op, path: "embeddings", contentType: "application/json", body: body}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
