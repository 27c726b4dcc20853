package embedding

import (
	"context"
	"errors"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"episodedb/internal/services"
)

// DefaultCohereModel is the Cohere v3 English embedding model.
const DefaultCohereModel = "embed-english-v3.0"

// Purpose selects how a provider should treat its input texts. Cohere
// embeds documents and search queries differently.
type Purpose int

const (
	PurposeDocument Purpose = iota
	PurposeQuery
)

type cohereEmbedFunc func(ctx context.Context, req *cohere.V2EmbedRequest) (*cohere.EmbedByTypeResponse, error)

// CohereProvider embeds texts with the Cohere v2 embed API.
type CohereProvider struct {
	embed     cohereEmbedFunc
	model     string
	inputType cohere.EmbedInputType
}

// NewCohereProvider constructs a provider authenticated with apiKey.
func NewCohereProvider(apiKey, model string, purpose Purpose, timeout time.Duration) *CohereProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return newCohereProvider(func(ctx context.Context, req *cohere.V2EmbedRequest) (*cohere.EmbedByTypeResponse, error) {
		return client.V2.Embed(ctx, req)
	}, model, purpose)
}

func newCohereProvider(embed cohereEmbedFunc, model string, purpose Purpose) *CohereProvider {
	if model == "" {
		model = DefaultCohereModel
	}
	inputType := cohere.EmbedInputTypeSearchDocument
	if purpose == PurposeQuery {
		inputType = cohere.EmbedInputTypeSearchQuery
	}
	return &CohereProvider{embed: embed, model: model, inputType: inputType}
}

func (p *CohereProvider) Model() string { return p.model }

// EmbedBatch returns vectors indexed by response position; Cohere preserves
// input order.
func (p *CohereProvider) EmbedBatch(ctx context.Context, texts []string) ([]IndexedVector, error) {
	resp, err := p.embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          p.model,
		InputType:      p.inputType,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "cohere", "embed", "request timed out", err)
		}
		return nil, services.Wrap(services.ErrTransient, "cohere", "embed", "request failed", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, services.Wrap(services.ErrExternalTool, "cohere", "embed", "response carried no float embeddings", nil)
	}
	out := make([]IndexedVector, len(resp.Embeddings.Float))
	for i, vec := range resp.Embeddings.Float {
		values := make([]float32, len(vec))
		for j, v := range vec {
			values[j] = float32(v)
		}
		out[i] = IndexedVector{Index: i, Values: values}
	}
	return out, nil
}
