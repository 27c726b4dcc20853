package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"episodedb/internal/logging"
	"episodedb/internal/transcript"
)

// DefaultBatchSize is the number of texts submitted per provider call.
const DefaultBatchSize = 100

// IndexedVector is one provider result tagged with the position of the input
// text inside the submitted batch.
type IndexedVector struct {
	Index  int
	Values []float32
}

// Provider is the external embedding capability. Results may arrive in any
// order; Index identifies the input each vector belongs to.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([]IndexedVector, error)
	Model() string
}

// SegmentEmbedding pairs a cleaned segment with its vector.
type SegmentEmbedding struct {
	Segment   transcript.CleanSegment
	Embedding []float32
}

// Batcher embeds transcript segments in sequential, paced batches.
type Batcher struct {
	provider Provider
	limiter  Limiter
	logger   *slog.Logger
}

// NewBatcher constructs a Batcher. A nil limiter disables pacing.
func NewBatcher(provider Provider, limiter Limiter, logger *slog.Logger) *Batcher {
	if limiter == nil {
		limiter = NoDelay{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Batcher{
		provider: provider,
		limiter:  limiter,
		logger:   logging.NewComponentLogger(logger, "embedding"),
	}
}

// Model returns the provider's model name.
func (b *Batcher) Model() string {
	if b.provider == nil {
		return ""
	}
	return b.provider.Model()
}

// Embed returns one SegmentEmbedding per segment in input order. Any batch
// failure aborts the whole call and no embeddings are returned.
func (b *Batcher) Embed(ctx context.Context, segments []transcript.CleanSegment, batchSize int) ([]SegmentEmbedding, error) {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = strings.TrimSpace(seg.Text)
	}
	vectors, err := b.EmbedTexts(ctx, texts, batchSize)
	if err != nil {
		return nil, err
	}
	out := make([]SegmentEmbedding, len(segments))
	for i, seg := range segments {
		out[i] = SegmentEmbedding{Segment: seg, Embedding: vectors[i]}
	}
	return out, nil
}

// EmbedTexts embeds texts in batches of batchSize and returns vectors in
// input order. A non-positive batchSize uses DefaultBatchSize.
func (b *Batcher) EmbedTexts(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if b.provider == nil {
		return nil, &EmbeddingError{Batch: -1, Err: fmt.Errorf("no embedding provider configured")}
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	logger := logging.WithContext(ctx, b.logger)
	started := time.Now()
	batches := (len(texts) + batchSize - 1) / batchSize
	for batch := 0; batch < batches; batch++ {
		if batch > 0 {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, &EmbeddingError{Batch: batch, Err: err}
			}
		}
		start := batch * batchSize
		end := min(start+batchSize, len(texts))
		chunk := texts[start:end]

		results, err := b.provider.EmbedBatch(ctx, chunk)
		if err != nil {
			return nil, &EmbeddingError{Batch: batch, Expected: len(chunk), Err: err}
		}
		ordered, err := restoreOrder(batch, len(chunk), results)
		if err != nil {
			return nil, err
		}
		out = append(out, ordered...)
		logger.Debug("embedding batch completed",
			logging.Int("batch", batch+1),
			logging.Int("batches", batches),
			logging.Int("texts", len(chunk)),
		)
	}
	logger.Info("embeddings created",
		logging.Event("embedding_complete"),
		logging.String("model", b.provider.Model()),
		logging.Int("texts", len(texts)),
		logging.Int("batches", batches),
		logging.Elapsed(time.Since(started)),
	)
	return out, nil
}

func restoreOrder(batch, expected int, results []IndexedVector) ([][]float32, error) {
	if len(results) != expected {
		return nil, &EmbeddingError{Batch: batch, Expected: expected, Got: len(results)}
	}
	ordered := make([][]float32, expected)
	for _, result := range results {
		if result.Index < 0 || result.Index >= expected {
			return nil, &EmbeddingError{Batch: batch, Expected: expected, Got: len(results), Err: fmt.Errorf("vector index %d out of range", result.Index)}
		}
		if ordered[result.Index] != nil {
			return nil, &EmbeddingError{Batch: batch, Expected: expected, Got: len(results), Err: fmt.Errorf("duplicate vector index %d", result.Index)}
		}
		if len(result.Values) == 0 {
			return nil, &EmbeddingError{Batch: batch, Expected: expected, Got: len(results), Err: fmt.Errorf("empty vector at index %d", result.Index)}
		}
		ordered[result.Index] = result.Values
	}
	return ordered, nil
}
