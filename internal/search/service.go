package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"episodedb/internal/catalog"
	"episodedb/internal/logging"
	"episodedb/internal/services"
)

// SegmentSource is the catalog surface search reads from.
type SegmentSource interface {
	SearchText(ctx context.Context, query string, limit int) ([]catalog.SegmentHit, error)
	Candidates(ctx context.Context, model string) ([]catalog.SegmentHit, error)
}

// QueryEmbedder turns free text into a vector for the configured model.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Service answers keyword and similarity queries over catalog segments.
type Service struct {
	source           SegmentSource
	embedder         QueryEmbedder
	defaultThreshold float64
	defaultLimit     int
	logger           *slog.Logger
}

// NewService builds a search service. embedder may be nil when only keyword
// search is needed.
func NewService(source SegmentSource, embedder QueryEmbedder, threshold float64, limit int, logger *slog.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{
		source:           source,
		embedder:         embedder,
		defaultThreshold: threshold,
		defaultLimit:     limit,
		logger:           logging.NewComponentLogger(logger, "search"),
	}
}

// Keyword returns segments whose text contains query, ignoring case.
func (s *Service) Keyword(ctx context.Context, query string, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "search", "keyword", "query is empty", nil)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	hits, err := s.source.SearchText(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, Match{Candidate: candidateFromHit(hit)})
	}
	return matches, nil
}

// Similar embeds text and ranks every stored segment for the embedder's
// model against it. A nil threshold uses the service default.
func (s *Service) Similar(ctx context.Context, text string, threshold *float64, limit int) ([]Match, error) {
	if s.embedder == nil {
		return nil, services.Wrap(services.ErrConfiguration, "search", "similar", "no embedding provider configured", nil)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "search", "similar", "query text is empty", nil)
	}
	minScore := s.defaultThreshold
	if threshold != nil {
		minScore = *threshold
	}
	if minScore < -1 || minScore > 1 {
		return nil, services.Wrap(services.ErrValidation, "search", "similar", fmt.Sprintf("threshold %.2f outside [-1, 1]", minScore), nil)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	start := time.Now()
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	hits, err := s.source.Candidates(ctx, s.embedder.Model())
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	candidates := make([]Candidate, 0, len(hits))
	skipped := 0
	for _, hit := range hits {
		if len(hit.Segment.Embedding) != len(vector) {
			skipped++
			continue
		}
		candidates = append(candidates, candidateFromHit(hit))
	}
	if skipped > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "skipped candidates with mismatched dimensions", "search_dimension_mismatch",
			logging.Int("skipped", skipped),
			logging.Int("query_dimensions", len(vector)),
			logging.String(logging.FieldErrorHint, "re-process episodes embedded with a different model configuration"),
			logging.String(logging.FieldImpact, "those segments are excluded from similarity results"),
		)
	}

	matches := Rank(vector, candidates, minScore, limit)
	logging.WithContext(ctx, s.logger).Debug("similarity search complete",
		logging.Event("search_similar"),
		logging.Int("candidates", len(candidates)),
		logging.Int("matches", len(matches)),
		logging.Float64("threshold", minScore),
		logging.Duration("elapsed", time.Since(start)),
	)
	return matches, nil
}

func candidateFromHit(hit catalog.SegmentHit) Candidate {
	return Candidate{
		SegmentID:    hit.Segment.ID,
		EpisodeID:    hit.Segment.EpisodeID,
		EpisodeTitle: hit.EpisodeTitle,
		Start:        hit.Segment.Start,
		End:          hit.Segment.End,
		Text:         hit.Segment.Text,
		Embedding:    hit.Segment.Embedding,
	}
}
