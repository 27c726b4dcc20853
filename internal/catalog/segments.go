package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const segmentColumns = "s.id, s.episode_id, s.position, s.start_seconds, s.end_seconds, s.text, s.avg_logprob, s.compression_ratio, s.no_speech_prob"

// ReplaceSegments swaps an episode's transcript segments (and their
// embeddings) for segments. Segments without an embedding are stored
// without one.
func (s *Store) ReplaceSegments(ctx context.Context, episodeID string, segments []Segment) error {
	if _, err := s.MustGet(ctx, episodeID); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(
			`DELETE FROM segment_embeddings WHERE segment_id IN (SELECT id FROM transcript_segments WHERE episode_id = ?)`,
		), episodeID); err != nil {
			return fmt.Errorf("clear embeddings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM transcript_segments WHERE episode_id = ?`), episodeID); err != nil {
			return fmt.Errorf("clear segments: %w", err)
		}

		insertSegment := s.rebind(`INSERT INTO transcript_segments (
            id, episode_id, position, start_seconds, end_seconds, text, avg_logprob, compression_ratio, no_speech_prob
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		insertEmbedding := s.rebind(`INSERT INTO segment_embeddings (segment_id, model, dimensions, vector_json) VALUES (?, ?, ?, ?)`)
		for i := range segments {
			seg := &segments[i]
			if seg.ID == "" {
				seg.ID = uuid.NewString()
			}
			seg.EpisodeID = episodeID
			if _, err := tx.ExecContext(ctx, insertSegment,
				seg.ID, episodeID, seg.Index, seg.Start, seg.End, seg.Text,
				seg.AvgLogprob, seg.CompressionRatio, seg.NoSpeechProb,
			); err != nil {
				return fmt.Errorf("insert segment %d: %w", seg.Index, err)
			}
			if len(seg.Embedding) == 0 {
				continue
			}
			encoded, err := encodeVector(seg.Embedding)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, insertEmbedding, seg.ID, seg.EmbeddingModel, len(seg.Embedding), encoded); err != nil {
				return fmt.Errorf("insert embedding for segment %d: %w", seg.Index, err)
			}
		}
		return nil
	})
}

// Segments returns an episode's segments in transcript order, with their
// embeddings when present.
func (s *Store) Segments(ctx context.Context, episodeID string) ([]Segment, error) {
	rows, err := s.query(ctx,
		`SELECT `+segmentColumns+`, e.model, e.vector_json
        FROM transcript_segments s
        LEFT JOIN segment_embeddings e ON e.segment_id = s.id
        WHERE s.episode_id = ?
        ORDER BY s.position`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segments := []Segment{}
	for rows.Next() {
		var (
			seg    Segment
			model  sql.NullString
			vector sql.NullString
		)
		if err := rows.Scan(
			&seg.ID, &seg.EpisodeID, &seg.Index, &seg.Start, &seg.End, &seg.Text,
			&seg.AvgLogprob, &seg.CompressionRatio, &seg.NoSpeechProb,
			&model, &vector,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		if vector.Valid {
			if seg.Embedding, err = decodeVector(vector.String); err != nil {
				return nil, err
			}
			seg.EmbeddingModel = model.String
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// SearchText finds segments whose text contains query, ignoring case.
func (s *Store) SearchText(ctx context.Context, query string, limit int) ([]SegmentHit, error) {
	query = strings.TrimSpace(query)
	hits := []SegmentHit{}
	if query == "" {
		return hits, nil
	}
	statement := `SELECT ` + segmentColumns + `, ep.title
        FROM transcript_segments s
        JOIN episodes ep ON ep.id = s.episode_id
        WHERE LOWER(s.text) LIKE ? ESCAPE '\'
        ORDER BY COALESCE(ep.season, 0), COALESCE(ep.episode_number, 0), ep.file_name, s.position`
	args := []any{likePattern(query)}
	if limit > 0 {
		statement += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.query(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("search segments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hit SegmentHit
		seg := &hit.Segment
		if err := rows.Scan(
			&seg.ID, &seg.EpisodeID, &seg.Index, &seg.Start, &seg.End, &seg.Text,
			&seg.AvgLogprob, &seg.CompressionRatio, &seg.NoSpeechProb,
			&hit.EpisodeTitle,
		); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Candidates returns every segment embedded with model, for similarity ranking.
func (s *Store) Candidates(ctx context.Context, model string) ([]SegmentHit, error) {
	rows, err := s.query(ctx,
		`SELECT `+segmentColumns+`, ep.title, e.model, e.vector_json
        FROM segment_embeddings e
        JOIN transcript_segments s ON s.id = e.segment_id
        JOIN episodes ep ON ep.id = s.episode_id
        WHERE e.model = ?
        ORDER BY ep.file_name, s.position`,
		model,
	)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	candidates := []SegmentHit{}
	for rows.Next() {
		var (
			hit    SegmentHit
			vector string
		)
		seg := &hit.Segment
		if err := rows.Scan(
			&seg.ID, &seg.EpisodeID, &seg.Index, &seg.Start, &seg.End, &seg.Text,
			&seg.AvgLogprob, &seg.CompressionRatio, &seg.NoSpeechProb,
			&hit.EpisodeTitle, &seg.EmbeddingModel, &vector,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if seg.Embedding, err = decodeVector(vector); err != nil {
			return nil, err
		}
		candidates = append(candidates, hit)
	}
	return candidates, rows.Err()
}
