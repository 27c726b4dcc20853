package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// ReplaceThumbnails swaps an episode's thumbnail records for thumbs.
func (s *Store) ReplaceThumbnails(ctx context.Context, episodeID string, thumbs []Thumbnail) error {
	if _, err := s.MustGet(ctx, episodeID); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM thumbnails WHERE episode_id = ?`), episodeID); err != nil {
			return fmt.Errorf("clear thumbnails: %w", err)
		}
		insert := s.rebind(`INSERT INTO thumbnails (
            id, episode_id, position, timestamp_seconds, file_path, uri, width, height, size_bytes, format
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		for i := range thumbs {
			thumb := &thumbs[i]
			if thumb.ID == "" {
				thumb.ID = uuid.NewString()
			}
			thumb.EpisodeID = episodeID
			if _, err := tx.ExecContext(ctx, insert,
				thumb.ID, episodeID, thumb.Index, thumb.Timestamp, thumb.Path,
				nullableString(thumb.URI), thumb.Width, thumb.Height, thumb.SizeBytes, thumb.Format,
			); err != nil {
				return fmt.Errorf("insert thumbnail %d: %w", thumb.Index, err)
			}
		}
		return nil
	})
}

// Thumbnails returns an episode's thumbnails in timestamp order.
func (s *Store) Thumbnails(ctx context.Context, episodeID string) ([]Thumbnail, error) {
	rows, err := s.query(ctx,
		`SELECT id, episode_id, position, timestamp_seconds, file_path, uri, width, height, size_bytes, format
        FROM thumbnails WHERE episode_id = ? ORDER BY position`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list thumbnails: %w", err)
	}
	defer rows.Close()

	thumbs := []Thumbnail{}
	for rows.Next() {
		var (
			thumb  Thumbnail
			uri    sql.NullString
			width  sql.NullInt64
			height sql.NullInt64
			size   sql.NullInt64
		)
		if err := rows.Scan(&thumb.ID, &thumb.EpisodeID, &thumb.Index, &thumb.Timestamp, &thumb.Path,
			&uri, &width, &height, &size, &thumb.Format); err != nil {
			return nil, fmt.Errorf("scan thumbnail: %w", err)
		}
		thumb.URI = uri.String
		thumb.Width = int(width.Int64)
		thumb.Height = int(height.Int64)
		thumb.SizeBytes = size.Int64
		thumbs = append(thumbs, thumb)
	}
	return thumbs, rows.Err()
}
