package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"episodedb/internal/services"
)

// ImportFile registers a video file as a new pending episode. The file must
// exist, carry a supported extension, and not already be in the catalog.
func (s *Store) ImportFile(ctx context.Context, path string) (*Episode, error) {
	absolute, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(absolute)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "catalog", "import", absolute, err)
		}
		return nil, fmt.Errorf("stat %s: %w", absolute, err)
	}
	if info.IsDir() || !IsVideoFile(absolute) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, absolute)
	}

	existing, err := s.GetByPath(ctx, absolute)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s (id %s)", ErrDuplicateEpisode, absolute, existing.ID)
	}

	checksum, err := fileChecksum(absolute)
	if err != nil {
		return nil, err
	}
	season, number := ParseSeasonEpisode(filepath.Base(absolute))
	now := formatTime(time.Now())
	id := uuid.NewString()

	if _, err := s.exec(ctx,
		`INSERT INTO episodes (
            id, file_path, file_name, file_size, checksum, title, season, episode_number,
            processing_status, transcription_status, thumbnail_status, metadata_status, embedding_status,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		absolute,
		filepath.Base(absolute),
		info.Size(),
		checksum,
		DeriveTitle(absolute),
		nullableInt(season),
		nullableInt(number),
		string(StatusPending),
		string(StatusPending),
		string(StatusPending),
		string(StatusPending),
		string(StatusPending),
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}
	return s.GetByID(ctx, id)
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// GetByID fetches an episode. It returns nil without error when id is unknown.
func (s *Store) GetByID(ctx context.Context, id string) (*Episode, error) {
	ep, err := scanEpisode(s.queryRow(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// GetByPath fetches the episode imported from path, or nil.
func (s *Store) GetByPath(ctx context.Context, path string) (*Episode, error) {
	ep, err := scanEpisode(s.queryRow(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE file_path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode by path: %w", err)
	}
	return ep, nil
}

// MustGet fetches an episode and reports ErrEpisodeNotFound when it is missing.
func (s *Store) MustGet(ctx context.Context, id string) (*Episode, error) {
	ep, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, fmt.Errorf("%w: %s", ErrEpisodeNotFound, id)
	}
	return ep, nil
}

// List returns episodes ordered by season, episode number, and file name.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes`
	var args []any
	if filter.Status != "" {
		query += ` WHERE processing_status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY COALESCE(season, 0), COALESCE(episode_number, 0), file_name`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}
	return s.listEpisodes(ctx, query, args...)
}

// Pending returns episodes whose processing has not started, oldest first.
func (s *Store) Pending(ctx context.Context) ([]*Episode, error) {
	return s.listEpisodes(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE processing_status = ? ORDER BY created_at, file_name`,
		string(StatusPending),
	)
}

func (s *Store) listEpisodes(ctx context.Context, query string, args ...any) ([]*Episode, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// Stats counts episodes by processing status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.query(ctx, `SELECT processing_status, COUNT(1) FROM episodes GROUP BY processing_status`)
	if err != nil {
		return nil, fmt.Errorf("episode stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Delete removes an episode with its thumbnails and segments. Files on disk
// are left untouched.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		statements := []string{
			`DELETE FROM segment_embeddings WHERE segment_id IN (SELECT id FROM transcript_segments WHERE episode_id = ?)`,
			`DELETE FROM transcript_segments WHERE episode_id = ?`,
			`DELETE FROM thumbnails WHERE episode_id = ?`,
		}
		for _, statement := range statements {
			if _, err := tx.ExecContext(ctx, s.rebind(statement), id); err != nil {
				return fmt.Errorf("delete episode children: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM episodes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete episode: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete episode rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrEpisodeNotFound, id)
		}
		return nil
	})
}

// SetStatus updates one status column. A failed status records message as
// the episode's error; starting processing clears any previous error;
// completing processing stamps processed_at.
func (s *Store) SetStatus(ctx context.Context, id string, field StatusField, status Status, message string) error {
	if !field.valid() {
		return services.Wrap(services.ErrValidation, "catalog", "set status", fmt.Sprintf("unknown status field %q", field), nil)
	}
	now := time.Now()
	query := `UPDATE episodes SET ` + string(field) + ` = ?, updated_at = ?`
	args := []any{string(status), formatTime(now)}
	switch {
	case status == StatusFailed:
		query += `, error_message = ?`
		args = append(args, nullableString(strings.TrimSpace(message)))
	case field == FieldProcessing && status == StatusProcessing:
		query += `, error_message = NULL, processed_at = NULL`
	case field == FieldProcessing && status == StatusCompleted:
		query += `, processed_at = ?`
		args = append(args, formatTime(now))
	}
	query += ` WHERE id = ?`
	args = append(args, id)
	return s.updateOne(ctx, "set status", query, args...)
}

// SaveVideoInfo stores the technical descriptor and extracted audio path.
func (s *Store) SaveVideoInfo(ctx context.Context, id string, info VideoInfo, audioPath string) error {
	return s.updateOne(ctx, "save video info",
		`UPDATE episodes SET duration_seconds = ?, width = ?, height = ?, frame_rate = ?, bit_rate = ?,
            video_codec = ?, audio_codec = ?, audio_channels = ?, audio_sample_rate = ?, format_name = ?,
            audio_path = ?, updated_at = ? WHERE id = ?`,
		info.DurationSeconds,
		info.Width,
		info.Height,
		info.FrameRate,
		info.BitRate,
		nullableString(info.VideoCodec),
		nullableString(info.AudioCodec),
		info.AudioChannels,
		info.AudioSampleRate,
		nullableString(info.FormatName),
		nullableString(audioPath),
		formatTime(time.Now()),
		id,
	)
}

func (s *Store) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		id, _ := args[len(args)-1].(string)
		return fmt.Errorf("%w: %s", ErrEpisodeNotFound, id)
	}
	return nil
}
