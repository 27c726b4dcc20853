package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"episodedb/internal/services"
)

var (
	// ErrEpisodeNotFound is returned when an operation targets an unknown episode.
	ErrEpisodeNotFound = fmt.Errorf("episode %w", services.ErrNotFound)
	// ErrDuplicateEpisode is returned when a file path is imported twice.
	ErrDuplicateEpisode = fmt.Errorf("episode already imported: %w", services.ErrValidation)
	// ErrUnsupportedFile is returned for paths without a supported video extension.
	ErrUnsupportedFile = fmt.Errorf("unsupported video file: %w", services.ErrValidation)
)

const episodeColumns = "id, file_path, file_name, file_size, checksum, title, season, episode_number, duration_seconds, width, height, frame_rate, bit_rate, video_codec, audio_codec, audio_channels, audio_sample_rate, format_name, audio_path, processing_status, transcription_status, thumbnail_status, metadata_status, embedding_status, error_message, processed_at, created_at, updated_at"

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		ep              Episode
		season          sql.NullInt64
		episodeNumber   sql.NullInt64
		duration        sql.NullFloat64
		width           sql.NullInt64
		height          sql.NullInt64
		frameRate       sql.NullFloat64
		bitRate         sql.NullInt64
		videoCodec      sql.NullString
		audioCodec      sql.NullString
		audioChannels   sql.NullInt64
		audioSampleRate sql.NullInt64
		formatName      sql.NullString
		audioPath       sql.NullString
		processing      string
		transcription   string
		thumbnails      string
		metadata        string
		embeddings      string
		errorMessage    sql.NullString
		processedRaw    sql.NullString
		createdRaw      string
		updatedRaw      string
	)
	if err := scanner.Scan(
		&ep.ID,
		&ep.FilePath,
		&ep.FileName,
		&ep.FileSize,
		&ep.Checksum,
		&ep.Title,
		&season,
		&episodeNumber,
		&duration,
		&width,
		&height,
		&frameRate,
		&bitRate,
		&videoCodec,
		&audioCodec,
		&audioChannels,
		&audioSampleRate,
		&formatName,
		&audioPath,
		&processing,
		&transcription,
		&thumbnails,
		&metadata,
		&embeddings,
		&errorMessage,
		&processedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	ep.Season = int(season.Int64)
	ep.EpisodeNumber = int(episodeNumber.Int64)
	ep.Video = VideoInfo{
		DurationSeconds: duration.Float64,
		Width:           int(width.Int64),
		Height:          int(height.Int64),
		FrameRate:       frameRate.Float64,
		BitRate:         bitRate.Int64,
		VideoCodec:      videoCodec.String,
		AudioCodec:      audioCodec.String,
		AudioChannels:   int(audioChannels.Int64),
		AudioSampleRate: int(audioSampleRate.Int64),
		FormatName:      formatName.String,
	}
	ep.AudioPath = audioPath.String
	ep.ProcessingStatus = Status(processing)
	ep.TranscriptionStatus = Status(transcription)
	ep.ThumbnailStatus = Status(thumbnails)
	ep.MetadataStatus = Status(metadata)
	ep.EmbeddingStatus = Status(embeddings)
	ep.ErrorMessage = errorMessage.String
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			ep.ProcessedAt = &processed
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		ep.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		ep.UpdatedAt = updated
	}
	return &ep, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// likePattern builds a case-insensitive substring LIKE pattern with the
// wildcard characters of query escaped.
func likePattern(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(query)) + "%"
}

func encodeVector(vector []float32) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(data), nil
}

func decodeVector(raw string) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal([]byte(raw), &vector); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return vector, nil
}
