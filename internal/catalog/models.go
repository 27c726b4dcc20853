package catalog

import (
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of one processing aspect of an episode.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// ParseStatus converts a user-supplied string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// StatusField names one of the per-episode status columns.
type StatusField string

const (
	FieldProcessing    StatusField = "processing_status"
	FieldTranscription StatusField = "transcription_status"
	FieldThumbnails    StatusField = "thumbnail_status"
	FieldMetadata      StatusField = "metadata_status"
	FieldEmbeddings    StatusField = "embedding_status"
)

func (f StatusField) valid() bool {
	switch f {
	case FieldProcessing, FieldTranscription, FieldThumbnails, FieldMetadata, FieldEmbeddings:
		return true
	}
	return false
}

// VideoInfo is the technical descriptor stored for an episode.
type VideoInfo struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameRate       float64 `json:"frame_rate"`
	BitRate         int64   `json:"bit_rate"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	AudioChannels   int     `json:"audio_channels"`
	AudioSampleRate int     `json:"audio_sample_rate"`
	FormatName      string  `json:"format_name,omitempty"`
}

// Resolution renders WxH, or "" when dimensions are unknown.
func (v VideoInfo) Resolution() string {
	if v.Width <= 0 || v.Height <= 0 {
		return ""
	}
	return strconv.Itoa(v.Width) + "x" + strconv.Itoa(v.Height)
}

// Episode is one imported video file and its processing state.
type Episode struct {
	ID                  string     `json:"id"`
	FilePath            string     `json:"file_path"`
	FileName            string     `json:"file_name"`
	FileSize            int64      `json:"file_size"`
	Checksum            string     `json:"checksum"`
	Title               string     `json:"title"`
	Season              int        `json:"season,omitempty"`
	EpisodeNumber       int        `json:"episode_number,omitempty"`
	Video               VideoInfo  `json:"video"`
	AudioPath           string     `json:"audio_path,omitempty"`
	ProcessingStatus    Status     `json:"processing_status"`
	TranscriptionStatus Status     `json:"transcription_status"`
	ThumbnailStatus     Status     `json:"thumbnail_status"`
	MetadataStatus      Status     `json:"metadata_status"`
	EmbeddingStatus     Status     `json:"embedding_status"`
	ErrorMessage        string     `json:"error_message,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Code renders SxxEyy, or "" when season or episode is unknown.
func (e Episode) Code() string {
	if e.Season <= 0 || e.EpisodeNumber <= 0 {
		return ""
	}
	return "S" + pad2(e.Season) + "E" + pad2(e.EpisodeNumber)
}

// Thumbnail is a still extracted from an episode.
type Thumbnail struct {
	ID        string  `json:"id"`
	EpisodeID string  `json:"episode_id"`
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Path      string  `json:"path"`
	URI       string  `json:"uri,omitempty"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	SizeBytes int64   `json:"size_bytes"`
	Format    string  `json:"format"`
}

// Segment is a cleaned transcript span, optionally carrying its embedding.
type Segment struct {
	ID               string    `json:"id"`
	EpisodeID        string    `json:"episode_id"`
	Index            int       `json:"index"`
	Start            float64   `json:"start"`
	End              float64   `json:"end"`
	Text             string    `json:"text"`
	AvgLogprob       float64   `json:"avg_logprob"`
	CompressionRatio float64   `json:"compression_ratio"`
	NoSpeechProb     float64   `json:"no_speech_prob"`
	Embedding        []float32 `json:"embedding,omitempty"`
	EmbeddingModel   string    `json:"embedding_model,omitempty"`
}

// SegmentHit is a segment matched by search, with its episode's title.
type SegmentHit struct {
	Segment      Segment `json:"segment"`
	EpisodeTitle string  `json:"episode_title"`
}

// ListFilter narrows List results. Zero values mean no restriction.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

func pad2(value int) string {
	if value < 10 {
		return "0" + strconv.Itoa(value)
	}
	return strconv.Itoa(value)
}
