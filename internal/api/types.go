package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Episode describes a catalog entry in a transport-friendly format.
type Episode struct {
	ID                  string    `json:"id"`
	FilePath            string    `json:"filePath"`
	FileName            string    `json:"fileName"`
	FileSize            int64     `json:"fileSize"`
	Checksum            string    `json:"checksum"`
	Title               string    `json:"title"`
	Season              int       `json:"season,omitempty"`
	EpisodeNumber       int       `json:"episodeNumber,omitempty"`
	Code                string    `json:"code,omitempty"`
	Video               VideoInfo `json:"video"`
	AudioPath           string    `json:"audioPath,omitempty"`
	ProcessingStatus    string    `json:"processingStatus"`
	TranscriptionStatus string    `json:"transcriptionStatus"`
	ThumbnailStatus     string    `json:"thumbnailStatus"`
	MetadataStatus      string    `json:"metadataStatus"`
	EmbeddingStatus     string    `json:"embeddingStatus"`
	ErrorMessage        string    `json:"errorMessage,omitempty"`
	ProcessedAt         string    `json:"processedAt,omitempty"`
	CreatedAt           string    `json:"createdAt,omitempty"`
	UpdatedAt           string    `json:"updatedAt,omitempty"`
}

// VideoInfo carries the stored technical descriptor.
type VideoInfo struct {
	DurationSeconds float64 `json:"durationSeconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Resolution      string  `json:"resolution,omitempty"`
	FrameRate       float64 `json:"frameRate"`
	BitRate         int64   `json:"bitRate"`
	VideoCodec      string  `json:"videoCodec,omitempty"`
	AudioCodec      string  `json:"audioCodec,omitempty"`
	AudioChannels   int     `json:"audioChannels"`
	AudioSampleRate int     `json:"audioSampleRate"`
	FormatName      string  `json:"formatName,omitempty"`
}

// Thumbnail is an extracted still.
type Thumbnail struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Path      string  `json:"path"`
	URI       string  `json:"uri,omitempty"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	SizeBytes int64   `json:"sizeBytes"`
	Format    string  `json:"format"`
}

// Segment is a transcript span without its vector.
type Segment struct {
	ID             string  `json:"id"`
	Index          int     `json:"index"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Text           string  `json:"text"`
	EmbeddingModel string  `json:"embeddingModel,omitempty"`
	Dimensions     int     `json:"dimensions,omitempty"`
}

// SearchMatch is one keyword or similarity hit.
type SearchMatch struct {
	SegmentID    string   `json:"segmentId"`
	EpisodeID    string   `json:"episodeId"`
	EpisodeTitle string   `json:"episodeTitle,omitempty"`
	Start        float64  `json:"start"`
	End          float64  `json:"end"`
	Text         string   `json:"text"`
	Similarity   *float64 `json:"similarity,omitempty"`
}

// EpisodeListResponse wraps episode listings.
type EpisodeListResponse struct {
	Episodes []Episode `json:"episodes"`
	Count    int       `json:"count"`
}

// EpisodeDetailResponse is the payload of GET /episodes/{id}.
type EpisodeDetailResponse struct {
	Episode    Episode     `json:"episode"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Segments   []Segment   `json:"segments"`
	Transcript string      `json:"transcript,omitempty"`
}

// ImportRequest is the body of POST /episodes.
type ImportRequest struct {
	Path string `json:"path"`
}

// ProcessRequest is the body of POST /episodes/{id}/process.
type ProcessRequest struct {
	SkipTranscription bool `json:"skipTranscription"`
	SkipThumbnails    bool `json:"skipThumbnails"`
}

// ProcessResponse summarizes a finished run.
type ProcessResponse struct {
	Episode           Episode `json:"episode"`
	RequestID         string  `json:"requestId"`
	Thumbnails        int     `json:"thumbnails"`
	ThumbnailFailures int     `json:"thumbnailFailures,omitempty"`
	Segments          int     `json:"segments"`
	EmbeddingModel    string  `json:"embeddingModel,omitempty"`
	ElapsedMS         int64   `json:"elapsedMs"`
}

// SimilarRequest is the body of POST /search/similar.
type SimilarRequest struct {
	Text      string   `json:"text"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Query   string        `json:"query"`
	Matches []SearchMatch `json:"matches"`
	Count   int           `json:"count"`
}

// HealthResponse reports liveness and catalog reachability.
type HealthResponse struct {
	Status  string         `json:"status"`
	Catalog string         `json:"catalog"`
	Stats   map[string]int `json:"stats,omitempty"`
}

// ErrorResponse is every non-2xx body.
type ErrorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind,omitempty"`
	Stage         string `json:"stage,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}
