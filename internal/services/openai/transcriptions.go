package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"episodedb/internal/services"
)

// Transcription defaults.
const (
	DefaultTranscriptionModel = "whisper-1"
	ResponseFormatVerboseJSON = "verbose_json"
)

// TranscriptionRequest describes an audio transcription call.
type TranscriptionRequest struct {
	AudioPath      string
	Model          string
	ResponseFormat string
	Temperature    float64
	Language       string
}

// Segment is a timestamped span of a verbose_json transcription.
type Segment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// Transcription is the verbose_json transcription payload.
type Transcription struct {
	Task     string    `json:"task"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Transcribe uploads the audio file and returns the transcription.
func (c *Client) Transcribe(ctx context.Context, req TranscriptionRequest) (Transcription, error) {
	const op = "transcribe"
	path := strings.TrimSpace(req.AudioPath)
	if path == "" {
		return Transcription{}, services.Wrap(services.ErrValidation, "openai", op, "audio path required", nil)
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		marker := services.ErrValidation
		if os.IsNotExist(err) {
			marker = services.ErrNotFound
		}
		return Transcription{}, services.Wrap(marker, "openai", op, "read audio", err)
	}
	if req.Model == "" {
		req.Model = DefaultTranscriptionModel
	}
	if req.ResponseFormat == "" {
		req.ResponseFormat = ResponseFormatVerboseJSON
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Transcription{}, fmt.Errorf("openai %s: create form file: %w", op, err)
	}
	if _, err := part.Write(audio); err != nil {
		return Transcription{}, fmt.Errorf("openai %s: write form file: %w", op, err)
	}
	fields := map[string]string{
		"model":           req.Model,
		"response_format": req.ResponseFormat,
		"temperature":     strconv.FormatFloat(req.Temperature, 'f', -1, 64),
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		fields["language"] = lang
	}
	for _, key := range []string{"model", "response_format", "temperature", "language"} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return Transcription{}, fmt.Errorf("openai %s: write field %s: %w", op, key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return Transcription{}, fmt.Errorf("openai %s: close form: %w", op, err)
	}

	var out Transcription
	err = c.do(ctx, request{
		op:          op,
		path:        "audio/transcriptions",
		contentType: writer.FormDataContentType(),
		body:        buf.Bytes(),
	}, &out)
	if err != nil {
		return Transcription{}, err
	}
	return out, nil
}
