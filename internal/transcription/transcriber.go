// Package transcription turns extracted episode audio into raw transcript
// segments using a speech-to-text provider.
package transcription

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"episodedb/internal/logging"
	"episodedb/internal/pipeline"
	"episodedb/internal/services/openai"
	"episodedb/internal/transcript"
)

// Client is the speech-to-text capability.
type Client interface {
	Transcribe(ctx context.Context, req openai.TranscriptionRequest) (openai.Transcription, error)
}

// Result is a finished transcription.
type Result struct {
	DurationSeconds float64
	Language        string
	Text            string
	Segments        []transcript.RawSegment
}

// Transcriber requests deterministic verbose transcriptions.
type Transcriber struct {
	client   Client
	model    string
	language string
	logger   *slog.Logger
}

// New constructs a Transcriber. An empty model uses whisper-1.
func New(client Client, model, language string, logger *slog.Logger) *Transcriber {
	if strings.TrimSpace(model) == "" {
		model = openai.DefaultTranscriptionModel
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{
		client:   client,
		model:    strings.TrimSpace(model),
		language: strings.TrimSpace(language),
		logger:   logging.NewComponentLogger(logger, "transcription"),
	}
}

// TranscribeAudioFile transcribes the audio at path. Failures are returned as
// a *pipeline.ProcessingError tagged with the transcription stage.
func (t *Transcriber) TranscribeAudioFile(ctx context.Context, path string) (Result, error) {
	logger := logging.WithContext(ctx, t.logger)
	logger.Info("transcription started", logging.String("audio_path", path), logging.String("model", t.model))
	started := time.Now()

	resp, err := t.client.Transcribe(ctx, openai.TranscriptionRequest{
		AudioPath:      path,
		Model:          t.model,
		ResponseFormat: openai.ResponseFormatVerboseJSON,
		Temperature:    0,
		Language:       t.language,
	})
	if err != nil {
		return Result{}, pipeline.Wrap(pipeline.StageTranscription, err)
	}

	segments := make([]transcript.RawSegment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, transcript.RawSegment{
			ID:               seg.ID,
			Seek:             seg.Seek,
			Start:            seg.Start,
			End:              seg.End,
			Text:             seg.Text,
			Tokens:           seg.Tokens,
			Temperature:      seg.Temperature,
			AvgLogprob:       seg.AvgLogprob,
			CompressionRatio: seg.CompressionRatio,
			NoSpeechProb:     seg.NoSpeechProb,
		})
	}
	logger.Info("transcription completed",
		logging.Int("segments", len(segments)),
		logging.Float64("audio_seconds", resp.Duration),
		logging.Elapsed(time.Since(started)),
	)
	return Result{
		DurationSeconds: resp.Duration,
		Language:        resp.Language,
		Text:            strings.TrimSpace(resp.Text),
		Segments:        segments,
	}, nil
}
