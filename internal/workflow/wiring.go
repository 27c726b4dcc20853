package workflow

import (
	"context"
	"log/slog"

	"episodedb/internal/catalog"
	"episodedb/internal/config"
	"episodedb/internal/embedding"
	"episodedb/internal/media"
	"episodedb/internal/media/extract"
	"episodedb/internal/media/ffprobe"
	"episodedb/internal/pipeline"
	"episodedb/internal/storage"
	"episodedb/internal/transcription"
)

// NewProcessorFromConfig builds the ffprobe/ffmpeg backed video processor.
func NewProcessorFromConfig(cfg *config.Config, runner media.CommandRunner, logger *slog.Logger) *pipeline.VideoProcessor {
	if runner == nil {
		runner = media.ExecRunner{}
	}
	inspector := ffprobe.NewInspector(runner, cfg.Media.FFprobeBinary, cfg.ProbeTimeout())
	extractor := extract.New(runner, cfg.Media.FFmpegBinary, inspector, logger)
	return pipeline.NewVideoProcessor(inspector, extractor, pipeline.OptionsFromConfig(cfg), logger)
}

// NewExtractorFromConfig builds a standalone extractor for one-off stills,
// clips and validation.
func NewExtractorFromConfig(cfg *config.Config, runner media.CommandRunner, logger *slog.Logger) *extract.Extractor {
	if runner == nil {
		runner = media.ExecRunner{}
	}
	inspector := ffprobe.NewInspector(runner, cfg.Media.FFprobeBinary, cfg.ProbeTimeout())
	return extract.New(runner, cfg.Media.FFmpegBinary, inspector, logger)
}

// NewRunnerFromConfig wires production collaborators. Transcription and
// embeddings are left out when their API keys are missing so media-only
// runs still work offline.
func NewRunnerFromConfig(ctx context.Context, cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Runner, error) {
	publisher, err := storage.NewPublisherFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps := Dependencies{
		Processor: NewProcessorFromConfig(cfg, media.ExecRunner{}, logger),
		Publisher: publisher,
	}
	if cfg.RequireOpenAIKey() == nil {
		deps.Transcriber = transcription.New(embedding.NewOpenAIClient(cfg), cfg.OpenAI.TranscriptionModel, cfg.OpenAI.Language, logger)
	}
	if batcher, err := embedding.NewBatcherFromConfig(cfg, logger); err == nil {
		deps.Embedder = batcher
	}
	return NewRunner(cfg, store, deps, logger)
}
