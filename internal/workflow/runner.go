package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"episodedb/internal/catalog"
	"episodedb/internal/config"
	"episodedb/internal/embedding"
	"episodedb/internal/logging"
	"episodedb/internal/media/ffprobe"
	"episodedb/internal/pipeline"
	"episodedb/internal/services"
	"episodedb/internal/storage"
	"episodedb/internal/transcript"
	"episodedb/internal/transcription"
)

// Transcriber turns an extracted audio track into raw transcript segments.
type Transcriber interface {
	TranscribeAudioFile(ctx context.Context, path string) (transcription.Result, error)
}

// Embedder attaches vectors to cleaned transcript segments.
type Embedder interface {
	Embed(ctx context.Context, segments []transcript.CleanSegment, batchSize int) ([]embedding.SegmentEmbedding, error)
	Model() string
}

// Options selects the optional parts of a run.
type Options struct {
	SkipTranscription bool `json:"skipTranscription"`
	SkipThumbnails    bool `json:"skipThumbnails"`
}

// Report summarizes a successful run.
type Report struct {
	EpisodeID         string                  `json:"episode_id"`
	RequestID         string                  `json:"request_id"`
	Video             ffprobe.VideoDescriptor `json:"video"`
	AudioPath         string                  `json:"audio_path"`
	Thumbnails        int                     `json:"thumbnails"`
	ThumbnailFailures int                     `json:"thumbnail_failures,omitempty"`
	Segments          int                     `json:"segments"`
	EmbeddingModel    string                  `json:"embedding_model,omitempty"`
	Elapsed           time.Duration           `json:"elapsed_ns"`
}

// Dependencies are the collaborators a Runner drives. Transcriber and
// Embedder may be nil; runs that need them then fail with a configuration
// error.
type Dependencies struct {
	Processor   *pipeline.VideoProcessor
	Transcriber Transcriber
	Embedder    Embedder
	Publisher   storage.Publisher
}

// Runner processes one catalog episode at a time per episode id.
type Runner struct {
	cfg         *config.Config
	store       *catalog.Store
	processor   *pipeline.VideoProcessor
	transcriber Transcriber
	embedder    Embedder
	publisher   storage.Publisher
	segmenter   transcript.Options
	batchSize   int
	locks       *lockSet
	logger      *slog.Logger
}

// NewRunner constructs a Runner over store.
func NewRunner(cfg *config.Config, store *catalog.Store, deps Dependencies, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || store == nil || deps.Processor == nil {
		return nil, errors.New("workflow runner requires config, catalog, and video processor")
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = storage.LocalPublisher{}
	}
	return &Runner{
		cfg:         cfg,
		store:       store,
		processor:   deps.Processor,
		transcriber: deps.Transcriber,
		embedder:    deps.Embedder,
		publisher:   publisher,
		segmenter:   transcript.OptionsFromConfig(cfg),
		batchSize:   cfg.Embedding.BatchSize,
		locks:       newLockSet(cfg.LockDir()),
		logger:      logging.NewComponentLogger(logger, "workflow"),
	}, nil
}

// Process runs the media pipeline for episodeID and, unless skipped,
// transcribes, segments and embeds the audio. Status fields track each
// phase; on failure the failing phase is marked failed with the error
// message and partial output is left in place.
func (r *Runner) Process(ctx context.Context, episodeID string, opts Options) (Report, error) {
	started := time.Now()
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	ctx = services.WithEpisodeID(ctx, episodeID)
	logger := logging.WithContext(ctx, r.logger)

	release, err := r.locks.acquire(episodeID)
	if err != nil {
		return Report{}, err
	}
	defer release()

	episode, err := r.store.MustGet(ctx, episodeID)
	if err != nil {
		return Report{}, err
	}
	if !opts.SkipTranscription {
		if r.transcriber == nil || r.embedder == nil {
			return Report{}, services.Wrap(services.ErrConfiguration, "workflow", "process",
				"transcription requires an OpenAI API key and an embedding provider; pass skip transcription to process media only", nil)
		}
	}

	run := &episodeRun{runner: r, id: episodeID, opts: opts}
	if err := run.begin(ctx); err != nil {
		return Report{}, err
	}
	logger.Info("episode processing started",
		logging.Event("episode_start"),
		logging.String("file", episode.FilePath),
		logging.Bool("skip_transcription", opts.SkipTranscription),
		logging.Bool("skip_thumbnails", opts.SkipThumbnails),
	)

	report, err := run.execute(ctx, episode)
	if err != nil {
		run.fail(ctx, err)
		logging.ErrorWithContext(logger, "episode processing failed", "episode_failure",
			logging.String(logging.FieldStage, pipeline.StageOf(err)),
			logging.Bool("retryable", services.IsRetryable(err)),
			logging.Elapsed(time.Since(started)),
			logging.Error(err),
		)
		return Report{}, err
	}
	report.RequestID = requestID
	report.Elapsed = time.Since(started)
	if err := r.store.SetStatus(ctx, episodeID, catalog.FieldProcessing, catalog.StatusCompleted, ""); err != nil {
		return Report{}, fmt.Errorf("mark processing completed: %w", err)
	}
	logger.Info("episode processing completed",
		logging.Event("episode_complete"),
		logging.Int("thumbnails", report.Thumbnails),
		logging.Int("segments", report.Segments),
		logging.Elapsed(report.Elapsed),
	)
	return report, nil
}

type episodeRun struct {
	runner  *Runner
	id      string
	opts    Options
	pending []catalog.StatusField
}

// begin marks every phase this run will attempt as processing.
func (e *episodeRun) begin(ctx context.Context) error {
	fields := []catalog.StatusField{catalog.FieldProcessing, catalog.FieldMetadata}
	if !e.opts.SkipThumbnails {
		fields = append(fields, catalog.FieldThumbnails)
	}
	if !e.opts.SkipTranscription {
		fields = append(fields, catalog.FieldTranscription, catalog.FieldEmbeddings)
	}
	for _, field := range fields {
		if err := e.runner.store.SetStatus(ctx, e.id, field, catalog.StatusProcessing, ""); err != nil {
			return fmt.Errorf("mark %s processing: %w", field, err)
		}
	}
	e.pending = fields[1:]
	return nil
}

func (e *episodeRun) complete(ctx context.Context, field catalog.StatusField) error {
	if err := e.runner.store.SetStatus(ctx, e.id, field, catalog.StatusCompleted, ""); err != nil {
		return fmt.Errorf("mark %s completed: %w", field, err)
	}
	for i, pending := range e.pending {
		if pending == field {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (e *episodeRun) execute(ctx context.Context, episode *catalog.Episode) (Report, error) {
	r := e.runner
	processor := r.processor
	if e.opts.SkipThumbnails {
		processor = processor.WithMaxThumbnails(0)
	}

	outputDir := r.cfg.EpisodeOutputDir(e.id)
	result, err := processor.ProcessVideo(ctx, episode.FilePath, outputDir, e.id)
	if err != nil {
		return Report{}, err
	}
	if err := r.store.SaveVideoInfo(ctx, e.id, videoInfo(result.Video), result.AudioPath); err != nil {
		return Report{}, pipeline.Wrap(pipeline.StageVideoInfo, fmt.Errorf("save video info: %w", err))
	}
	if err := e.complete(ctx, catalog.FieldMetadata); err != nil {
		return Report{}, err
	}
	report := Report{
		EpisodeID:         e.id,
		Video:             result.Video,
		AudioPath:         result.AudioPath,
		ThumbnailFailures: len(result.ThumbnailFailures),
	}

	if !e.opts.SkipThumbnails {
		thumbs, err := e.publishThumbnails(ctx, result)
		if err != nil {
			return Report{}, pipeline.Wrap(pipeline.StageThumbnailGeneration, err)
		}
		if err := r.store.ReplaceThumbnails(ctx, e.id, thumbs); err != nil {
			return Report{}, fmt.Errorf("save thumbnails: %w", err)
		}
		if err := e.complete(ctx, catalog.FieldThumbnails); err != nil {
			return Report{}, err
		}
		report.Thumbnails = len(thumbs)
	}

	if e.opts.SkipTranscription {
		return report, nil
	}
	segments, err := e.transcribe(ctx, result.AudioPath)
	if err != nil {
		return Report{}, err
	}
	report.Segments = len(segments)
	report.EmbeddingModel = r.embedder.Model()
	return report, nil
}

func (e *episodeRun) publishThumbnails(ctx context.Context, result pipeline.Result) ([]catalog.Thumbnail, error) {
	r := e.runner
	stageCtx := services.WithStage(ctx, pipeline.StageThumbnailGeneration)
	format := r.cfg.Media.ThumbnailFormat
	thumbs := make([]catalog.Thumbnail, 0, len(result.ThumbnailPaths))
	for i, path := range result.ThumbnailPaths {
		uri, err := r.publisher.Publish(stageCtx, e.id, path)
		if err != nil {
			return nil, err
		}
		thumb := catalog.Thumbnail{
			Index:  i + 1,
			Path:   path,
			URI:    uri,
			Width:  r.cfg.Media.ThumbnailWidth,
			Height: r.cfg.Media.ThumbnailHeight,
			Format: format,
		}
		if i < len(result.ThumbnailTimestamps) {
			thumb.Timestamp = result.ThumbnailTimestamps[i]
		}
		if info, err := os.Stat(path); err == nil {
			thumb.SizeBytes = info.Size()
		}
		thumbs = append(thumbs, thumb)
	}
	if len(thumbs) > 0 {
		logging.WithContext(stageCtx, r.logger).Debug("thumbnails published",
			logging.String("backend", r.publisher.Backend()),
			logging.Int("count", len(thumbs)),
		)
	}
	return thumbs, nil
}

func (e *episodeRun) transcribe(ctx context.Context, audioPath string) ([]catalog.Segment, error) {
	r := e.runner
	transcriptionCtx := services.WithStage(ctx, pipeline.StageTranscription)
	transcribed, err := r.transcriber.TranscribeAudioFile(transcriptionCtx, audioPath)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.StageTranscription, err)
	}
	if err := e.complete(ctx, catalog.FieldTranscription); err != nil {
		return nil, err
	}

	cleaned := transcript.Process(transcribed.Segments, r.segmenter)
	logging.WithContext(transcriptionCtx, r.logger).Info("transcript segmented",
		logging.Event("transcript_segmented"),
		logging.Int("raw_segments", len(transcribed.Segments)),
		logging.Int("clean_segments", len(cleaned)),
		logging.Float64("audio_seconds", transcribed.DurationSeconds),
	)

	embeddingCtx := services.WithStage(ctx, pipeline.StageEmbeddingCreation)
	embedded, err := r.embedder.Embed(embeddingCtx, cleaned, r.batchSize)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.StageEmbeddingCreation, err)
	}
	model := r.embedder.Model()
	segments := make([]catalog.Segment, 0, len(embedded))
	for _, item := range embedded {
		segments = append(segments, catalog.Segment{
			Index:            item.Segment.Index,
			Start:            item.Segment.Start,
			End:              item.Segment.End,
			Text:             item.Segment.Text,
			AvgLogprob:       item.Segment.AvgLogprob,
			CompressionRatio: item.Segment.CompressionRatio,
			NoSpeechProb:     item.Segment.NoSpeechProb,
			Embedding:        item.Embedding,
			EmbeddingModel:   model,
		})
	}
	if err := r.store.ReplaceSegments(ctx, e.id, segments); err != nil {
		return nil, fmt.Errorf("save segments: %w", err)
	}
	if err := e.complete(ctx, catalog.FieldEmbeddings); err != nil {
		return nil, err
	}
	return segments, nil
}

// fail records err on the processing status and on the phase it came from.
// Phases that never ran go back to pending.
func (e *episodeRun) fail(ctx context.Context, err error) {
	r := e.runner
	// Status writes must land even when the run was cancelled.
	ctx = context.WithoutCancel(ctx)
	message := strings.TrimSpace(err.Error())
	failed := statusFieldForStage(pipeline.StageOf(err))
	for _, field := range e.pending {
		status := catalog.StatusPending
		if field == failed {
			status = catalog.StatusFailed
		}
		if setErr := r.store.SetStatus(ctx, e.id, field, status, message); setErr != nil {
			r.logger.Warn("status update failed", logging.String("field", string(field)), logging.Error(setErr))
		}
	}
	if setErr := r.store.SetStatus(ctx, e.id, catalog.FieldProcessing, catalog.StatusFailed, message); setErr != nil {
		r.logger.Warn("status update failed", logging.String("field", string(catalog.FieldProcessing)), logging.Error(setErr))
	}
}

func statusFieldForStage(stage string) catalog.StatusField {
	switch stage {
	case pipeline.StageVideoInfo:
		return catalog.FieldMetadata
	case pipeline.StageThumbnailGeneration:
		return catalog.FieldThumbnails
	case pipeline.StageTranscription:
		return catalog.FieldTranscription
	case pipeline.StageEmbeddingCreation:
		return catalog.FieldEmbeddings
	default:
		return catalog.FieldProcessing
	}
}

func videoInfo(desc ffprobe.VideoDescriptor) catalog.VideoInfo {
	return catalog.VideoInfo{
		DurationSeconds: desc.DurationSeconds,
		Width:           desc.Width,
		Height:          desc.Height,
		FrameRate:       desc.FrameRate,
		BitRate:         desc.BitRate,
		VideoCodec:      desc.VideoCodec,
		AudioCodec:      desc.AudioCodec,
		AudioChannels:   desc.AudioChannels,
		AudioSampleRate: desc.AudioSampleRate,
		FormatName:      desc.FormatName,
	}
}
