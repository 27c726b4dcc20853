package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"episodedb/internal/config"
	"episodedb/internal/logging"
	"episodedb/internal/media/extract"
	"episodedb/internal/media/ffprobe"
	"episodedb/internal/services"
)

// DefaultMaxThumbnails caps thumbnails per episode.
const DefaultMaxThumbnails = 10

// Inspector describes source videos.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.VideoDescriptor, error)
}

// Extractor produces audio and thumbnails.
type Extractor interface {
	ExtractAudio(ctx context.Context, input, output string, opts extract.AudioOptions) (string, error)
	ExtractThumbnailsForDuration(ctx context.Context, input, outputDir string, duration float64, count int, opts extract.ThumbnailOptions) ([]string, error)
}

// Options configures a VideoProcessor.
type Options struct {
	Audio         extract.AudioOptions
	Thumbnails    extract.ThumbnailOptions
	MaxThumbnails int
	Observer      Observer
}

// DefaultOptions returns wav audio, default thumbnails, and a cap of 10.
func DefaultOptions() Options {
	return Options{
		Audio:         extract.DefaultAudioOptions(),
		Thumbnails:    extract.DefaultThumbnailOptions(),
		MaxThumbnails: DefaultMaxThumbnails,
	}
}

// OptionsFromConfig maps the media section of cfg onto processor options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	m := cfg.Media
	opts.Audio = extract.AudioOptions{
		Format:     m.AudioFormat,
		SampleRate: m.AudioSampleRate,
		Channels:   m.AudioChannels,
		Bitrate:    m.AudioBitrate,
		Timeout:    cfg.AudioTimeout(),
	}
	opts.Thumbnails = extract.ThumbnailOptions{
		Width:       m.ThumbnailWidth,
		Height:      m.ThumbnailHeight,
		Quality:     m.ThumbnailQuality,
		Format:      m.ThumbnailFormat,
		Timeout:     cfg.ThumbnailTimeout(),
		Concurrency: m.ThumbnailConcurrency,
		Policy:      m.FailurePolicy,
	}
	opts.MaxThumbnails = m.MaxThumbnails
	return opts
}

// Result is the output of a successful run. It is owned by the caller.
type Result struct {
	Video               ffprobe.VideoDescriptor
	AudioPath           string
	ThumbnailPaths      []string
	ThumbnailTimestamps []float64
	ThumbnailFailures   []extract.ThumbnailFailure
}

// VideoProcessor runs the inspect, audio, and thumbnail stages for an episode.
// It holds no per-run state, so concurrent calls for different episodes are safe.
type VideoProcessor struct {
	inspector Inspector
	extractor Extractor
	opts      Options
	logger    *slog.Logger
}

// NewVideoProcessor constructs a processor.
func NewVideoProcessor(inspector Inspector, extractor Extractor, opts Options, logger *slog.Logger) *VideoProcessor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MaxThumbnails < 0 {
		opts.MaxThumbnails = 0
	}
	return &VideoProcessor{
		inspector: inspector,
		extractor: extractor,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// WithMaxThumbnails returns a copy of p that extracts at most limit
// thumbnails. A limit of 0 skips thumbnail extraction.
func (p *VideoProcessor) WithMaxThumbnails(limit int) *VideoProcessor {
	clone := *p
	clone.opts.MaxThumbnails = max(limit, 0)
	return &clone
}

// ThumbnailCount returns roughly one thumbnail per minute of video, capped at limit.
func ThumbnailCount(durationSeconds float64, limit int) int {
	if durationSeconds <= 0 || limit <= 0 {
		return 0
	}
	return min(limit, int(math.Floor(durationSeconds/60)))
}

// AudioFileName returns the audio file name used for episodeID.
func AudioFileName(episodeID, format string) string {
	format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if format == "" {
		format = "wav"
	}
	return sanitizeID(episodeID) + "_audio." + format
}

type run struct {
	input     string
	outputDir string
	episodeID string
	result    Result
}

// ProcessVideo inspects inputPath, extracts audio into outputDir, then
// extracts thumbnails into outputDir/thumbnails. The first failing stage ends
// the run with a *ProcessingError.
func (p *VideoProcessor) ProcessVideo(ctx context.Context, inputPath, outputDir, episodeID string) (Result, error) {
	if p.inspector == nil || p.extractor == nil {
		return Result{}, &ProcessingError{Stage: StageVideoInfo, Err: services.Wrap(services.ErrConfiguration, StageVideoInfo, "init", "processor missing inspector or extractor", nil)}
	}
	ctx = services.WithEpisodeID(ctx, episodeID)
	r := &run{input: inputPath, outputDir: outputDir, episodeID: episodeID}

	state := StateInspecting
	for !state.Terminal() {
		stage := state.Stage()
		stageCtx := services.WithStage(ctx, stage)
		logger := logging.WithContext(stageCtx, p.logger)
		logger.Debug("stage started", logging.Event("stage_start"))

		started := time.Now()
		err := ctx.Err()
		if err == nil {
			err = p.step(stageCtx, state, r)
		}
		next := Next(state, err)
		elapsed := time.Since(started)
		if p.opts.Observer != nil {
			p.opts.Observer(Transition{From: state, To: next, Err: err, Elapsed: elapsed})
		}
		if err != nil {
			logger.Error("stage failed",
				logging.Event("stage_failure"),
				logging.Elapsed(elapsed),
				logging.Error(err),
			)
			return Result{}, &ProcessingError{Stage: stage, Err: err}
		}
		logger.Info("stage completed",
			logging.Event("stage_complete"),
			logging.Elapsed(elapsed),
		)
		state = next
	}
	return r.result, nil
}

func (p *VideoProcessor) step(ctx context.Context, state State, r *run) error {
	switch state {
	case StateInspecting:
		desc, err := p.inspector.Inspect(ctx, r.input)
		if err != nil {
			return err
		}
		r.result.Video = desc
		return nil
	case StateExtractingAudio:
		output := filepath.Join(r.outputDir, AudioFileName(r.episodeID, p.opts.Audio.Format))
		path, err := p.extractor.ExtractAudio(ctx, r.input, output, p.opts.Audio)
		if err != nil {
			return err
		}
		r.result.AudioPath = path
		return nil
	case StateExtractingThumbnails:
		return p.extractThumbnails(ctx, r)
	default:
		return fmt.Errorf("no work defined for state %q", state)
	}
}

func (p *VideoProcessor) extractThumbnails(ctx context.Context, r *run) error {
	count := ThumbnailCount(r.result.Video.DurationSeconds, p.opts.MaxThumbnails)
	timestamps := extract.ThumbnailTimestamps(r.result.Video.DurationSeconds, count)
	paths, err := p.extractor.ExtractThumbnailsForDuration(ctx, r.input, r.outputDir, r.result.Video.DurationSeconds, count, p.opts.Thumbnails)
	var partial *extract.PartialError
	if errors.As(err, &partial) && paths != nil {
		r.result.ThumbnailPaths = paths
		r.result.ThumbnailTimestamps = survivingTimestamps(timestamps, partial.Failures)
		r.result.ThumbnailFailures = partial.Failures
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "continuing with partial thumbnails", "thumbnail_partial",
			logging.Int("extracted", len(paths)),
			logging.Int("failed", len(partial.Failures)),
			logging.String(logging.FieldErrorHint, "reprocess the episode to retry the missing frames"),
			logging.String(logging.FieldImpact, "episode has fewer previews"),
		)
		return nil
	}
	if err != nil {
		return err
	}
	if paths == nil {
		paths = []string{}
	}
	if timestamps == nil {
		timestamps = []float64{}
	}
	r.result.ThumbnailPaths = paths
	r.result.ThumbnailTimestamps = timestamps[:min(len(timestamps), len(paths))]
	return nil
}

// survivingTimestamps drops the 1-based failure indices from timestamps.
func survivingTimestamps(timestamps []float64, failures []extract.ThumbnailFailure) []float64 {
	failed := make(map[int]bool, len(failures))
	for _, failure := range failures {
		failed[failure.Index] = true
	}
	out := make([]float64, 0, len(timestamps))
	for i, ts := range timestamps {
		if !failed[i+1] {
			out = append(out, ts)
		}
	}
	return out
}

func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "episode"
	}
	return out
}
