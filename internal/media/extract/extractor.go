package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	"episodedb/internal/logging"
	"episodedb/internal/media"
	"episodedb/internal/media/ffprobe"
)

const versionTimeout = 10 * time.Second

// Inspector supplies source durations for thumbnail spacing.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.VideoDescriptor, error)
}

// Extractor issues ffmpeg commands through a CommandRunner.
type Extractor struct {
	runner    media.CommandRunner
	binary    string
	inspector Inspector
	logger    *slog.Logger
}

// New constructs an Extractor. An empty binary falls back to "ffmpeg".
func New(runner media.CommandRunner, binary string, inspector Inspector, logger *slog.Logger) *Extractor {
	if runner == nil {
		runner = media.ExecRunner{}
	}
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		runner:    runner,
		binary:    binary,
		inspector: inspector,
		logger:    logging.NewComponentLogger(logger, "extract"),
	}
}

// ExtractAudio writes a transcription-ready audio track to output.
func (e *Extractor) ExtractAudio(ctx context.Context, input, output string, opts AudioOptions) (string, error) {
	opts = opts.withDefaults()
	if err := checkPaths(media.StageAudioExtraction, input, output); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", media.NewError(media.StageAudioExtraction, "", "create output directory", err)
	}

	kwargs := ffmpeg.KwArgs{
		"vn":     "",
		"acodec": opts.codec(),
		"ar":     strconv.Itoa(opts.SampleRate),
		"ac":     strconv.Itoa(opts.Channels),
	}
	if opts.Format == "mp3" && strings.TrimSpace(opts.Bitrate) != "" {
		kwargs["b:a"] = strings.TrimSpace(opts.Bitrate)
	}
	args := ffmpeg.Input(input).Output(output, kwargs).OverWriteOutput().GetArgs()

	start := time.Now()
	result, err := e.runner.Run(ctx, e.binary, args, opts.Timeout)
	if err := media.CheckResult(media.StageAudioExtraction, e.binary, result, err); err != nil {
		return "", err
	}
	logging.WithContext(ctx, e.logger).Debug("audio extracted",
		logging.String("output", output),
		logging.String("codec", opts.codec()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return output, nil
}

// ThumbnailTimestamps returns count evenly spaced timestamps strictly inside
// (0, duration). Non-positive duration or count yields nil.
func ThumbnailTimestamps(duration float64, count int) []float64 {
	if duration <= 0 || count <= 0 {
		return nil
	}
	interval := duration / float64(count+1)
	timestamps := make([]float64, count)
	for i := 1; i <= count; i++ {
		timestamps[i-1] = interval * float64(i)
	}
	return timestamps
}

// ExtractThumbnails inspects input for its duration and extracts count frames
// into outputDir/thumbnails.
func (e *Extractor) ExtractThumbnails(ctx context.Context, input, outputDir string, count int, opts ThumbnailOptions) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	if e.inspector == nil {
		return nil, media.NewError(media.StageThumbnailGeneration, media.ReasonCommandUnavailable, "inspect", errors.New("no inspector configured"))
	}
	desc, err := e.inspector.Inspect(ctx, input)
	if err != nil {
		reason := ""
		var mediaErr *media.MediaError
		if errors.As(err, &mediaErr) {
			reason = mediaErr.Reason
		}
		return nil, media.NewError(media.StageThumbnailGeneration, reason, "inspect", err)
	}
	return e.ExtractThumbnailsForDuration(ctx, input, outputDir, desc.DurationSeconds, count, opts)
}

// ExtractThumbnailsForDuration extracts count frames using a known duration.
// Returned paths follow timestamp order. Under the abort policy any failure
// returns no paths; under the partial policy successful paths are returned
// with a *PartialError naming the failed indices.
func (e *Extractor) ExtractThumbnailsForDuration(ctx context.Context, input, outputDir string, duration float64, count int, opts ThumbnailOptions) ([]string, error) {
	timestamps := ThumbnailTimestamps(duration, count)
	if len(timestamps) == 0 {
		return []string{}, nil
	}
	opts = opts.withDefaults()
	if strings.TrimSpace(input) == "" {
		return nil, media.NewError(media.StageThumbnailGeneration, media.ReasonInvalidInput, "input", errors.New("empty input path"))
	}
	dir := filepath.Join(outputDir, "thumbnails")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, media.NewError(media.StageThumbnailGeneration, "", "create output directory", err)
	}

	paths := make([]string, len(timestamps))
	for i := range timestamps {
		paths[i] = filepath.Join(dir, fmt.Sprintf("thumbnail_%03d.%s", i+1, opts.Format))
	}

	start := time.Now()
	var (
		out []string
		err error
	)
	if opts.Policy == PolicyPartial {
		out, err = e.extractPartial(ctx, input, paths, timestamps, opts)
	} else {
		out, err = e.extractAll(ctx, input, paths, timestamps, opts)
	}
	logger := logging.WithContext(ctx, e.logger)
	if err != nil && out == nil {
		return nil, err
	}
	logger.Debug("thumbnails extracted",
		logging.Int("requested", len(timestamps)),
		logging.Int("extracted", len(out)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return out, err
}

func (e *Extractor) extractAll(ctx context.Context, input string, paths []string, timestamps []float64, opts ThumbnailOptions) ([]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range timestamps {
		g.Go(func() error {
			return e.extractFrame(gctx, media.StageThumbnailGeneration, input, paths[i], timestamps[i], opts)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (e *Extractor) extractPartial(ctx context.Context, input string, paths []string, timestamps []float64, opts ThumbnailOptions) ([]string, error) {
	errs := make([]error, len(timestamps))
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i := range timestamps {
		g.Go(func() error {
			errs[i] = e.extractFrame(ctx, media.StageThumbnailGeneration, input, paths[i], timestamps[i], opts)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	var failures []ThumbnailFailure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, ThumbnailFailure{Index: i + 1, Timestamp: timestamps[i], Err: err})
			continue
		}
		out = append(out, paths[i])
	}
	if len(failures) == 0 {
		return out, nil
	}
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "thumbnail extraction incomplete", "thumbnail_partial",
		logging.Int("failed", len(failures)),
		logging.Int("requested", len(timestamps)),
		logging.String(logging.FieldErrorHint, "inspect the source near the failed timestamps"),
		logging.String(logging.FieldImpact, "fewer previews for this episode"),
	)
	return out, &PartialError{Requested: len(timestamps), Failures: failures}
}

// ExtractThumbnailAt writes a single frame taken at seconds into output.
func (e *Extractor) ExtractThumbnailAt(ctx context.Context, input, output string, seconds float64, opts ThumbnailOptions) (string, error) {
	opts = opts.withDefaults()
	if err := checkPaths(media.StageThumbnailExtraction, input, output); err != nil {
		return "", err
	}
	if seconds < 0 {
		return "", media.NewError(media.StageThumbnailExtraction, media.ReasonInvalidInput, "timestamp", fmt.Errorf("negative timestamp %v", seconds))
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", media.NewError(media.StageThumbnailExtraction, "", "create output directory", err)
	}
	if err := e.extractFrame(ctx, media.StageThumbnailExtraction, input, output, seconds, opts); err != nil {
		return "", err
	}
	return output, nil
}

func (e *Extractor) extractFrame(ctx context.Context, stage, input, output string, seconds float64, opts ThumbnailOptions) error {
	kwargs := ffmpeg.KwArgs{
		"vframes": "1",
		"f":       "image2",
		"q:v":     strconv.Itoa(opts.qscale()),
	}
	switch {
	case opts.Width > 0 && opts.Height > 0:
		kwargs["s"] = fmt.Sprintf("%dx%d", opts.Width, opts.Height)
	case opts.Width > 0:
		kwargs["vf"] = fmt.Sprintf("scale=%d:-1", opts.Width)
	}
	args := ffmpeg.Input(input, ffmpeg.KwArgs{"ss": formatSeconds(seconds)}).
		Output(output, kwargs).
		OverWriteOutput().
		GetArgs()

	result, err := e.runner.Run(ctx, e.binary, args, opts.Timeout)
	if err := media.CheckResult(stage, fmt.Sprintf("%s at %ss", e.binary, formatSeconds(seconds)), result, err); err != nil {
		return err
	}
	return nil
}

// CreateClip cuts duration seconds starting at start into output. Streams are
// copied unless a target size is requested.
func (e *Extractor) CreateClip(ctx context.Context, input, output string, start, duration float64, opts ClipOptions) (string, error) {
	if err := checkPaths(media.StageClipCreation, input, output); err != nil {
		return "", err
	}
	if start < 0 || duration <= 0 {
		return "", media.NewError(media.StageClipCreation, media.ReasonInvalidInput, "range", fmt.Errorf("invalid clip range start=%v duration=%v", start, duration))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultClipTimeout
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", media.NewError(media.StageClipCreation, "", "create output directory", err)
	}

	kwargs := ffmpeg.KwArgs{"t": formatSeconds(duration)}
	if opts.Width > 0 && opts.Height > 0 {
		kwargs["vf"] = fmt.Sprintf("scale=%d:%d", opts.Width, opts.Height)
		kwargs["c:a"] = "copy"
	} else {
		kwargs["c"] = "copy"
	}
	args := ffmpeg.Input(input, ffmpeg.KwArgs{"ss": formatSeconds(start)}).
		Output(output, kwargs).
		OverWriteOutput().
		GetArgs()

	result, err := e.runner.Run(ctx, e.binary, args, opts.Timeout)
	if err := media.CheckResult(media.StageClipCreation, e.binary, result, err); err != nil {
		return "", err
	}
	return output, nil
}

// Available reports whether the ffmpeg binary runs.
func (e *Extractor) Available(ctx context.Context) error {
	result, err := e.runner.Run(ctx, e.binary, []string{"-version"}, versionTimeout)
	return media.CheckResult(media.StageValidation, e.binary+" -version", result, err)
}

// Validate confirms ffmpeg is available and that path is a video with a
// positive duration and known dimensions.
func (e *Extractor) Validate(ctx context.Context, path string) (ffprobe.VideoDescriptor, error) {
	if err := e.Available(ctx); err != nil {
		return ffprobe.VideoDescriptor{}, err
	}
	if e.inspector == nil {
		return ffprobe.VideoDescriptor{}, media.NewError(media.StageValidation, media.ReasonCommandUnavailable, "inspect", errors.New("no inspector configured"))
	}
	desc, err := e.inspector.Inspect(ctx, path)
	if err != nil {
		reason := ""
		var mediaErr *media.MediaError
		if errors.As(err, &mediaErr) {
			reason = mediaErr.Reason
		}
		return ffprobe.VideoDescriptor{}, media.NewError(media.StageValidation, reason, "inspect", err)
	}
	if desc.DurationSeconds <= 0 {
		return desc, media.NewError(media.StageValidation, media.ReasonInvalidInput, "duration", errors.New("video has no duration"))
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return desc, media.NewError(media.StageValidation, media.ReasonInvalidInput, "dimensions", errors.New("video has no dimensions"))
	}
	return desc, nil
}

func checkPaths(stage, input, output string) error {
	if strings.TrimSpace(input) == "" {
		return media.NewError(stage, media.ReasonInvalidInput, "input", errors.New("empty input path"))
	}
	if strings.TrimSpace(output) == "" {
		return media.NewError(stage, media.ReasonInvalidInput, "output", errors.New("empty output path"))
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
