package extract_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"episodedb/internal/media"
	"episodedb/internal/media/extract"
	"episodedb/internal/media/ffprobe"
	"episodedb/internal/services"
	"episodedb/internal/testsupport"
)

func newExtractor(runner *testsupport.FakeRunner) *extract.Extractor {
	inspector := ffprobe.NewInspector(runner, "ffprobe", time.Second)
	return extract.New(runner, "ffmpeg", inspector, nil)
}

func TestThumbnailTimestamps(t *testing.T) {
	got := extract.ThumbnailTimestamps(600, 5)
	want := []float64{100, 200, 300, 400, 500}
	if !slices.Equal(got, want) {
		t.Fatalf("ThumbnailTimestamps(600, 5) = %v, want %v", got, want)
	}
	for _, ts := range extract.ThumbnailTimestamps(95, 7) {
		if ts <= 0 || ts >= 95 {
			t.Fatalf("timestamp %v outside (0, 95)", ts)
		}
	}
	if got := extract.ThumbnailTimestamps(0, 5); len(got) != 0 {
		t.Fatalf("expected no timestamps for zero duration, got %v", got)
	}
	if got := extract.ThumbnailTimestamps(600, 0); len(got) != 0 {
		t.Fatalf("expected no timestamps for zero count, got %v", got)
	}
}

func TestExtractAudioBuildsCommand(t *testing.T) {
	runner := &testsupport.FakeRunner{TouchOutputs: true}
	extractor := newExtractor(runner)
	output := filepath.Join(t.TempDir(), "nested", "ep_audio.wav")

	path, err := extractor.ExtractAudio(context.Background(), "/videos/ep.mkv", output, extract.DefaultAudioOptions())
	if err != nil {
		t.Fatalf("ExtractAudio returned error: %v", err)
	}
	if path != output {
		t.Fatalf("unexpected path %q", path)
	}
	calls := runner.CallsFor("ffmpeg")
	if len(calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(calls))
	}
	call := calls[0]
	if call.FlagValue("-i") != "/videos/ep.mkv" || call.Output() != output {
		t.Fatalf("unexpected input/output in %v", call.Args)
	}
	if !call.HasFlag("-vn") || call.FlagValue("-acodec") != "pcm_s16le" {
		t.Fatalf("expected pcm audio without video, got %v", call.Args)
	}
	if call.FlagValue("-ar") != "16000" || call.FlagValue("-ac") != "1" {
		t.Fatalf("expected 16kHz mono, got %v", call.Args)
	}
	if call.HasFlag("-b:a") {
		t.Fatalf("expected no bitrate for pcm output, got %v", call.Args)
	}
	if call.Timeout != 5*time.Minute {
		t.Fatalf("expected 5 minute timeout, got %s", call.Timeout)
	}
}

func TestExtractAudioMP3AppliesBitrate(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	opts := extract.DefaultAudioOptions()
	opts.Format = "mp3"
	opts.Channels = 2
	if _, err := newExtractor(runner).ExtractAudio(context.Background(), "/v.mp4", filepath.Join(t.TempDir(), "a.mp3"), opts); err != nil {
		t.Fatalf("ExtractAudio returned error: %v", err)
	}
	call := runner.Calls()[0]
	if call.FlagValue("-acodec") != "libmp3lame" || call.FlagValue("-b:a") != "128k" || call.FlagValue("-ac") != "2" {
		t.Fatalf("unexpected mp3 args %v", call.Args)
	}
}

func TestExtractAudioTimeoutIsMediaError(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: func(testsupport.RunnerCall) (media.CommandResult, error) {
		return media.CommandResult{}, media.ErrCommandTimeout
	}}
	_, err := newExtractor(runner).ExtractAudio(context.Background(), "/v.mp4", filepath.Join(t.TempDir(), "a.wav"), extract.AudioOptions{})
	var mediaErr *media.MediaError
	if !errors.As(err, &mediaErr) {
		t.Fatalf("expected MediaError, got %v", err)
	}
	if mediaErr.Stage != media.StageAudioExtraction || mediaErr.Reason != media.ReasonTimeout {
		t.Fatalf("unexpected stage/reason %q/%q", mediaErr.Stage, mediaErr.Reason)
	}
	if !services.IsRetryable(err) {
		t.Fatal("expected timeout to be retryable")
	}
}

func TestExtractThumbnailsOrderedAndBounded(t *testing.T) {
	var inFlight, peak atomic.Int32
	runner := &testsupport.FakeRunner{Handler: func(call testsupport.RunnerCall) (media.CommandResult, error) {
		if call.Name == "ffprobe" {
			return media.CommandResult{Stdout: testsupport.ProbeOutput(600, 1280, 720)}, nil
		}
		current := inFlight.Add(1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return media.CommandResult{}, nil
	}}
	outputDir := t.TempDir()

	paths, err := newExtractor(runner).ExtractThumbnails(context.Background(), "/videos/ep.mkv", outputDir, 5, extract.DefaultThumbnailOptions())
	if err != nil {
		t.Fatalf("ExtractThumbnails returned error: %v", err)
	}
	if len(paths) != 5 {
		t.Fatalf("expected 5 paths, got %d", len(paths))
	}
	for i, path := range paths {
		want := filepath.Join(outputDir, "thumbnails", []string{"thumbnail_001.jpg", "thumbnail_002.jpg", "thumbnail_003.jpg", "thumbnail_004.jpg", "thumbnail_005.jpg"}[i])
		if path != want {
			t.Fatalf("path %d = %q, want %q", i, path, want)
		}
	}
	if peak.Load() > 3 {
		t.Fatalf("expected at most 3 concurrent commands, saw %d", peak.Load())
	}

	seen := map[string]string{}
	for _, call := range runner.CallsFor("ffmpeg") {
		seen[call.Output()] = call.FlagValue("-ss")
		if call.FlagValue("-s") != "320x180" || call.FlagValue("-vframes") != "1" {
			t.Fatalf("unexpected thumbnail args %v", call.Args)
		}
	}
	if seen[paths[0]] != "100.000" || seen[paths[4]] != "500.000" {
		t.Fatalf("unexpected timestamp mapping %v", seen)
	}
	if len(runner.CallsFor("ffprobe")) != 1 {
		t.Fatalf("expected a single inspection call")
	}
}

func TestExtractThumbnailsZeroCountRunsNothing(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: testsupport.MediaHandler(600)}
	extractor := newExtractor(runner)
	paths, err := extractor.ExtractThumbnails(context.Background(), "/v.mkv", t.TempDir(), 0, extract.ThumbnailOptions{})
	if err != nil || len(paths) != 0 {
		t.Fatalf("expected empty result, got %v, %v", paths, err)
	}
	paths, err = extractor.ExtractThumbnailsForDuration(context.Background(), "/v.mkv", t.TempDir(), 0, 4, extract.ThumbnailOptions{})
	if err != nil || len(paths) != 0 {
		t.Fatalf("expected empty result for zero duration, got %v, %v", paths, err)
	}
	if len(runner.Calls()) != 0 {
		t.Fatalf("expected no commands, got %d", len(runner.Calls()))
	}
}

func failSecondFrame(call testsupport.RunnerCall) (media.CommandResult, error) {
	if filepath.Base(call.Output()) == "thumbnail_002.jpg" {
		return media.CommandResult{ExitCode: 1, Stderr: []byte("decode error")}, nil
	}
	return media.CommandResult{}, nil
}

func TestExtractThumbnailsAbortPolicy(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: failSecondFrame}
	paths, err := newExtractor(runner).ExtractThumbnailsForDuration(context.Background(), "/v.mkv", t.TempDir(), 300, 3, extract.DefaultThumbnailOptions())
	if err == nil {
		t.Fatal("expected failure")
	}
	if paths != nil {
		t.Fatalf("expected no paths under abort policy, got %v", paths)
	}
	if !media.IsReason(err, media.ReasonNonzeroExit) {
		t.Fatalf("expected nonzero-exit reason, got %v", err)
	}
	var mediaErr *media.MediaError
	if errors.As(err, &mediaErr) && mediaErr.Stage != media.StageThumbnailGeneration {
		t.Fatalf("unexpected stage %q", mediaErr.Stage)
	}
}

func TestExtractThumbnailsPartialPolicy(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: failSecondFrame}
	opts := extract.DefaultThumbnailOptions()
	opts.Policy = extract.PolicyPartial
	outputDir := t.TempDir()

	paths, err := newExtractor(runner).ExtractThumbnailsForDuration(context.Background(), "/v.mkv", outputDir, 300, 3, opts)
	var partial *extract.PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialError, got %v", err)
	}
	if len(partial.Failures) != 1 || partial.Failures[0].Index != 2 || partial.Failures[0].Timestamp != 150 {
		t.Fatalf("unexpected failures %+v", partial.Failures)
	}
	want := []string{
		filepath.Join(outputDir, "thumbnails", "thumbnail_001.jpg"),
		filepath.Join(outputDir, "thumbnails", "thumbnail_003.jpg"),
	}
	if !slices.Equal(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected per-frame cause reachable, got %v", err)
	}
}

func TestExtractThumbnailsInspectionFailure(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: func(testsupport.RunnerCall) (media.CommandResult, error) {
		return media.CommandResult{Stdout: []byte(`{"streams":[],"format":{}}`)}, nil
	}}
	_, err := newExtractor(runner).ExtractThumbnails(context.Background(), "/audio-only.m4a", t.TempDir(), 3, extract.ThumbnailOptions{})
	if !media.IsReason(err, media.ReasonNoVideoStream) {
		t.Fatalf("expected no-video-stream, got %v", err)
	}
	if len(runner.CallsFor("ffmpeg")) != 0 {
		t.Fatal("expected no extraction after failed inspection")
	}
}

func TestExtractThumbnailAtAndWidthOnlyScale(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	output := filepath.Join(t.TempDir(), "still.png")
	opts := extract.ThumbnailOptions{Width: 640, Format: "png", Quality: 100}
	if _, err := newExtractor(runner).ExtractThumbnailAt(context.Background(), "/v.mkv", output, 12.5, opts); err != nil {
		t.Fatalf("ExtractThumbnailAt returned error: %v", err)
	}
	call := runner.Calls()[0]
	if call.FlagValue("-ss") != "12.500" || call.FlagValue("-vf") != "scale=640:-1" || call.FlagValue("-q:v") != "2" {
		t.Fatalf("unexpected args %v", call.Args)
	}

	_, err := newExtractor(runner).ExtractThumbnailAt(context.Background(), "/v.mkv", output, -1, opts)
	if !media.IsReason(err, media.ReasonInvalidInput) {
		t.Fatalf("expected invalid input for negative timestamp, got %v", err)
	}
}

func TestCreateClip(t *testing.T) {
	runner := &testsupport.FakeRunner{}
	extractor := newExtractor(runner)
	output := filepath.Join(t.TempDir(), "clip.mp4")

	if _, err := extractor.CreateClip(context.Background(), "/v.mkv", output, 30, 15, extract.DefaultClipOptions()); err != nil {
		t.Fatalf("CreateClip returned error: %v", err)
	}
	call := runner.Calls()[0]
	if call.FlagValue("-ss") != "30.000" || call.FlagValue("-t") != "15.000" || call.FlagValue("-c") != "copy" {
		t.Fatalf("unexpected copy clip args %v", call.Args)
	}
	if call.Timeout != 3*time.Minute {
		t.Fatalf("unexpected clip timeout %s", call.Timeout)
	}

	if _, err := extractor.CreateClip(context.Background(), "/v.mkv", output, 0, 10, extract.ClipOptions{Width: 640, Height: 360}); err != nil {
		t.Fatalf("CreateClip returned error: %v", err)
	}
	scaled := runner.Calls()[1]
	if scaled.FlagValue("-vf") != "scale=640:360" || scaled.FlagValue("-c:a") != "copy" || scaled.HasFlag("-c") {
		t.Fatalf("unexpected scaled clip args %v", scaled.Args)
	}

	if _, err := extractor.CreateClip(context.Background(), "/v.mkv", output, 0, 0, extract.ClipOptions{}); !media.IsReason(err, media.ReasonInvalidInput) {
		t.Fatalf("expected invalid range error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	runner := &testsupport.FakeRunner{Handler: testsupport.MediaHandler(120)}
	desc, err := newExtractor(runner).Validate(context.Background(), "/v.mkv")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if desc.DurationSeconds != 120 {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
	if calls := runner.CallsFor("ffmpeg"); len(calls) != 1 || calls[0].Args[0] != "-version" {
		t.Fatalf("expected ffmpeg -version check, got %v", calls)
	}

	missing := &testsupport.FakeRunner{Handler: func(call testsupport.RunnerCall) (media.CommandResult, error) {
		return media.CommandResult{}, media.ErrCommandUnavailable
	}}
	_, err = newExtractor(missing).Validate(context.Background(), "/v.mkv")
	var mediaErr *media.MediaError
	if !errors.As(err, &mediaErr) || mediaErr.Stage != media.StageValidation || mediaErr.Reason != media.ReasonCommandUnavailable {
		t.Fatalf("expected validation/command-unavailable, got %v", err)
	}
}
