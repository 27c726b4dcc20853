package media_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"episodedb/internal/media"
	"episodedb/internal/services"
)

func TestExecRunnerCapturesOutputAndExitCode(t *testing.T) {
	result, err := media.ExecRunner{}.Run(context.Background(), "sh", []string{"-c", "echo out; echo err >&2; exit 3"}, 5*time.Second)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
	if strings.TrimSpace(string(result.Stdout)) != "out" || strings.TrimSpace(string(result.Stderr)) != "err" {
		t.Fatalf("unexpected output stdout=%q stderr=%q", result.Stdout, result.Stderr)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	_, err := media.ExecRunner{}.Run(context.Background(), "sleep", []string{"5"}, 50*time.Millisecond)
	if !errors.Is(err, media.ErrCommandTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestExecRunnerCallerDeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := media.ExecRunner{}.Run(ctx, "sleep", []string{"5"}, time.Minute)
	if !errors.Is(err, media.ErrCommandTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout wrapping the deadline, got %v", err)
	}
	checked := media.CheckResult(media.StageThumbnailExtraction, "ffmpeg", media.CommandResult{}, err)
	if !media.IsReason(checked, media.ReasonTimeout) || !errors.Is(checked, services.ErrTimeout) {
		t.Fatalf("expected timeout MediaError, got %v", checked)
	}
}

func TestExecRunnerCancellationStaysCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := media.ExecRunner{}.Run(ctx, "sleep", []string{"5"}, time.Minute)
	if !errors.Is(err, context.Canceled) || errors.Is(err, media.ErrCommandTimeout) {
		t.Fatalf("expected plain cancellation, got %v", err)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := media.ExecRunner{}.Run(context.Background(), "episodedb-definitely-missing-binary", nil, time.Second)
	if !errors.Is(err, media.ErrCommandUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestCheckResultClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		result    media.CommandResult
		err       error
		reason    string
		marker    error
		retryable bool
	}{
		{"timeout", media.CommandResult{}, media.ErrCommandTimeout, media.ReasonTimeout, services.ErrTimeout, true},
		{"missing", media.CommandResult{}, media.ErrCommandUnavailable, media.ReasonCommandUnavailable, services.ErrConfiguration, false},
		{"exit", media.CommandResult{ExitCode: 1, Stderr: []byte("line one\nInvalid data found\n")}, nil, media.ReasonNonzeroExit, services.ErrExternalTool, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := media.CheckResult(media.StageAudioExtraction, "ffmpeg", tc.result, tc.err)
			if err == nil {
				t.Fatal("expected error")
			}
			if !media.IsReason(err, tc.reason) {
				t.Fatalf("expected reason %q, got %v", tc.reason, err)
			}
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected marker %v in %v", tc.marker, err)
			}
			if services.IsRetryable(err) != tc.retryable {
				t.Fatalf("unexpected retryable=%v for %v", !tc.retryable, err)
			}
			if !strings.Contains(err.Error(), "media audio-extraction") {
				t.Fatalf("expected stage in message, got %q", err.Error())
			}
		})
	}

	if err := media.CheckResult(media.StageInspect, "ffprobe", media.CommandResult{}, nil); err != nil {
		t.Fatalf("expected nil for clean exit, got %v", err)
	}
	err := media.CheckResult(media.StageInspect, "ffprobe", media.CommandResult{ExitCode: 1, Stderr: []byte("line one\nInvalid data found\n")}, nil)
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected last stderr line in message, got %q", err.Error())
	}
}
