package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"episodedb/internal/services"
)

// Stages tag where in the media toolchain a failure happened.
const (
	StageInspect             = "inspect"
	StageAudioExtraction     = "audio-extraction"
	StageThumbnailGeneration = "thumbnail-generation"
	StageThumbnailExtraction = "thumbnail-extraction"
	StageClipCreation        = "clip-creation"
	StageValidation          = "validation"
)

// Reasons narrow a stage failure down for callers deciding on retries.
const (
	ReasonNoVideoStream      = "no-video-stream"
	ReasonParseFailure       = "parse-failure"
	ReasonTimeout            = "timeout"
	ReasonNonzeroExit        = "nonzero-exit"
	ReasonCommandUnavailable = "command-unavailable"
	ReasonInvalidInput       = "invalid-input"
)

// MediaError reports an inspection or extraction failure.
type MediaError struct {
	Stage  string
	Reason string
	Op     string
	Err    error
}

func (e *MediaError) Error() string {
	parts := []string{"media " + e.Stage}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	msg := strings.Join(parts, ": ")
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the service marker matching the reason and the cause.
func (e *MediaError) Unwrap() []error {
	errs := []error{e.marker()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *MediaError) marker() error {
	switch e.Reason {
	case ReasonTimeout:
		return services.ErrTimeout
	case ReasonNoVideoStream, ReasonParseFailure, ReasonInvalidInput:
		return services.ErrValidation
	case ReasonCommandUnavailable:
		return services.ErrConfiguration
	default:
		return services.ErrExternalTool
	}
}

// NewError builds a MediaError.
func NewError(stage, reason, op string, err error) *MediaError {
	return &MediaError{Stage: stage, Reason: reason, Op: op, Err: err}
}

// IsReason reports whether err carries a MediaError with the given reason.
func IsReason(err error, reason string) bool {
	var mediaErr *MediaError
	if !errors.As(err, &mediaErr) {
		return false
	}
	return mediaErr.Reason == reason
}

// CheckResult converts a runner outcome into a MediaError for the given stage.
// It returns nil when the command ran and exited zero.
func CheckResult(stage, op string, result CommandResult, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, ErrCommandTimeout), errors.Is(err, context.DeadlineExceeded):
			return NewError(stage, ReasonTimeout, op, err)
		case errors.Is(err, ErrCommandUnavailable):
			return NewError(stage, ReasonCommandUnavailable, op, err)
		default:
			return NewError(stage, "", op, err)
		}
	}
	if result.ExitCode != 0 {
		detail := lastLine(result.Stderr)
		if detail == "" {
			return NewError(stage, ReasonNonzeroExit, op, fmt.Errorf("exit status %d", result.ExitCode))
		}
		return NewError(stage, ReasonNonzeroExit, op, fmt.Errorf("exit status %d: %s", result.ExitCode, detail))
	}
	return nil
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
