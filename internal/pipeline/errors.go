package pipeline

import (
	"errors"
	"fmt"
)

// Stage tags carried by ProcessingError.
const (
	StageVideoInfo           = "video_info"
	StageAudioExtraction     = "audio_extraction"
	StageThumbnailGeneration = "thumbnail_generation"
	StageTranscription       = "transcription"
	StageEmbeddingCreation   = "embedding_creation"
)

// ProcessingError wraps a stage failure of episode processing.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("processing failed at %s", e.Stage)
	}
	return fmt.Sprintf("processing failed at %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Wrap tags err with stage. It returns nil for a nil err and leaves an
// existing ProcessingError untouched.
func Wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	var existing *ProcessingError
	if errors.As(err, &existing) {
		return err
	}
	return &ProcessingError{Stage: stage, Err: err}
}

// StageOf returns the stage tag of the first ProcessingError in err's chain.
func StageOf(err error) string {
	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return procErr.Stage
	}
	return ""
}
