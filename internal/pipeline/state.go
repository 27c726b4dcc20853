package pipeline

import "time"

// State is a step of a video processing run.
type State string

const (
	StateInspecting           State = "inspecting"
	StateExtractingAudio      State = "extracting_audio"
	StateExtractingThumbnails State = "extracting_thumbnails"
	StateDone                 State = "done"
	StateFailed               State = "failed"
)

// Stage returns the error tag for work performed in s, or "" for terminal states.
func (s State) Stage() string {
	switch s {
	case StateInspecting:
		return StageVideoInfo
	case StateExtractingAudio:
		return StageAudioExtraction
	case StateExtractingThumbnails:
		return StageThumbnailGeneration
	default:
		return ""
	}
}

// Terminal reports whether no further work follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Next returns the state following current given the outcome of its work.
// Terminal states are absorbing.
func Next(current State, err error) State {
	if current.Terminal() {
		return current
	}
	if err != nil {
		return StateFailed
	}
	switch current {
	case StateInspecting:
		return StateExtractingAudio
	case StateExtractingAudio:
		return StateExtractingThumbnails
	case StateExtractingThumbnails:
		return StateDone
	default:
		return StateFailed
	}
}

// Transition describes one state change observed during a run.
type Transition struct {
	From    State
	To      State
	Err     error
	Elapsed time.Duration
}

// Observer receives every transition of a run, in order.
type Observer func(Transition)
