// Package pipeline sequences inspection, audio extraction, and thumbnail
// extraction for a single episode.
//
// The run is modelled as a small state machine (Inspecting, ExtractingAudio,
// ExtractingThumbnails, Done, Failed). Next is a pure transition function so
// stage ordering can be tested without running any commands. A failing stage
// stops the run and is reported as a ProcessingError tagged with the stage.
// Files written by earlier stages are left in place.
package pipeline
