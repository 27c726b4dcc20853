// Package workflow processes catalog episodes end to end.
//
// Runner.Process takes a per-episode file lock, runs the video pipeline
// (inspect, audio, thumbnails), stores the descriptor and published
// thumbnails, then transcribes the audio, segments the transcript, embeds the
// segments and stores them. Each phase has a status column on the episode;
// the phase that fails is marked failed with the error message and phases
// that never ran return to pending. Partial output on disk is kept.
//
// Runs are synchronous. Callers that want parallelism across episodes bound
// it themselves.
package workflow
