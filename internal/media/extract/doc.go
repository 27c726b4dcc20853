// Package extract produces transcription audio, preview thumbnails, and clips
// from a source video by issuing ffmpeg commands through a media.CommandRunner.
//
// Argument lists are assembled with ffmpeg-go and executed by the injected
// runner so tests can script outcomes. Every command carries an explicit
// timeout; expiry surfaces as a media.MediaError with the timeout reason.
//
// Thumbnails are taken at evenly spaced timestamps D/(C+1)*i, never at the
// first or last frame, and run with bounded concurrency. Results always follow
// timestamp order. The failure policy decides whether one failed frame fails
// the batch (abort) or is reported alongside the successes (partial).
package extract
