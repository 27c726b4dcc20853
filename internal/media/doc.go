// Package media holds the pieces shared by the inspection and extraction
// packages: the CommandRunner abstraction over external transcoder binaries
// and the MediaError type that tags failures with a stage and reason.
//
// Subpackages:
//   - ffprobe: inspection and VideoDescriptor parsing
//   - extract: audio, thumbnail, and clip extraction through ffmpeg
package media
