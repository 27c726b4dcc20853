// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//   - VideoDescriptor: the normalized view handed to the extraction pipeline
//
// Primary entry points:
//   - Inspector.Inspect: runs ffprobe through a media.CommandRunner and returns a VideoDescriptor
//   - Parse / Describe: decode raw output and derive a descriptor without running anything
package ffprobe
