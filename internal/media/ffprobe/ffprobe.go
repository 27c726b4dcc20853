package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"episodedb/internal/media"
)

// DefaultTimeout bounds a single ffprobe invocation.
const DefaultTimeout = 30 * time.Second

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Duration     string `json:"duration"`
	BitRate      string `json:"bit_rate"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// VideoDescriptor summarizes the properties of a source video. Zero values
// mean the property was not reported.
type VideoDescriptor struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	FrameRate       float64 `json:"frame_rate,omitempty"`
	BitRate         int64   `json:"bit_rate,omitempty"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	AudioChannels   int     `json:"audio_channels,omitempty"`
	AudioSampleRate int     `json:"audio_sample_rate,omitempty"`
	FormatName      string  `json:"format_name,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
	VideoStreams    int     `json:"video_streams"`
	AudioStreams    int     `json:"audio_streams"`
}

// Inspector runs ffprobe against media files.
type Inspector struct {
	runner  media.CommandRunner
	binary  string
	timeout time.Duration
}

// NewInspector constructs an inspector. Empty binary and non-positive timeout
// fall back to "ffprobe" and DefaultTimeout.
func NewInspector(runner media.CommandRunner, binary string, timeout time.Duration) *Inspector {
	if runner == nil {
		runner = media.ExecRunner{}
	}
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Inspector{runner: runner, binary: binary, timeout: timeout}
}

// Args returns the ffprobe argument list used for path.
func Args(path string) []string {
	return []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path}
}

// Inspect executes ffprobe against path and returns its descriptor.
func (i *Inspector) Inspect(ctx context.Context, path string) (VideoDescriptor, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return VideoDescriptor{}, media.NewError(media.StageInspect, media.ReasonInvalidInput, "ffprobe", errors.New("empty path"))
	}
	result, err := i.Probe(ctx, path)
	if err != nil {
		return VideoDescriptor{}, err
	}
	return Describe(result)
}

// Probe executes ffprobe and returns the decoded output without requiring a
// video stream.
func (i *Inspector) Probe(ctx context.Context, path string) (Result, error) {
	out, err := i.runner.Run(ctx, i.binary, Args(path), i.timeout)
	if err := media.CheckResult(media.StageInspect, i.binary, out, err); err != nil {
		return Result{}, err
	}
	return Parse(out.Stdout)
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Result{}, media.NewError(media.StageInspect, media.ReasonParseFailure, "decode", errors.New("empty output"))
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, media.NewError(media.StageInspect, media.ReasonParseFailure, "decode", err)
	}
	return result, nil
}

// Describe derives a VideoDescriptor from the first video and audio streams.
func Describe(r Result) (VideoDescriptor, error) {
	video, ok := r.firstStream("video")
	if !ok {
		return VideoDescriptor{}, media.NewError(media.StageInspect, media.ReasonNoVideoStream, "describe", errors.New("no video stream found in file"))
	}

	duration := r.DurationSeconds()
	if duration == 0 || math.IsNaN(duration) {
		duration = parseFloat(video.Duration)
	}
	if math.IsNaN(duration) || duration <= 0 {
		return VideoDescriptor{}, media.NewError(media.StageInspect, media.ReasonParseFailure, "describe", fmt.Errorf("invalid duration %q", r.Format.Duration))
	}

	desc := VideoDescriptor{
		DurationSeconds: duration,
		Width:           video.Width,
		Height:          video.Height,
		FrameRate:       ParseFrameRate(video.RFrameRate),
		BitRate:         r.BitRate(),
		VideoCodec:      video.CodecName,
		FormatName:      r.Format.FormatName,
		SizeBytes:       r.SizeBytes(),
		VideoStreams:    r.VideoStreamCount(),
		AudioStreams:    r.AudioStreamCount(),
	}
	if desc.FrameRate == 0 {
		desc.FrameRate = ParseFrameRate(video.AvgFrameRate)
	}
	if audio, ok := r.firstStream("audio"); ok {
		desc.AudioCodec = audio.CodecName
		desc.AudioChannels = audio.Channels
		if rate := parseFloat(audio.SampleRate); !math.IsNaN(rate) && rate > 0 {
			desc.AudioSampleRate = int(rate)
		}
	}
	return desc, nil
}

// ParseFrameRate converts ffprobe's "num/den" notation (or a plain number) to
// frames per second. Unparseable or zero-denominator values return 0.
func ParseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		rate := parseFloat(num)
		if math.IsNaN(rate) || rate < 0 {
			return 0
		}
		return rate
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if math.IsNaN(n) || math.IsNaN(d) || d == 0 || n < 0 {
		return 0
	}
	return n / d
}

func (r Result) firstStream(codecType string) (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			return stream, true
		}
	}
	return Stream{}, false
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countStreams("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

func (r Result) countStreams(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
