package extract

import (
	"strings"
	"time"
)

// Failure policies for thumbnail batches.
const (
	PolicyAbort   = "abort"
	PolicyPartial = "partial"
)

const (
	DefaultAudioTimeout     = 5 * time.Minute
	DefaultThumbnailTimeout = 30 * time.Second
	DefaultClipTimeout      = 3 * time.Minute
	DefaultConcurrency      = 3
)

// AudioOptions controls transcription audio output.
type AudioOptions struct {
	Format     string // wav, mp3, or flac
	SampleRate int
	Channels   int
	Bitrate    string // applied to mp3 only
	Timeout    time.Duration
}

// DefaultAudioOptions returns mono 16kHz PCM sized for speech recognition.
func DefaultAudioOptions() AudioOptions {
	return AudioOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "128k",
		Timeout:    DefaultAudioTimeout,
	}
}

func (o AudioOptions) withDefaults() AudioOptions {
	def := DefaultAudioOptions()
	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	if o.Format == "" {
		o.Format = def.Format
	}
	if o.SampleRate <= 0 {
		o.SampleRate = def.SampleRate
	}
	if o.Channels <= 0 {
		o.Channels = def.Channels
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	return o
}

func (o AudioOptions) codec() string {
	switch o.Format {
	case "mp3":
		return "libmp3lame"
	case "flac":
		return "flac"
	default:
		return "pcm_s16le"
	}
}

// ThumbnailOptions controls preview image output.
type ThumbnailOptions struct {
	Width       int
	Height      int
	Quality     int    // 1-100, mapped onto ffmpeg's qscale
	Format      string // jpg, png, or webp
	Timeout     time.Duration
	Concurrency int
	Policy      string
}

// DefaultThumbnailOptions returns 320x180 jpg previews at quality 85.
func DefaultThumbnailOptions() ThumbnailOptions {
	return ThumbnailOptions{
		Width:       320,
		Height:      180,
		Quality:     85,
		Format:      "jpg",
		Timeout:     DefaultThumbnailTimeout,
		Concurrency: DefaultConcurrency,
		Policy:      PolicyAbort,
	}
}

func (o ThumbnailOptions) withDefaults() ThumbnailOptions {
	def := DefaultThumbnailOptions()
	o.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(o.Format), "."))
	if o.Format == "" || o.Format == "jpeg" {
		o.Format = def.Format
	}
	if o.Quality <= 0 {
		o.Quality = def.Quality
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.Policy != PolicyPartial {
		o.Policy = PolicyAbort
	}
	return o
}

// qscale maps a 1-100 quality onto ffmpeg's 2 (best) to 31 (worst) scale.
func (o ThumbnailOptions) qscale() int {
	quality := min(max(o.Quality, 1), 100)
	return 2 + (100-quality)*29/99
}

// ClipOptions controls clip creation. Without a size the streams are copied.
type ClipOptions struct {
	Width   int
	Height  int
	Timeout time.Duration
}

// DefaultClipOptions returns stream-copy clip settings.
func DefaultClipOptions() ClipOptions {
	return ClipOptions{Timeout: DefaultClipTimeout}
}
