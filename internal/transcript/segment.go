// Package transcript cleans raw speech-to-text segments into bounded,
// index-friendly chunks.
package transcript

import (
	"strings"
	"unicode/utf8"

	"episodedb/internal/config"
)

const (
	DefaultMinLength       = 10
	DefaultMaxLength       = 300
	DefaultMaxNoSpeechProb = 0.8
	DefaultMinDuration     = 1.0
	DefaultMaxGap          = 2.0
)

// RawSegment is a transcription segment as returned by the provider.
type RawSegment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// CleanSegment is a filtered and merged segment ready for embedding.
type CleanSegment struct {
	Index            int     `json:"index"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens,omitempty"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// Duration returns End-Start in seconds.
func (c CleanSegment) Duration() float64 {
	return c.End - c.Start
}

// Options bounds segment filtering and merging. Text lengths count runes.
type Options struct {
	MinLength       int
	MaxLength       int
	MaxNoSpeechProb float64 // segments at or above are dropped
	MinDuration     float64 // seconds; shorter segments are dropped
	MaxGap          float64 // seconds; wider gaps start a new segment
}

// DefaultOptions returns min 10, max 300, no-speech 0.8, 1s duration, 2s gap.
func DefaultOptions() Options {
	return Options{
		MinLength:       DefaultMinLength,
		MaxLength:       DefaultMaxLength,
		MaxNoSpeechProb: DefaultMaxNoSpeechProb,
		MinDuration:     DefaultMinDuration,
		MaxGap:          DefaultMaxGap,
	}
}

// OptionsFromConfig applies the configured length bounds to DefaultOptions.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg != nil {
		opts.MinLength = cfg.Segmenter.MinLength
		opts.MaxLength = cfg.Segmenter.MaxLength
	}
	return opts
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MinLength <= 0 {
		o.MinLength = def.MinLength
	}
	if o.MaxLength <= 0 {
		o.MaxLength = def.MaxLength
	}
	if o.MaxNoSpeechProb <= 0 {
		o.MaxNoSpeechProb = def.MaxNoSpeechProb
	}
	if o.MinDuration <= 0 {
		o.MinDuration = def.MinDuration
	}
	if o.MaxGap <= 0 {
		o.MaxGap = def.MaxGap
	}
	return o
}

// Process drops noise segments, then merges neighbours separated by less than
// MaxGap while the combined text stays under MaxLength. Merged accumulators
// shorter than MinLength are dropped on flush. Output indices are sequential.
func Process(raw []RawSegment, opts Options) []CleanSegment {
	opts = opts.withDefaults()
	out := make([]CleanSegment, 0, len(raw))

	var (
		current CleanSegment
		open    bool
	)
	flush := func() {
		if open && textLength(current.Text) >= opts.MinLength {
			current.Index = len(out)
			out = append(out, current)
		}
		open = false
	}

	for _, seg := range raw {
		if !keep(seg, opts) {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		switch {
		case !open:
			current = fromRaw(seg, text)
			open = true
		case textLength(current.Text)+textLength(text) < opts.MaxLength && seg.Start-current.End < opts.MaxGap:
			current = merge(current, seg, text)
		default:
			flush()
			current = fromRaw(seg, text)
			open = true
		}
	}
	flush()
	return out
}

func keep(seg RawSegment, opts Options) bool {
	text := strings.TrimSpace(seg.Text)
	if text == "" || textLength(text) < opts.MinLength {
		return false
	}
	if seg.NoSpeechProb >= opts.MaxNoSpeechProb {
		return false
	}
	return seg.End-seg.Start >= opts.MinDuration
}

func fromRaw(seg RawSegment, text string) CleanSegment {
	return CleanSegment{
		Start:            seg.Start,
		End:              seg.End,
		Text:             text,
		Tokens:           append([]int(nil), seg.Tokens...),
		AvgLogprob:       seg.AvgLogprob,
		CompressionRatio: seg.CompressionRatio,
		NoSpeechProb:     seg.NoSpeechProb,
	}
}

func merge(current CleanSegment, seg RawSegment, text string) CleanSegment {
	current.End = seg.End
	current.Text = current.Text + " " + text
	current.Tokens = append(current.Tokens, seg.Tokens...)
	current.AvgLogprob = (current.AvgLogprob + seg.AvgLogprob) / 2
	current.CompressionRatio = (current.CompressionRatio + seg.CompressionRatio) / 2
	current.NoSpeechProb = max(current.NoSpeechProb, seg.NoSpeechProb)
	return current
}

func textLength(text string) int {
	return utf8.RuneCountInString(text)
}

// FullText joins segment texts with single spaces.
func FullText(segments []CleanSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
