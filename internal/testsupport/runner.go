package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"episodedb/internal/media"
)

// RunnerCall records a single FakeRunner invocation.
type RunnerCall struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

// Output returns the last positional argument, which is the output path for
// ffmpeg calls and the input path for ffprobe calls. A trailing overwrite flag
// is skipped.
func (c RunnerCall) Output() string {
	for i := len(c.Args) - 1; i >= 0; i-- {
		if c.Args[i] == "-y" || c.Args[i] == "-n" {
			continue
		}
		return c.Args[i]
	}
	return ""
}

// FlagValue returns the value following flag, or "" when absent.
func (c RunnerCall) FlagValue(flag string) string {
	idx := slices.Index(c.Args, flag)
	if idx < 0 || idx+1 >= len(c.Args) {
		return ""
	}
	return c.Args[idx+1]
}

// HasFlag reports whether flag appears in the argument list.
func (c RunnerCall) HasFlag(flag string) bool {
	return slices.Contains(c.Args, flag)
}

// FakeRunner is a scripted media.CommandRunner. Handler decides each outcome;
// a nil Handler succeeds with empty output. When TouchOutputs is set,
// successful ffmpeg calls create their output file.
type FakeRunner struct {
	Handler      func(call RunnerCall) (media.CommandResult, error)
	TouchOutputs bool

	mu    sync.Mutex
	calls []RunnerCall
}

// Run implements media.CommandRunner.
func (f *FakeRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (media.CommandResult, error) {
	call := RunnerCall{Name: name, Args: append([]string(nil), args...), Timeout: timeout}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return media.CommandResult{}, err
	}
	var (
		result media.CommandResult
		err    error
	)
	if f.Handler != nil {
		result, err = f.Handler(call)
	}
	if err == nil && result.ExitCode == 0 && f.TouchOutputs && strings.Contains(filepath.Base(name), "ffmpeg") {
		if out := call.Output(); out != "" && !strings.HasPrefix(out, "-") {
			if mkErr := os.MkdirAll(filepath.Dir(out), 0o755); mkErr != nil {
				return result, mkErr
			}
			if writeErr := os.WriteFile(out, []byte("media"), 0o644); writeErr != nil {
				return result, writeErr
			}
		}
	}
	return result, err
}

// Calls returns a copy of every recorded call.
func (f *FakeRunner) Calls() []RunnerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RunnerCall(nil), f.calls...)
}

// CallsFor returns recorded calls whose binary base name matches name.
func (f *FakeRunner) CallsFor(name string) []RunnerCall {
	var matched []RunnerCall
	for _, call := range f.Calls() {
		if filepath.Base(call.Name) == name {
			matched = append(matched, call)
		}
	}
	return matched
}

// ProbeOutput builds ffprobe JSON for a file with one video and one audio stream.
func ProbeOutput(duration float64, width, height int) []byte {
	return []byte(fmt.Sprintf(`{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": %d, "height": %d, "r_frame_rate": "24000/1001", "avg_frame_rate": "24000/1001"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "episode.mkv", "nb_streams": 2, "duration": "%.3f", "size": "104857600", "bit_rate": "4000000", "format_name": "matroska,webm"}
}`, width, height, duration))
}

// MediaHandler returns a FakeRunner handler that answers ffprobe with
// ProbeOutput(duration, 1920, 1080) and succeeds every other command.
func MediaHandler(duration float64) func(RunnerCall) (media.CommandResult, error) {
	probe := ProbeOutput(duration, 1920, 1080)
	return func(call RunnerCall) (media.CommandResult, error) {
		if strings.Contains(filepath.Base(call.Name), "ffprobe") {
			return media.CommandResult{Stdout: probe}, nil
		}
		return media.CommandResult{}, nil
	}
}
