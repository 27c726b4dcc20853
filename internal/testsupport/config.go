package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"episodedb/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.OpenAI.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ProcessedDir = filepath.Join(base, "data", "processed")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Catalog.Path = filepath.Join(base, "data", "catalog.db")
	cfgVal.Embedding.Model = "text-embedding-3-small"
	cfgVal.Embedding.PacingDelayMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOpenAIKey sets the OpenAI API key on the test config.
func WithOpenAIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenAI.APIKey = key
	}
}

// WithOpenAIBaseURL points the OpenAI client at a test server.
func WithOpenAIBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenAI.BaseURL = url
	}
}

// WithMaxThumbnails overrides the thumbnail cap.
func WithMaxThumbnails(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Media.MaxThumbnails = limit
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		for _, name := range names {
			b.writeStub(name, "#!/bin/sh\nexit 0\n")
		}
		b.prependBinDir()
	}
}

// WithInspectorStub stubs ffmpeg and installs an ffprobe that prints
// ProbeOutput(duration, 1920, 1080).
func WithInspectorStub(duration float64) ConfigOption {
	return func(b *configBuilder) {
		b.writeStub("ffmpeg", "#!/bin/sh\nexit 0\n")
		b.writeStub("ffprobe", "#!/bin/sh\ncat <<'JSON'\n"+string(ProbeOutput(duration, 1920, 1080))+"\nJSON\n")
		b.prependBinDir()
	}
}

func (b *configBuilder) binDir() string {
	return filepath.Join(b.baseDir, "bin")
}

func (b *configBuilder) writeStub(name, script string) {
	if err := os.MkdirAll(b.binDir(), 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(b.binDir(), name), []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}
}

func (b *configBuilder) prependBinDir() {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", b.binDir()+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
