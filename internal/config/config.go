package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	ProcessedDir string `toml:"processed_dir"`
	LogDir       string `toml:"log_dir"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
}

// Catalog selects the episode catalog backend.
type Catalog struct {
	Driver string `toml:"driver"` // sqlite or postgres
	Path   string `toml:"path"`   // sqlite database file
	DSN    string `toml:"dsn"`    // postgres connection string
}

// Media contains transcoder binaries, timeouts, and extraction defaults.
type Media struct {
	FFmpegBinary            string `toml:"ffmpeg_binary"`
	FFprobeBinary           string `toml:"ffprobe_binary"`
	ProbeTimeoutSeconds     int    `toml:"probe_timeout_seconds"`
	AudioTimeoutSeconds     int    `toml:"audio_timeout_seconds"`
	ThumbnailTimeoutSeconds int    `toml:"thumbnail_timeout_seconds"`
	ClipTimeoutSeconds      int    `toml:"clip_timeout_seconds"`
	ThumbnailConcurrency    int    `toml:"thumbnail_concurrency"`
	MaxThumbnails           int    `toml:"max_thumbnails"`
	ThumbnailWidth          int    `toml:"thumbnail_width"`
	ThumbnailHeight         int    `toml:"thumbnail_height"`
	ThumbnailQuality        int    `toml:"thumbnail_quality"`
	ThumbnailFormat         string `toml:"thumbnail_format"`
	AudioFormat             string `toml:"audio_format"`
	AudioSampleRate         int    `toml:"audio_sample_rate"`
	AudioChannels           int    `toml:"audio_channels"`
	AudioBitrate            string `toml:"audio_bitrate"`
	// FailurePolicy is "abort" (all-or-nothing thumbnails) or "partial".
	FailurePolicy string `toml:"failure_policy"`
}

// OpenAI contains connection settings for transcription and embeddings.
type OpenAI struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	Organization       string `toml:"organization"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	TranscriptionModel string `toml:"transcription_model"`
	Language           string `toml:"language"`
}

// Embedding selects the embedding provider and batching behaviour.
type Embedding struct {
	Provider      string `toml:"provider"` // openai or cohere
	Model         string `toml:"model"`
	BatchSize     int    `toml:"batch_size"`
	PacingDelayMS int    `toml:"pacing_delay_ms"`
	CohereAPIKey  string `toml:"cohere_api_key"`
}

// Segmenter bounds merged transcript segment lengths.
type Segmenter struct {
	MinLength int `toml:"min_length"`
	MaxLength int `toml:"max_length"`
}

// Search contains similarity search defaults.
type Search struct {
	Threshold float64 `toml:"threshold"`
	Limit     int     `toml:"limit"`
}

// Cache configures the query embedding cache. An empty RedisAddr keeps the
// cache in process memory.
type Cache struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// Storage selects where thumbnails are published after extraction.
type Storage struct {
	Backend      string `toml:"backend"` // local or s3
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Profile      string `toml:"profile"`
	Prefix       string `toml:"prefix"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for episodedb.
//
// Configuration sections by subsystem:
//   - Paths: data, processed output, and log directories plus the API bind address
//   - Catalog: sqlite or postgres backend for episodes and segments
//   - Media: ffmpeg/ffprobe binaries, timeouts, audio and thumbnail defaults
//   - OpenAI: transcription and embedding API access
//   - Embedding: provider choice, batch size, and pacing
//   - Segmenter: transcript merge bounds
//   - Search: similarity threshold and result limit
//   - Cache: query embedding cache (memory or redis)
//   - Storage: thumbnail publishing (local or s3)
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Catalog   Catalog   `toml:"catalog"`
	Media     Media     `toml:"media"`
	OpenAI    OpenAI    `toml:"openai"`
	Embedding Embedding `toml:"embedding"`
	Segmenter Segmenter `toml:"segmenter"`
	Search    Search    `toml:"search"`
	Cache     Cache     `toml:"cache"`
	Storage   Storage   `toml:"storage"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("episodedb.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, processed output, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ProcessedDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Catalog.Driver == CatalogSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Catalog.Path), 0o755); err != nil {
			return fmt.Errorf("create catalog directory: %w", err)
		}
	}
	return nil
}

// EpisodeOutputDir returns the directory that receives extracted artifacts for an episode.
func (c *Config) EpisodeOutputDir(episodeID string) string {
	return filepath.Join(c.Paths.ProcessedDir, episodeID)
}

// LockDir returns the directory holding per-episode and server lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.DataDir, "locks")
}

// ProbeTimeout returns the per-command ffprobe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return seconds(c.Media.ProbeTimeoutSeconds)
}

// AudioTimeout returns the audio extraction timeout.
func (c *Config) AudioTimeout() time.Duration {
	return seconds(c.Media.AudioTimeoutSeconds)
}

// ThumbnailTimeout returns the per-thumbnail command timeout.
func (c *Config) ThumbnailTimeout() time.Duration {
	return seconds(c.Media.ThumbnailTimeoutSeconds)
}

// ClipTimeout returns the clip creation timeout.
func (c *Config) ClipTimeout() time.Duration {
	return seconds(c.Media.ClipTimeoutSeconds)
}

// OpenAITimeout returns the HTTP timeout for OpenAI requests.
func (c *Config) OpenAITimeout() time.Duration {
	return seconds(c.OpenAI.TimeoutSeconds)
}

// PacingDelay returns the delay inserted between embedding batches.
func (c *Config) PacingDelay() time.Duration {
	return time.Duration(c.Embedding.PacingDelayMS) * time.Millisecond
}

// CacheTTL returns how long cached query embeddings live.
func (c *Config) CacheTTL() time.Duration {
	return seconds(c.Cache.TTLSeconds)
}

// RequireOpenAIKey reports a configuration error when an operation needs the
// OpenAI API and no key is configured.
func (c *Config) RequireOpenAIKey() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return errors.New("openai.api_key is required. Set OPENAI_API_KEY or edit the config file (create with 'episodedb config init')")
	}
	return nil
}

// RequireEmbeddingKey reports a configuration error when the selected
// embedding provider has no API key.
func (c *Config) RequireEmbeddingKey() error {
	if c.Embedding.Provider == ProviderCohere {
		if strings.TrimSpace(c.Embedding.CohereAPIKey) == "" {
			return errors.New("embedding.cohere_api_key is required when embedding.provider is cohere (or set COHERE_API_KEY)")
		}
		return nil
	}
	return c.RequireOpenAIKey()
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
