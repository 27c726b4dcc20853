package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. API keys are checked lazily by
// the commands that need them so catalog-only commands work offline.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateSegmenter(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Driver {
	case CatalogSQLite:
		if strings.TrimSpace(c.Catalog.Path) == "" {
			return errors.New("catalog.path must be set for the sqlite driver")
		}
	case CatalogPostgres:
		if strings.TrimSpace(c.Catalog.DSN) == "" {
			return errors.New("catalog.dsn must be set for the postgres driver (or set EPISODEDB_DATABASE_URL)")
		}
	default:
		return fmt.Errorf("catalog.driver: unsupported value %q (want sqlite or postgres)", c.Catalog.Driver)
	}
	return nil
}

func (c *Config) validateMedia() error {
	m := c.Media
	positives := []struct {
		name  string
		value int
	}{
		{"media.probe_timeout_seconds", m.ProbeTimeoutSeconds},
		{"media.audio_timeout_seconds", m.AudioTimeoutSeconds},
		{"media.thumbnail_timeout_seconds", m.ThumbnailTimeoutSeconds},
		{"media.clip_timeout_seconds", m.ClipTimeoutSeconds},
		{"media.thumbnail_concurrency", m.ThumbnailConcurrency},
		{"media.thumbnail_width", m.ThumbnailWidth},
		{"media.thumbnail_height", m.ThumbnailHeight},
		{"media.audio_sample_rate", m.AudioSampleRate},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive", p.name)
		}
	}
	if m.MaxThumbnails < 0 {
		return errors.New("media.max_thumbnails must be >= 0")
	}
	if m.ThumbnailQuality < 1 || m.ThumbnailQuality > 100 {
		return errors.New("media.thumbnail_quality must be between 1 and 100")
	}
	if m.AudioChannels != 1 && m.AudioChannels != 2 {
		return errors.New("media.audio_channels must be 1 or 2")
	}
	switch m.ThumbnailFormat {
	case "jpg", "png", "webp":
	default:
		return fmt.Errorf("media.thumbnail_format: unsupported value %q (want jpg, png, or webp)", m.ThumbnailFormat)
	}
	switch m.AudioFormat {
	case "wav", "mp3", "flac":
	default:
		return fmt.Errorf("media.audio_format: unsupported value %q (want wav, mp3, or flac)", m.AudioFormat)
	}
	switch m.FailurePolicy {
	case PolicyAbort, PolicyPartial:
	default:
		return fmt.Errorf("media.failure_policy: unsupported value %q (want abort or partial)", m.FailurePolicy)
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.TimeoutSeconds <= 0 {
		return errors.New("openai.timeout_seconds must be positive")
	}
	if !strings.HasPrefix(c.OpenAI.BaseURL, "http://") && !strings.HasPrefix(c.OpenAI.BaseURL, "https://") {
		return fmt.Errorf("openai.base_url must be an http(s) URL, got %q", c.OpenAI.BaseURL)
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderCohere:
	default:
		return fmt.Errorf("embedding.provider: unsupported value %q (want openai or cohere)", c.Embedding.Provider)
	}
	if c.Embedding.BatchSize <= 0 {
		return errors.New("embedding.batch_size must be positive")
	}
	if c.Embedding.PacingDelayMS < 0 {
		return errors.New("embedding.pacing_delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateSegmenter() error {
	if c.Segmenter.MinLength < 1 {
		return errors.New("segmenter.min_length must be at least 1")
	}
	if c.Segmenter.MaxLength <= 0 {
		return errors.New("segmenter.max_length must be positive")
	}
	if c.Segmenter.MinLength > c.Segmenter.MaxLength {
		return errors.New("segmenter.min_length must not exceed segmenter.max_length")
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return errors.New("search.threshold must be between -1 and 1")
	}
	if c.Search.Limit <= 0 {
		return errors.New("search.limit must be positive")
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		return nil
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set when storage.backend is s3")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want local or s3)", c.Storage.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
