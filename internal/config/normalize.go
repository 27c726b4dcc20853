package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeMedia()
	if err := c.normalizeOpenAI(); err != nil {
		return err
	}
	c.normalizeEmbedding()
	c.normalizeCache()
	c.normalizeStorage()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProcessedDir) == "" {
		c.Paths.ProcessedDir = filepath.Join(c.Paths.DataDir, "processed")
	}
	if c.Paths.ProcessedDir, err = expandPath(c.Paths.ProcessedDir); err != nil {
		return fmt.Errorf("paths.processed_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeCatalog() error {
	c.Catalog.Driver = strings.ToLower(strings.TrimSpace(c.Catalog.Driver))
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = CatalogSQLite
	}
	if c.Catalog.DSN == "" {
		if value, ok := os.LookupEnv("EPISODEDB_DATABASE_URL"); ok {
			c.Catalog.DSN = strings.TrimSpace(value)
		}
	}
	if c.Catalog.Driver != CatalogSQLite {
		return nil
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = filepath.Join(c.Paths.DataDir, defaultCatalogFile)
	}
	var err error
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
	c.Media.ThumbnailFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Media.ThumbnailFormat), "."))
	if c.Media.ThumbnailFormat == "jpeg" {
		c.Media.ThumbnailFormat = "jpg"
	}
	c.Media.AudioFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Media.AudioFormat), "."))
	c.Media.AudioBitrate = strings.TrimSpace(c.Media.AudioBitrate)
	c.Media.FailurePolicy = strings.ToLower(strings.TrimSpace(c.Media.FailurePolicy))
	if c.Media.FailurePolicy == "" {
		c.Media.FailurePolicy = PolicyAbort
	}
}

func (c *Config) normalizeOpenAI() error {
	if c.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = value
		}
	}
	if c.OpenAI.Organization == "" {
		if value, ok := os.LookupEnv("OPENAI_ORGANIZATION"); ok {
			c.OpenAI.Organization = value
		}
	}
	if value, ok := os.LookupEnv("OPENAI_BASE_URL"); ok && strings.TrimSpace(value) != "" && c.OpenAI.BaseURL == defaultOpenAIBaseURL {
		c.OpenAI.BaseURL = value
	}
	if value, ok := os.LookupEnv("OPENAI_TIMEOUT"); ok && strings.TrimSpace(value) != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("OPENAI_TIMEOUT: expected milliseconds, got %q", value)
		}
		if ms > 0 && c.OpenAI.TimeoutSeconds == defaultOpenAITimeoutSeconds {
			c.OpenAI.TimeoutSeconds = max(1, (ms+999)/1000)
		}
	}
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	c.OpenAI.Organization = strings.TrimSpace(c.OpenAI.Organization)
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	c.OpenAI.TranscriptionModel = strings.TrimSpace(c.OpenAI.TranscriptionModel)
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = defaultTranscriptionModel
	}
	c.OpenAI.Language = strings.TrimSpace(c.OpenAI.Language)
	return nil
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.CohereAPIKey == "" {
		if value, ok := os.LookupEnv("COHERE_API_KEY"); ok {
			c.Embedding.CohereAPIKey = strings.TrimSpace(value)
		}
	}
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case ProviderCohere:
			c.Embedding.Model = defaultCohereEmbeddingModel
		default:
			c.Embedding.Model = defaultOpenAIEmbeddingModel
		}
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.RedisAddr == "" {
		if value, ok := os.LookupEnv("EPISODEDB_REDIS_ADDR"); ok {
			c.Cache.RedisAddr = value
		}
	}
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
