package config

const (
	CatalogSQLite   = "sqlite"
	CatalogPostgres = "postgres"

	ProviderOpenAI = "openai"
	ProviderCohere = "cohere"

	StorageLocal = "local"
	StorageS3    = "s3"

	PolicyAbort   = "abort"
	PolicyPartial = "partial"
)

const (
	defaultConfigPath              = "~/.config/episodedb/config.toml"
	defaultDataDir                 = "~/.local/share/episodedb"
	defaultProcessedDir            = "~/.local/share/episodedb/processed"
	defaultLogDir                  = "~/.local/share/episodedb/logs"
	defaultCatalogFile             = "catalog.db"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultProbeTimeoutSeconds     = 30
	defaultAudioTimeoutSeconds     = 300
	defaultThumbnailTimeoutSeconds = 30
	defaultClipTimeoutSeconds      = 180
	defaultThumbnailConcurrency    = 3
	defaultMaxThumbnails           = 10
	defaultThumbnailWidth          = 320
	defaultThumbnailHeight         = 180
	defaultThumbnailQuality        = 85
	defaultThumbnailFormat         = "jpg"
	defaultAudioFormat             = "wav"
	defaultAudioSampleRate         = 16000
	defaultAudioChannels           = 1
	defaultAudioBitrate            = "128k"
	defaultOpenAIBaseURL           = "https://api.openai.com/v1"
	defaultOpenAITimeoutSeconds    = 60
	defaultTranscriptionModel      = "whisper-1"
	defaultOpenAIEmbeddingModel    = "text-embedding-3-small"
	defaultCohereEmbeddingModel    = "embed-english-v3.0"
	defaultEmbeddingBatchSize      = 100
	defaultPacingDelayMS           = 1000
	defaultSegmentMinLength        = 10
	defaultSegmentMaxLength        = 300
	defaultSearchThreshold         = 0.7
	defaultSearchLimit             = 10
	defaultCacheTTLSeconds         = 86400
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			ProcessedDir: defaultProcessedDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Catalog: Catalog{
			Driver: CatalogSQLite,
		},
		Media: Media{
			FFmpegBinary:            defaultFFmpegBinary,
			FFprobeBinary:           defaultFFprobeBinary,
			ProbeTimeoutSeconds:     defaultProbeTimeoutSeconds,
			AudioTimeoutSeconds:     defaultAudioTimeoutSeconds,
			ThumbnailTimeoutSeconds: defaultThumbnailTimeoutSeconds,
			ClipTimeoutSeconds:      defaultClipTimeoutSeconds,
			ThumbnailConcurrency:    defaultThumbnailConcurrency,
			MaxThumbnails:           defaultMaxThumbnails,
			ThumbnailWidth:          defaultThumbnailWidth,
			ThumbnailHeight:         defaultThumbnailHeight,
			ThumbnailQuality:        defaultThumbnailQuality,
			ThumbnailFormat:         defaultThumbnailFormat,
			AudioFormat:             defaultAudioFormat,
			AudioSampleRate:         defaultAudioSampleRate,
			AudioChannels:           defaultAudioChannels,
			AudioBitrate:            defaultAudioBitrate,
			FailurePolicy:           PolicyAbort,
		},
		OpenAI: OpenAI{
			BaseURL:            defaultOpenAIBaseURL,
			TimeoutSeconds:     defaultOpenAITimeoutSeconds,
			TranscriptionModel: defaultTranscriptionModel,
		},
		Embedding: Embedding{
			Provider:      ProviderOpenAI,
			BatchSize:     defaultEmbeddingBatchSize,
			PacingDelayMS: defaultPacingDelayMS,
		},
		Segmenter: Segmenter{
			MinLength: defaultSegmentMinLength,
			MaxLength: defaultSegmentMaxLength,
		},
		Search: Search{
			Threshold: defaultSearchThreshold,
			Limit:     defaultSearchLimit,
		},
		Cache: Cache{
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Storage: Storage{
			Backend: StorageLocal,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
