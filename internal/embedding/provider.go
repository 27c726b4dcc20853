package embedding

import (
	"log/slog"

	"episodedb/internal/config"
	"episodedb/internal/services/openai"
)

// NewProviderFromConfig builds the configured embedding provider. The
// selected provider's API key must be present.
func NewProviderFromConfig(cfg *config.Config, purpose Purpose) (Provider, error) {
	if err := cfg.RequireEmbeddingKey(); err != nil {
		return nil, err
	}
	switch cfg.Embedding.Provider {
	case config.ProviderCohere:
		return NewCohereProvider(cfg.Embedding.CohereAPIKey, cfg.Embedding.Model, purpose, cfg.OpenAITimeout()), nil
	default:
		return NewOpenAIProvider(NewOpenAIClient(cfg), cfg.Embedding.Model), nil
	}
}

// NewOpenAIClient builds the shared OpenAI client from configuration.
func NewOpenAIClient(cfg *config.Config) *openai.Client {
	return openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Organization:   cfg.OpenAI.Organization,
		TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
	})
}

// NewBatcherFromConfig wires the configured provider with the configured
// pacing delay.
func NewBatcherFromConfig(cfg *config.Config, logger *slog.Logger) (*Batcher, error) {
	provider, err := NewProviderFromConfig(cfg, PurposeDocument)
	if err != nil {
		return nil, err
	}
	return NewBatcher(provider, NewLimiter(cfg.PacingDelay()), logger), nil
}
