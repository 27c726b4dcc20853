package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"episodedb/internal/config"
)

// Publisher makes an extracted artifact reachable and returns its URI.
type Publisher interface {
	Publish(ctx context.Context, episodeID, localPath string) (string, error)
	Backend() string
}

// LocalPublisher leaves artifacts in the processed directory and reports
// file URIs for them.
type LocalPublisher struct{}

// Backend implements Publisher.
func (LocalPublisher) Backend() string { return config.StorageLocal }

// Publish implements Publisher.
func (LocalPublisher) Publish(_ context.Context, _ string, localPath string) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", localPath, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// NewPublisherFromConfig returns the publisher selected by storage.backend.
func NewPublisherFromConfig(ctx context.Context, cfg *config.Config) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", config.StorageLocal:
		return LocalPublisher{}, nil
	case config.StorageS3:
		return NewS3Publisher(ctx, S3Config{
			Bucket:       cfg.Storage.Bucket,
			Region:       cfg.Storage.Region,
			Profile:      cfg.Storage.Profile,
			Prefix:       cfg.Storage.Prefix,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}
