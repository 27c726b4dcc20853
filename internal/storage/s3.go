package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"episodedb/internal/config"
	"episodedb/internal/services"
)

// S3Config contains the settings for publishing to an S3 bucket. Empty
// region and profile fall back to the standard AWS credential chain.
type S3Config struct {
	Bucket       string
	Region       string
	Profile      string
	Prefix       string
	UsePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads artifacts to <prefix>/<episodeID>/<file name>.
type S3Publisher struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Publisher loads the default AWS configuration with cfg overrides.
func NewS3Publisher(ctx context.Context, cfg S3Config) (*S3Publisher, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "s3", "storage.bucket is required for the s3 backend", nil)
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "s3", "load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Publisher(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Publisher(client objectPutter, bucket, prefix string) *S3Publisher {
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Backend implements Publisher.
func (p *S3Publisher) Backend() string { return config.StorageS3 }

// Key returns the object key for a local artifact.
func (p *S3Publisher) Key(episodeID, localPath string) string {
	return path.Join(p.prefix, episodeID, filepath.Base(localPath))
}

// Publish implements Publisher.
func (p *S3Publisher) Publish(ctx context.Context, episodeID, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "storage", "s3 upload", "open artifact", err)
	}
	defer file.Close()

	key := p.Key(episodeID, localPath)
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType := mime.TypeByExtension(filepath.Ext(localPath)); contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "s3 upload", fmt.Sprintf("put s3://%s/%s", p.bucket, key), err)
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
