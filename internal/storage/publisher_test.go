package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"episodedb/internal/config"
	"episodedb/internal/services"
	"episodedb/internal/testsupport"
)

type recordingPutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (r *recordingPutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	r.inputs = append(r.inputs, params)
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	r.bodies = append(r.bodies, string(data))
	if r.err != nil {
		return nil, r.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestLocalPublisherReturnsFileURI(t *testing.T) {
	dir := t.TempDir()
	thumb := filepath.Join(dir, "thumbnail_001.jpg")
	testsupport.WriteFile(t, thumb, 16)

	uri, err := LocalPublisher{}.Publish(context.Background(), "ep-1", thumb)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if uri != "file://"+filepath.ToSlash(thumb) {
		t.Fatalf("unexpected uri %q", uri)
	}
}

func TestS3PublisherUploadsUnderPrefix(t *testing.T) {
	dir := t.TempDir()
	thumb := filepath.Join(dir, "thumbnails", "thumbnail_002.jpg")
	testsupport.WriteFile(t, thumb, 8)

	putter := &recordingPutter{}
	publisher := newS3Publisher(putter, "media-bucket", "/episodedb/")

	uri, err := publisher.Publish(context.Background(), "ep-9", thumb)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if uri != "s3://media-bucket/episodedb/ep-9/thumbnail_002.jpg" {
		t.Fatalf("unexpected uri %q", uri)
	}
	if len(putter.inputs) != 1 {
		t.Fatalf("expected one upload, got %d", len(putter.inputs))
	}
	input := putter.inputs[0]
	if aws.ToString(input.Bucket) != "media-bucket" || aws.ToString(input.Key) != "episodedb/ep-9/thumbnail_002.jpg" {
		t.Fatalf("unexpected target %s/%s", aws.ToString(input.Bucket), aws.ToString(input.Key))
	}
	if aws.ToString(input.ContentType) != "image/jpeg" {
		t.Fatalf("unexpected content type %q", aws.ToString(input.ContentType))
	}
	if putter.bodies[0] != strings.Repeat("\x42", 8) {
		t.Fatalf("unexpected body %q", putter.bodies[0])
	}
}

func TestS3PublisherErrors(t *testing.T) {
	putter := &recordingPutter{err: errors.New("access denied")}
	publisher := newS3Publisher(putter, "bucket", "")

	if _, err := publisher.Publish(context.Background(), "ep", filepath.Join(t.TempDir(), "missing.jpg")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing artifact, got %v", err)
	}

	thumb := filepath.Join(t.TempDir(), "thumb.png")
	testsupport.WriteFile(t, thumb, 4)
	if _, err := publisher.Publish(context.Background(), "ep", thumb); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient upload error, got %v", err)
	}
	if got := publisher.Key("ep", thumb); got != "ep/thumb.png" {
		t.Fatalf("unexpected key without prefix %q", got)
	}
}

func TestNewPublisherFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	publisher, err := NewPublisherFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("local publisher: %v", err)
	}
	if publisher.Backend() != config.StorageLocal {
		t.Fatalf("unexpected backend %q", publisher.Backend())
	}

	cfg.Storage.Backend = config.StorageS3
	cfg.Storage.Bucket = ""
	if _, err := NewPublisherFromConfig(context.Background(), cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without bucket, got %v", err)
	}

	cfg.Storage.Backend = "ftp"
	if _, err := NewPublisherFromConfig(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
