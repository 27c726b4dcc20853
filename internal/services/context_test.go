package services_test

import (
	"context"
	"testing"

	"episodedb/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEpisodeID(ctx, "ep-42")
	ctx = services.WithStage(ctx, "audio_extraction")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.EpisodeIDFromContext(ctx); !ok || id != "ep-42" {
		t.Fatalf("unexpected episode id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "audio_extraction" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithEpisodeID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.EpisodeIDFromContext(ctx); ok {
		t.Fatal("expected no episode id")
	}
}

func TestBlankValueKeepsOuterValue(t *testing.T) {
	ctx := services.WithStage(context.Background(), "thumbnail_extraction")
	ctx = services.WithStage(ctx, "")
	if stage, _ := services.StageFromContext(ctx); stage != "thumbnail_extraction" {
		t.Fatalf("outer stage lost, got %q", stage)
	}
}
