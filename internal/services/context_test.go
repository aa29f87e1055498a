package services_test

import (
	"context"
	"testing"

	"hanziblur/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithVideo(ctx, "/tmp/clip.mp4")
	ctx = services.WithSegment(ctx, "segment_2")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if video, ok := services.VideoFromContext(ctx); !ok || video != "/tmp/clip.mp4" {
		t.Fatalf("unexpected video: %v %v", video, ok)
	}
	if seg, ok := services.SegmentFromContext(ctx); !ok || seg != "segment_2" {
		t.Fatalf("unexpected segment: %v %v", seg, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSegment(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.SegmentFromContext(ctx); ok {
		t.Fatal("expected no segment value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
