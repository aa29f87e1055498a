package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hanziblur/internal/logging"
	"hanziblur/internal/media/video"
)

func writeFFprobeStub(t *testing.T, payload string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + payload + "\nJSON\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestFFprobeCrossCheckFillsMissingFields(t *testing.T) {
	stub := writeFFprobeStub(t, `{"streams":[{"codec_type":"video","avg_frame_rate":"25/1","nb_frames":"50"},{"codec_type":"audio"}],"format":{"duration":"2.0"}}`)
	src := &video.Source{Path: "clip.mp4", Width: 320, Height: 240}

	check := ffprobeCrossCheck(stub, logging.NewNop())
	if err := check(context.Background(), src); err != nil {
		t.Fatalf("cross-check: %v", err)
	}
	if src.FPS != 25 {
		t.Fatalf("expected fps 25, got %v", src.FPS)
	}
	if src.FrameCount != 50 {
		t.Fatalf("expected 50 frames, got %d", src.FrameCount)
	}

	n, known := audioStreamCount(context.Background(), stub, "clip.mp4")
	if !known || n != 1 {
		t.Fatalf("expected one known audio stream, got %d (known=%v)", n, known)
	}
}

func TestFFprobeCrossCheckKeepsDecoderValues(t *testing.T) {
	stub := writeFFprobeStub(t, `{"streams":[{"codec_type":"video","avg_frame_rate":"30/1","nb_frames":"90"}],"format":{"duration":"3.0"}}`)
	src := &video.Source{Path: "clip.mp4", FPS: 29.97, FrameCount: 89}

	if err := ffprobeCrossCheck(stub, logging.NewNop())(context.Background(), src); err != nil {
		t.Fatalf("cross-check: %v", err)
	}
	if src.FPS != 29.97 || src.FrameCount != 89 {
		t.Fatalf("decoder values overwritten: %+v", src)
	}
}

func TestFFprobeCrossCheckSkipsMissingBinary(t *testing.T) {
	src := &video.Source{Path: "clip.mp4"}
	missing := filepath.Join(t.TempDir(), "no-ffprobe")
	if err := ffprobeCrossCheck(missing, logging.NewNop())(context.Background(), src); err != nil {
		t.Fatalf("expected nil for missing binary, got %v", err)
	}
	if _, known := audioStreamCount(context.Background(), missing, "clip.mp4"); known {
		t.Fatal("expected unknown audio count without ffprobe")
	}
}
