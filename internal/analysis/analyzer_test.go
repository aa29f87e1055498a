package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"gocv.io/x/gocv"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/classify"
	"hanziblur/internal/fallback"
	"hanziblur/internal/logging"
	"hanziblur/internal/ocr"
	"hanziblur/internal/services"
	"hanziblur/internal/testsupport"
)

type fakeEngine struct {
	text  string
	calls atomic.Int32
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return true }

func (f *fakeEngine) ReadText(_ context.Context, img image.Image) ([]ocr.Detection, error) {
	f.calls.Add(1)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rect := image.Rect(w/5, h*85/100, w*4/5, h*95/100)
	return []ocr.Detection{{Quad: ocr.QuadFromRect(rect), Text: f.text, Confidence: 0.99}}, nil
}

type memCache struct {
	mu     sync.Mutex
	tracks map[string][]aggregate.Track
	stores int
}

func (c *memCache) Lookup(_ context.Context, path, settings string) ([]aggregate.Track, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tracks, ok := c.tracks[path+"|"+settings]
	return tracks, ok, nil
}

func (c *memCache) Store(_ context.Context, path, settings string, tracks []aggregate.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracks == nil {
		c.tracks = make(map[string][]aggregate.Track)
	}
	c.tracks[path+"|"+settings] = tracks
	c.stores++
	return nil
}

func TestAnalyzeProducesOCRTracks(t *testing.T) {
	clip := testsupport.WriteClip(t, 320, 240, 10, 30, nil)
	engine := &fakeEngine{text: "你好世界"}

	res, err := New(DefaultOptions(), engine, logging.NewNop()).Analyze(context.Background(), clip.Path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.RunID == "" {
		t.Fatal("expected run id")
	}
	if res.FallbackUsed {
		t.Fatal("fallback should not run when OCR finds text")
	}
	if len(res.Tracks) == 0 {
		t.Fatal("expected at least one track")
	}
	first := res.Tracks[0]
	if first.Source != classify.SourceOCR {
		t.Fatalf("source = %q, want %q", first.Source, classify.SourceOCR)
	}
	if first.SampleText != "你好世界" {
		t.Fatalf("sample text = %q", first.SampleText)
	}
	if first.StartTime != 0 {
		t.Fatalf("start time = %v, want 0", first.StartTime)
	}
	if first.Y < 80 || first.Y > 90 {
		t.Fatalf("track y = %v, want near the bottom", first.Y)
	}
	if engine.calls.Load() == 0 {
		t.Fatal("engine never called")
	}
	if len(res.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(res.Segments))
	}
}

func TestAnalyzeIgnoresNonChineseText(t *testing.T) {
	clip := testsupport.WriteClip(t, 320, 240, 10, 20, nil)
	engine := &fakeEngine{text: "hello"}

	res, err := New(DefaultOptions(), engine, logging.NewNop()).Analyze(context.Background(), clip.Path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.FallbackUsed {
		t.Fatal("expected fallback after zero regions")
	}
	if len(res.Tracks) != 0 {
		t.Fatalf("expected no tracks on a quiet frame, got %+v", res.Tracks)
	}
	if res.Tracks == nil {
		t.Fatal("tracks should be an empty list, not nil")
	}
}

func TestAnalyzeFallsBackToBandWithoutEngine(t *testing.T) {
	clip := testsupport.WriteClip(t, 320, 240, 10, 20, func(_ int, frame *gocv.Mat) {
		testsupport.Stripes(frame, 180, 220, 255)
	})

	res, err := New(DefaultOptions(), nil, logging.NewNop()).Analyze(context.Background(), clip.Path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Engine != "none" {
		t.Fatalf("engine = %q, want none", res.Engine)
	}
	if !res.FallbackUsed || len(res.Tracks) != 1 {
		t.Fatalf("expected a single fallback track, got fallback=%v tracks=%d", res.FallbackUsed, len(res.Tracks))
	}
	want := fallback.BandTrack(res.Video.Duration())
	if res.Tracks[0].ClusterID != want.ClusterID || res.Tracks[0].Box != want.Box {
		t.Fatalf("unexpected fallback track %+v", res.Tracks[0])
	}
}

func TestAnalyzeRejectsUnreadableInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mp4")
	if err := os.WriteFile(path, []byte("not a video"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := New(DefaultOptions(), nil, logging.NewNop()).Analyze(context.Background(), path)
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestAnalyzeUsesCache(t *testing.T) {
	clip := testsupport.WriteClip(t, 320, 240, 10, 20, nil)
	engine := &fakeEngine{text: "字幕"}
	cache := &memCache{}
	analyzer := New(DefaultOptions(), engine, logging.NewNop(), WithCache(cache))

	first, err := analyzer.Analyze(context.Background(), clip.Path)
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if first.Cached || cache.stores != 1 {
		t.Fatalf("first run should store, cached=%v stores=%d", first.Cached, cache.stores)
	}
	calls := engine.calls.Load()

	second, err := analyzer.Analyze(context.Background(), clip.Path)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if !second.Cached {
		t.Fatal("second run should hit the cache")
	}
	if engine.calls.Load() != calls {
		t.Fatal("cached run should not call OCR")
	}
	if len(second.Tracks) != len(first.Tracks) {
		t.Fatalf("cached tracks = %d, want %d", len(second.Tracks), len(first.Tracks))
	}
}

func TestAnalyzeHonorsCancellation(t *testing.T) {
	clip := testsupport.WriteClip(t, 320, 240, 10, 20, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultOptions(), &fakeEngine{text: "字"}, logging.NewNop()).Analyze(ctx, clip.Path)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeReportsEverySegmentInOrder(t *testing.T) {
	// 50 frames at 2 fps: 25 s, three segments.
	clip := testsupport.WriteClip(t, 160, 120, 2, 50, nil)
	opts := DefaultOptions()
	opts.Workers = 3

	res, err := New(opts, &fakeEngine{text: "字幕"}, logging.NewNop()).Analyze(context.Background(), clip.Path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Segments) != 3 {
		t.Fatalf("expected 3 segment reports, got %+v", res.Segments)
	}
	for i, seg := range res.Segments {
		if want := fmt.Sprintf("segment_%d", i+1); seg.Name != want || seg.Error != "" {
			t.Fatalf("segment %d: got %+v, want %s without error", i, seg, want)
		}
	}
}

func TestAnalyzeMarksCancelledSegments(t *testing.T) {
	clip := testsupport.WriteClip(t, 160, 120, 2, 50, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(DefaultOptions(), &fakeEngine{text: "字"}, logging.NewNop()).Analyze(ctx, clip.Path)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || len(res.Segments) != 3 {
		t.Fatalf("expected partial result with 3 segment reports, got %+v", res)
	}
	for _, seg := range res.Segments {
		if !strings.HasPrefix(seg.Error, "cancelled") {
			t.Fatalf("expected %s to be reported as cancelled, got %q", seg.Name, seg.Error)
		}
	}
}
