package ocr

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeEngine struct {
	name      string
	available bool
	caps      Capabilities
	read      func(img image.Image) ([]Detection, error)
	batch     func(imgs []image.Image) ([][]Detection, error)
	calls     atomic.Int32
}

func (f *fakeEngine) Name() string               { return f.name }
func (f *fakeEngine) Available() bool            { return f.available }
func (f *fakeEngine) Capabilities() Capabilities { return f.caps }

func (f *fakeEngine) ReadText(_ context.Context, img image.Image) ([]Detection, error) {
	f.calls.Add(1)
	return f.read(img)
}

func (f *fakeEngine) ReadTextBatch(_ context.Context, imgs []image.Image) ([][]Detection, error) {
	return f.batch(imgs)
}

func det(text string) Detection {
	return Detection{Quad: QuadFromRect(image.Rect(0, 0, 10, 10)), Text: text, Confidence: 0.9}
}

func TestSelectPrefersFirstAvailable(t *testing.T) {
	cloud := &fakeEngine{name: "glm"}
	local := &fakeEngine{name: "tesseract", available: true}
	if got := Select(nil, cloud, local); got != local {
		t.Fatalf("expected local engine, got %v", got)
	}
	cloud.available = true
	if got := Select(cloud, local); got != cloud {
		t.Fatalf("expected cloud engine, got %v", got)
	}
	if Select(nil, Noop{}) != nil {
		t.Fatal("expected nil when nothing is available")
	}
}

func TestAdapterRetriesWithPreprocessing(t *testing.T) {
	marker := image.NewGray(image.Rect(0, 0, 2, 2))
	engine := &fakeEngine{name: "fake", available: true}
	engine.read = func(img image.Image) ([]Detection, error) {
		if img == marker {
			return []Detection{det("字幕")}, nil
		}
		return nil, errors.New("blurry")
	}
	a := NewAdapter(engine, WithPreprocessor(func(image.Image) (image.Image, error) { return marker, nil }))
	got := a.ReadText(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	if len(got) != 1 || got[0].Text != "字幕" {
		t.Fatalf("expected retry result, got %+v", got)
	}
	if engine.calls.Load() != 2 {
		t.Fatalf("expected two engine calls, got %d", engine.calls.Load())
	}
}

func TestAdapterSwallowsPanicsAndPersistentErrors(t *testing.T) {
	engine := &fakeEngine{name: "fake", available: true}
	engine.read = func(image.Image) ([]Detection, error) { panic("boom") }
	a := NewAdapter(engine, WithPreprocessor(func(img image.Image) (image.Image, error) { return img, nil }))
	if got := a.ReadText(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1))); got != nil {
		t.Fatalf("expected nil detections, got %+v", got)
	}
	if engine.calls.Load() != 2 {
		t.Fatalf("expected initial call and one retry, got %d", engine.calls.Load())
	}
}

func TestAdapterUnavailable(t *testing.T) {
	a := NewAdapter(nil)
	if a.Available() || a.Name() != "none" {
		t.Fatal("expected unavailable adapter")
	}
	if got := a.ReadBatch(context.Background(), make([]image.Image, 3)); len(got) != 3 {
		t.Fatalf("expected one empty entry per input, got %d", len(got))
	}
}

func TestAdapterBatchTaggedAndFallback(t *testing.T) {
	engine := &fakeEngine{name: "batch", available: true, caps: Capabilities{SupportsBatch: true, TaggedBatch: true, Concurrent: true}}
	batches := 0
	engine.batch = func(imgs []image.Image) ([][]Detection, error) {
		batches++
		if batches == 2 {
			return nil, errors.New("rate limited")
		}
		out := make([][]Detection, len(imgs))
		for i := range imgs {
			out[i] = []Detection{det("批")}
		}
		return out, nil
	}
	engine.read = func(image.Image) ([]Detection, error) { return []Detection{det("单")}, nil }

	imgs := make([]image.Image, 10)
	for i := range imgs {
		imgs[i] = image.NewGray(image.Rect(0, 0, 1, 1))
	}
	a := NewAdapter(engine, WithBatchSize(8))
	got := a.ReadBatch(context.Background(), imgs)
	if batches != 2 {
		t.Fatalf("expected 2 batch calls, got %d", batches)
	}
	for i := 0; i < 8; i++ {
		if len(got[i]) != 1 || got[i][0].Text != "批" {
			t.Fatalf("frame %d: expected batch result, got %+v", i, got[i])
		}
	}
	for i := 8; i < 10; i++ {
		if len(got[i]) != 1 || got[i][0].Text != "单" {
			t.Fatalf("frame %d: expected single-frame fallback, got %+v", i, got[i])
		}
	}
}

func TestSplitProportional(t *testing.T) {
	flat := [][]Detection{{det("a"), det("b"), det("c"), det("d"), det("e")}}
	got := SplitProportional(flat, 3)
	if len(got) != 3 || len(got[0]) != 2 || len(got[1]) != 2 || len(got[2]) != 1 {
		t.Fatalf("unexpected split sizes %d/%d/%d", len(got[0]), len(got[1]), len(got[2]))
	}
	if got[2][0].Text != "e" {
		t.Fatalf("expected order preserved, got %q", got[2][0].Text)
	}
	empty := SplitProportional(nil, 2)
	if len(empty) != 2 || empty[0] != nil {
		t.Fatal("expected empty split")
	}
}

func TestAdapterSerializesNonConcurrentEngines(t *testing.T) {
	var inFlight, peak atomic.Int32
	engine := &fakeEngine{name: "serial", available: true}
	engine.read = func(image.Image) ([]Detection, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return nil, nil
	}
	a := NewAdapter(engine)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.ReadText(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
		}()
	}
	wg.Wait()
	if peak.Load() != 1 {
		t.Fatalf("expected serialized calls, peak concurrency %d", peak.Load())
	}
}
