package blur

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"hanziblur/internal/vision"
)

// checkerboard is a 200x120 BGR frame with 2px squares everywhere.
func checkerboard(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 200, gocv.MatTypeCV8UC3)
	for y := 0; y < 120; y++ {
		for x := 0; x < 200; x++ {
			if ((x/2)+(y/2))%2 == 0 {
				continue
			}
			for c := 0; c < 3; c++ {
				m.SetUCharAt(y, x*3+c, 255)
			}
		}
	}
	return m
}

func energyIn(t *testing.T, m gocv.Mat, rect image.Rectangle) float64 {
	t.Helper()
	roi := m.Region(rect)
	defer roi.Close()
	return vision.HighFrequencyEnergy(roi)
}

func TestApplyIsIdentityOutsideWindows(t *testing.T) {
	frame := checkerboard(t)
	defer frame.Close()
	regions := []Region{{Rect: image.Rect(20, 60, 180, 100), Start: 1, End: 2}}
	for _, stabilize := range []bool{false, true} {
		c := NewCompositor(regions, 200, 120, Options{Stabilize: stabilize}, nil)
		for _, ts := range []float64{0, 0.99, 2.01, 5} {
			out := c.Apply(frame, ts)
			if !bytes.Equal(out.ToBytes(), frame.ToBytes()) {
				out.Close()
				t.Fatalf("stabilize=%v t=%v: expected identical frame", stabilize, ts)
			}
			out.Close()
		}
	}
}

func TestApplyLowersEnergyInsideWindow(t *testing.T) {
	frame := checkerboard(t)
	defer frame.Close()
	before := frame.ToBytes()
	rect := image.Rect(20, 60, 180, 100)
	regions := []Region{{Rect: rect, Start: 1, End: 2}}

	for _, stabilize := range []bool{false, true} {
		c := NewCompositor(regions, 200, 120, Options{Stabilize: stabilize}, nil)
		out := c.Apply(frame, 1.5)
		inside := energyIn(t, out, rect)
		original := energyIn(t, frame, rect)
		if inside >= original {
			out.Close()
			t.Fatalf("stabilize=%v: expected lower energy, got %v >= %v", stabilize, inside, original)
		}
		top := image.Rect(0, 0, 200, 30)
		if energyIn(t, out, top) != energyIn(t, frame, top) {
			out.Close()
			t.Fatalf("stabilize=%v: rows far from the region changed", stabilize)
		}
		out.Close()
	}
	if !bytes.Equal(before, frame.ToBytes()) {
		t.Fatal("input frame was mutated")
	}
}

func TestActiveAtUsesInclusiveBounds(t *testing.T) {
	c := NewCompositor([]Region{{Rect: image.Rect(0, 0, 10, 10), Start: 1, End: 2}}, 100, 100, Options{}, nil)
	if len(c.ActiveAt(1)) != 1 || len(c.ActiveAt(2)) != 1 || len(c.ActiveAt(2.0001)) != 0 {
		t.Fatal("expected inclusive window bounds")
	}
}

type memSource struct {
	frames []gocv.Mat
	next   int
}

func (s *memSource) ReadNext(dst *gocv.Mat) bool {
	if s.next >= len(s.frames) {
		return false
	}
	s.frames[s.next].CopyTo(dst)
	s.next++
	return true
}

type memSink struct {
	frames [][]byte
	fail   bool
}

func (s *memSink) Write(frame gocv.Mat) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.frames = append(s.frames, frame.ToBytes())
	return nil
}

func TestProcessStreamsEveryFrame(t *testing.T) {
	src := &memSource{}
	for i := 0; i < 10; i++ {
		src.frames = append(src.frames, checkerboard(t))
	}
	defer func() {
		for _, f := range src.frames {
			f.Close()
		}
	}()
	original := src.frames[0].ToBytes()

	c := NewCompositor([]Region{{Rect: image.Rect(20, 60, 180, 100), Start: 0.45, End: 0.75}}, 200, 120, Options{}, nil)
	sink := &memSink{}
	stats, err := c.Process(context.Background(), src, sink, 10, 1)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Frames != 10 || stats.Blurred != 3 || len(sink.frames) != 10 {
		t.Fatalf("unexpected stats %+v (%d written)", stats, len(sink.frames))
	}
	if !bytes.Equal(sink.frames[0], original) || bytes.Equal(sink.frames[5], original) {
		t.Fatal("expected frame 0 untouched and frame 5 blurred")
	}
}

func TestProcessPropagatesErrors(t *testing.T) {
	frame := checkerboard(t)
	defer frame.Close()
	c := NewCompositor(nil, 200, 120, Options{}, nil)

	if _, err := c.Process(context.Background(), &memSource{frames: []gocv.Mat{frame}}, &memSink{fail: true}, 10, 1); err == nil {
		t.Fatal("expected sink error")
	}
	if _, err := c.Process(context.Background(), &memSource{}, &memSink{}, 0, 1); err == nil {
		t.Fatal("expected frame rate error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Process(ctx, &memSource{frames: []gocv.Mat{frame}}, &memSink{}, 10, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
