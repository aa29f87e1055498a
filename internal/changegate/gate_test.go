package changegate

import (
	"testing"

	"gocv.io/x/gocv"
)

func blank(t *testing.T) gocv.Mat {
	t.Helper()
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 200, gocv.MatTypeCV8UC3)
}

// textured fills rows 80..120 with a 2px checkerboard shifted right by
// shift pixels, standing in for a dense line of glyphs.
func textured(t *testing.T, shift int) gocv.Mat {
	t.Helper()
	m := blank(t)
	for y := 80; y < 120; y++ {
		for x := 0; x < 200; x++ {
			if (((x+shift)/2)+(y/2))%2 == 0 {
				continue
			}
			for c := 0; c < 3; c++ {
				m.SetUCharAt(y, x*3+c, 255)
			}
		}
	}
	return m
}

func TestFirstFrameIsChanged(t *testing.T) {
	g := New(DefaultOptions(), nil)
	defer g.Close()
	f := blank(t)
	defer f.Close()
	ok, score := g.ShouldProcess(f, 0)
	if !ok || score != firstFrameScore {
		t.Fatalf("expected first frame processed with score 100, got %v %v", ok, score)
	}
	s := g.Stats()
	if s.Total != 1 || s.Processed != 1 || s.FastDetected != 1 || s.Confirmed != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestStaticFramesSkippedByFastStage(t *testing.T) {
	g := New(DefaultOptions(), nil)
	defer g.Close()
	f := textured(t, 0)
	defer f.Close()
	g.ShouldProcess(f, 0)
	ok, score := g.ShouldProcess(f, 1)
	if ok || score != 0 {
		t.Fatalf("expected identical frame to be skipped, got %v score %v", ok, score)
	}
	if g.Stats().SkippedByFast != 1 {
		t.Fatalf("expected fast skip, got %+v", g.Stats())
	}
}

func TestRateLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.ConfirmThreshold = 1.1
	g := New(opts, nil)
	defer g.Close()
	a := blank(t)
	defer a.Close()
	b := textured(t, 0)
	defer b.Close()

	if ok, _ := g.ShouldProcess(a, 0); !ok {
		t.Fatal("expected first frame processed")
	}
	if ok, _ := g.ShouldProcess(b, 0.1); ok {
		t.Fatal("expected rate limit within 0.3s")
	}
	if g.Stats().SkippedByRate != 1 {
		t.Fatalf("expected rate skip, got %+v", g.Stats())
	}
	if ok, _ := g.ShouldProcess(a, 0.5); !ok {
		t.Fatal("expected change after interval to be processed")
	}
}

func TestConfirmStageSkipsNearDuplicates(t *testing.T) {
	g := New(DefaultOptions(), nil)
	defer g.Close()
	a := textured(t, 0)
	defer a.Close()
	b := textured(t, 1)
	defer b.Close()

	g.ShouldProcess(a, 0)
	ok, score := g.ShouldProcess(b, 1)
	if score <= DefaultOptions().FastThreshold {
		t.Fatalf("expected shifted text to pass fast stage, got score %v", score)
	}
	if ok {
		t.Fatal("expected frames differing only inside the band to be skipped by confirm stage")
	}
	if g.Stats().SkippedByConfirm != 1 {
		t.Fatalf("expected confirm skip, got %+v", g.Stats())
	}
}

func TestReset(t *testing.T) {
	g := New(DefaultOptions(), nil)
	defer g.Close()
	f := textured(t, 0)
	defer f.Close()
	g.ShouldProcess(f, 0)
	g.ShouldProcess(f, 1)
	g.Reset()
	if g.Stats() != (Stats{}) {
		t.Fatalf("expected zero stats after reset, got %+v", g.Stats())
	}
	if ok, score := g.ShouldProcess(f, 0); !ok || score != firstFrameScore {
		t.Fatalf("expected fresh state after reset, got %v %v", ok, score)
	}
}
