package blur

import (
	"image"
	"testing"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/geom"
)

func track(x, y, w, h, start, end float64) aggregate.Track {
	return aggregate.Track{Box: geom.Box{X: x, Y: y, Width: w, Height: h}, StartTime: start, EndTime: end}
}

func TestPlanPadsAndBuffers(t *testing.T) {
	regions := Plan([]aggregate.Track{track(10, 80, 30, 8, 2, 4)}, 1920, 1080, 10, Options{})
	if len(regions) != 1 {
		t.Fatalf("expected one region, got %d", len(regions))
	}
	r := regions[0]
	want := image.Rect(30, 861, 930, 956)
	if r.Rect != want {
		t.Fatalf("expected %v, got %v", want, r.Rect)
	}
	if r.Start != 1.4 || r.End != 4.6 {
		t.Fatalf("expected window 1.4..4.6, got %v..%v", r.Start, r.End)
	}
}

func TestPlanClampsToFrameAndDuration(t *testing.T) {
	regions := Plan([]aggregate.Track{track(0, 90, 100, 10, 0.3, 9.8)}, 640, 360, 10, Options{})
	if len(regions) != 1 {
		t.Fatalf("expected one region, got %d", len(regions))
	}
	r := regions[0]
	if r.Rect.Min.X != 0 || r.Rect.Max.X != 639 || r.Rect.Max.Y != 359 {
		t.Fatalf("expected rect clamped to frame, got %v", r.Rect)
	}
	if r.Start != 0 || r.End != 10 {
		t.Fatalf("expected window clamped to 0..10, got %v..%v", r.Start, r.End)
	}
}

func TestPlanSkipsDegenerateTracks(t *testing.T) {
	regions := Plan([]aggregate.Track{track(50, 50, 0, 5, 0, 1)}, 640, 360, 5, Options{})
	if len(regions) != 0 {
		t.Fatalf("expected zero-width track to be skipped, got %v", regions)
	}
	if Plan(nil, 0, 0, 1, Options{}) != nil {
		t.Fatal("expected nil for empty frame")
	}
}

func TestPlanSortsByStartThenPosition(t *testing.T) {
	regions := Plan([]aggregate.Track{
		track(10, 80, 20, 5, 5, 6),
		track(10, 20, 20, 5, 1, 2),
		track(10, 80, 20, 5, 1, 2),
	}, 1280, 720, 10, Options{})
	if len(regions) != 3 {
		t.Fatalf("expected three regions, got %d", len(regions))
	}
	if regions[0].Rect.Min.Y > regions[1].Rect.Min.Y || regions[2].Start < regions[1].Start {
		t.Fatalf("unexpected order: %+v", regions)
	}
}

func TestKernelSizing(t *testing.T) {
	if got := MinKernel(1080); got != 25 {
		t.Fatalf("MinKernel(1080) = %d", got)
	}
	if got := MinKernel(480); got != 15 {
		t.Fatalf("MinKernel(480) = %d", got)
	}
	if got := Kernel(600, 120, 25); got != 31 {
		t.Fatalf("Kernel(600,120,25) = %d", got)
	}
	cases := map[int]int{1080: 21, 2160: 43, 4320: 51, 360: 11}
	for h, want := range cases {
		if got := FeatherSize(h); got != want {
			t.Fatalf("FeatherSize(%d) = %d, want %d", h, got, want)
		}
	}
}
