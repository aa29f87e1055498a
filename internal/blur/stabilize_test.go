package blur

import (
	"image"
	"testing"

	"hanziblur/internal/aggregate"
)

func TestStabilizeFusesAdjacentPhrases(t *testing.T) {
	tracks := []aggregate.Track{
		track(20, 80, 14, 5, 1.0, 1.8),
		track(44, 80, 15, 5, 2.0, 2.8),
	}
	regions := Stabilize(tracks, 1080, 1920, 10)
	if len(regions) != 1 {
		t.Fatalf("expected one fused region, got %d: %+v", len(regions), regions)
	}
	r := regions[0]
	if r.Rect.Dx() <= 300 {
		t.Fatalf("expected fused width > 300 px, got %d", r.Rect.Dx())
	}
	if r.Start != 1.0 || r.End != 2.8 {
		t.Fatalf("expected window 1.0..2.8, got %v..%v", r.Start, r.End)
	}
}

func TestStabilizeKeepsDistantDetectionsApart(t *testing.T) {
	tracks := []aggregate.Track{
		track(20, 80, 14, 5, 1.0, 1.8),
		track(20, 80, 14, 5, 10.0, 11.0),
		track(20, 10, 14, 5, 1.0, 1.8),
	}
	regions := Stabilize(tracks, 1080, 1920, 20)
	if len(regions) != 3 {
		t.Fatalf("expected three regions, got %d: %+v", len(regions), regions)
	}
	for i := 1; i < len(regions); i++ {
		if regions[i].Start < regions[i-1].Start {
			t.Fatalf("regions not sorted by start: %+v", regions)
		}
	}
}

func TestStabilizeWidensRows(t *testing.T) {
	tracks := []aggregate.Track{
		track(5, 80, 10, 5, 1.0, 1.8),
		track(70, 80, 10, 5, 8.0, 9.0),
	}
	regions := Stabilize(tracks, 1080, 1920, 20)
	if len(regions) != 2 {
		t.Fatalf("expected two regions, got %d", len(regions))
	}
	if regions[0].Rect.Min.X != regions[1].Rect.Min.X || regions[0].Rect.Max.X != regions[1].Rect.Max.X {
		t.Fatalf("expected shared row envelope, got %v and %v", regions[0].Rect, regions[1].Rect)
	}
}

func TestMergeSpatial(t *testing.T) {
	in := []image.Rectangle{
		image.Rect(300, 100, 400, 140),
		image.Rect(100, 100, 290, 140),
		image.Rect(700, 100, 800, 140),
		image.Rect(100, 400, 300, 440),
	}
	orig := append([]image.Rectangle(nil), in...)
	out := MergeSpatial(in, 1080)
	if len(out) != 3 {
		t.Fatalf("expected three rects, got %v", out)
	}
	if out[0] != image.Rect(100, 100, 400, 140) {
		t.Fatalf("expected near neighbours fused, got %v", out[0])
	}
	for i := range in {
		if in[i] != orig[i] {
			t.Fatal("input slice was modified")
		}
	}
	if MergeSpatial(nil, 1080) != nil {
		t.Fatal("expected nil for empty input")
	}
}
