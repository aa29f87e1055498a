package blur

import (
	"image"
	"math"
	"sort"

	"hanziblur/internal/aggregate"
)

// DefaultTimeBuffer extends each track window on both sides.
const DefaultTimeBuffer = 0.6

// referenceHeight is the frame height the pixel constants were tuned for.
const referenceHeight = 1080

// Region is a pixel rectangle blurred while Start <= t <= End.
type Region struct {
	Rect  image.Rectangle `json:"rect"`
	Start float64         `json:"start"`
	End   float64         `json:"end"`
	Text  string          `json:"text,omitempty"`
}

// Active reports whether t falls inside the region window.
func (r Region) Active(t float64) bool { return t >= r.Start && t <= r.End }

// Options controls planning.
type Options struct {
	// Stabilize fuses neighbouring detections and widens rows.
	Stabilize bool
	// TimeBuffer pads windows in the basic planner. Zero means DefaultTimeBuffer.
	TimeBuffer float64
}

// Plan converts tracks into blur regions for a w×h video of the given
// duration. Regions are sorted by (start, top, left).
func Plan(tracks []aggregate.Track, w, h int, duration float64, opts Options) []Region {
	if w <= 0 || h <= 0 {
		return nil
	}
	if opts.Stabilize {
		return Stabilize(tracks, w, h, duration)
	}
	buffer := opts.TimeBuffer
	if buffer <= 0 {
		buffer = DefaultTimeBuffer
	}

	minPad := minPadding(h)
	side := int(float64(w) * 0.07)
	out := make([]Region, 0, len(tracks))
	for _, tr := range tracks {
		x1, y1, x2, y2 := pixelBox(tr, w, h)
		bw, bh := x2-x1, y2-y1
		if bw <= 0 || bh <= 0 {
			continue
		}
		padX := max(minPad, int(float64(bw)*0.05))
		padY := max(minPad, int(float64(bh)*0.08))
		rect, ok := clampRect(x1-padX-side, y1-padY/2, x2+padX+side, y2+padY, w, h)
		if !ok {
			continue
		}
		out = append(out, Region{
			Rect:  rect,
			Start: math.Max(0, tr.StartTime-buffer),
			End:   math.Min(duration, tr.EndTime+buffer),
			Text:  tr.SampleText,
		})
	}
	sortRegions(out)
	return out
}

func pixelBox(tr aggregate.Track, w, h int) (x1, y1, x2, y2 int) {
	fw, fh := float64(w), float64(h)
	return int(fw * tr.X / 100), int(fh * tr.Y / 100),
		int(fw * tr.Right() / 100), int(fh * tr.Bottom() / 100)
}

func minPadding(h int) int {
	return max(2, int(5*float64(h)/referenceHeight))
}

// clampRect bounds the corners to [0,w-1]×[0,h-1] and rejects empty results.
func clampRect(x1, y1, x2, y2, w, h int) (image.Rectangle, bool) {
	x1, y1 = max(0, x1), max(0, y1)
	x2, y2 = min(w-1, x2), min(h-1, y2)
	if x2 <= x1 || y2 <= y1 {
		return image.Rectangle{}, false
	}
	return image.Rect(x1, y1, x2, y2), true
}

func sortRegions(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Rect.Min.Y != b.Rect.Min.Y {
			return a.Rect.Min.Y < b.Rect.Min.Y
		}
		return a.Rect.Min.X < b.Rect.Min.X
	})
}
