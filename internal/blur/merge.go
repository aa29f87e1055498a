package blur

import (
	"image"
	"math"
	"sort"
)

// MergeSpatial fuses rectangles on the same text row whose horizontal gap
// is at most max(12, 4% of frameWidth). Two rectangles share a row when
// their vertical centers differ by at most 0.9 times the taller height.
// The input slice is not modified.
func MergeSpatial(rects []image.Rectangle, frameWidth int) []image.Rectangle {
	if len(rects) == 0 {
		return nil
	}
	gapLimit := max(12, int(float64(frameWidth)*0.04))
	ordered := append([]image.Rectangle(nil), rects...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Min.Y != ordered[j].Min.Y {
			return ordered[i].Min.Y < ordered[j].Min.Y
		}
		return ordered[i].Min.X < ordered[j].Min.X
	})

	merged := []image.Rectangle{ordered[0]}
	for _, r := range ordered[1:] {
		last := &merged[len(merged)-1]
		lastH := max(1, last.Dy())
		boxH := max(1, r.Dy())
		lastC := float64(last.Min.Y+last.Max.Y) / 2
		boxC := float64(r.Min.Y+r.Max.Y) / 2
		sameRow := math.Abs(lastC-boxC) <= float64(max(lastH, boxH))*0.9
		gap := max(0, r.Min.X-last.Max.X, last.Min.X-r.Max.X)
		if sameRow && gap <= gapLimit {
			*last = last.Union(r)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
