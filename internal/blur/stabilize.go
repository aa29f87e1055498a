package blur

import (
	"math"
	"sort"

	"hanziblur/internal/aggregate"
)

// MaxTimeGap is the largest pause between two detections on one row that
// still fuses them into one region.
const MaxTimeGap = 1.0

// Stabilize builds generously padded regions and fuses those on the same
// row whose windows overlap or sit within MaxTimeGap. Each fused region is
// then widened to the horizontal extent of its row. Track windows are
// expected to be buffered already and are only clamped to [0, duration].
func Stabilize(tracks []aggregate.Track, w, h int, duration float64) []Region {
	minPad := minPadding(h)
	extraSide := int(float64(w) * 0.09)
	rowThreshold := float64(max(14, int(float64(h)*0.03)))

	prepared := make([]Region, 0, len(tracks))
	for _, tr := range tracks {
		x1, y1, x2, y2 := pixelBox(tr, w, h)
		bw, bh := x2-x1, y2-y1
		if bw <= 0 || bh <= 0 {
			continue
		}
		padX := max(minPad, int(float64(bw)*0.12))
		padY := max(minPad, int(float64(bh)*0.15))
		side := max(extraSide, int(float64(bw)*0.2))
		rect, ok := clampRect(x1-padX-side, y1-padY/2, x2+padX+side, y2+padY, w, h)
		if !ok {
			continue
		}
		start := math.Max(0, tr.StartTime)
		end := math.Min(duration, tr.EndTime)
		if end < start {
			end = start
		}
		prepared = append(prepared, Region{Rect: rect, Start: start, End: end, Text: tr.SampleText})
	}
	if len(prepared) == 0 {
		return nil
	}

	sort.SliceStable(prepared, func(i, j int) bool {
		ci, cj := centerY(prepared[i]), centerY(prepared[j])
		if ci != cj {
			return ci < cj
		}
		return prepared[i].Start < prepared[j].Start
	})

	merged := make([]Region, 0, len(prepared))
	for _, entry := range prepared {
		fused := false
		for i := range merged {
			ex := &merged[i]
			sameRow := math.Abs(centerY(*ex)-centerY(entry)) <= rowThreshold
			closeInTime := entry.Start <= ex.End+MaxTimeGap && entry.End >= ex.Start-MaxTimeGap
			if !sameRow || !closeInTime {
				continue
			}
			ex.Rect = ex.Rect.Union(entry.Rect)
			ex.Start = math.Min(ex.Start, entry.Start)
			ex.End = math.Max(ex.End, entry.End)
			if len([]rune(entry.Text)) > len([]rune(ex.Text)) {
				ex.Text = entry.Text
			}
			fused = true
			break
		}
		if !fused {
			merged = append(merged, entry)
		}
	}

	widenRows(merged, w, rowThreshold)
	sortRegions(merged)
	return merged
}

type row struct {
	center  float64
	left    int
	right   int
	members []int
}

// widenRows stretches every region to the left and right edges of its row.
func widenRows(regions []Region, w int, threshold float64) {
	var rows []row
	for i, r := range regions {
		c := centerY(r)
		placed := false
		for j := range rows {
			if math.Abs(rows[j].center-c) > threshold {
				continue
			}
			rows[j].members = append(rows[j].members, i)
			rows[j].center = (rows[j].center + c) / 2
			rows[j].left = min(rows[j].left, r.Rect.Min.X)
			rows[j].right = max(rows[j].right, r.Rect.Max.X)
			placed = true
			break
		}
		if !placed {
			rows = append(rows, row{center: c, left: r.Rect.Min.X, right: r.Rect.Max.X, members: []int{i}})
		}
	}

	extra := max(8, int(float64(w)*0.015))
	for _, rw := range rows {
		left := max(0, rw.left-extra)
		right := min(w-1, rw.right+extra)
		for _, i := range rw.members {
			regions[i].Rect.Min.X = min(regions[i].Rect.Min.X, left)
			regions[i].Rect.Max.X = max(regions[i].Rect.Max.X, right)
		}
	}
}

func centerY(r Region) float64 {
	return float64(r.Rect.Min.Y+r.Rect.Max.Y) / 2
}
