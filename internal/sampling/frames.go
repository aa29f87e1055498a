package sampling

import (
	"math"
	"sort"
)

// ultraCriticalTimes are forced into the first segment; titles that flash in
// on frame zero are easy to miss at any fixed cadence.
var ultraCriticalTimes = []float64{0.0, 0.05, 0.1, 0.15}

// Plan describes the sampling cadence for one segment.
type Plan struct {
	Segment     Segment
	FPS         float64
	TotalFrames int

	CriticalWindow   float64
	CriticalInterval float64
	DefaultInterval  float64

	// GateActive switches the steady-state cadence to CriticalInterval; the
	// change gate discards most of those frames before OCR.
	GateActive bool
}

// FrameRange returns the [start, end) frame numbers covered by the segment.
func (p Plan) FrameRange() (int, int) {
	start := int(p.FPS * p.Segment.Start)
	end := int(p.FPS * p.Segment.End)
	if p.TotalFrames > 0 && end > p.TotalFrames {
		end = p.TotalFrames
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// FrameIndices returns the sorted, deduped frame numbers to decode for the
// segment, clamped to its frame range.
func FrameIndices(p Plan) []int {
	if p.FPS <= 0 {
		return nil
	}
	start, end := p.FrameRange()
	if end <= start {
		return nil
	}

	seen := make(map[int]struct{})
	add := func(frame int) {
		if frame < start || frame >= end {
			return
		}
		seen[frame] = struct{}{}
	}

	if p.Segment.Start == 0 {
		for _, t := range ultraCriticalTimes {
			add(int(p.FPS * t))
		}
	}

	criticalEnd := min(int(p.FPS*p.CriticalWindow), end)
	if p.Segment.Start < p.CriticalWindow {
		step := stepFrames(p.FPS, p.CriticalInterval)
		for f := start; f < criticalEnd; f += step {
			add(f)
		}
	}

	if end > criticalEnd {
		interval := p.DefaultInterval
		if p.GateActive {
			interval = p.CriticalInterval
		}
		step := stepFrames(p.FPS, interval)
		for f := max(criticalEnd, start); f < end; f += step {
			add(f)
		}
	}

	return sortedKeys(seen)
}

// EvenlySpaced returns count frame numbers spread across [0, total-1]
// inclusive of both ends.
func EvenlySpaced(count, total int) []int {
	if count <= 0 || total <= 0 {
		return nil
	}
	if count == 1 {
		return []int{0}
	}
	seen := make(map[int]struct{}, count)
	last := float64(total - 1)
	for i := 0; i < count; i++ {
		seen[int(last*float64(i)/float64(count-1))] = struct{}{}
	}
	return sortedKeys(seen)
}

// Window is a time span to rescan at a finer cadence.
type Window struct {
	Start float64
	End   float64
}

// RefinementIndices converts windows into frame numbers at step seconds,
// skipping frames in exclude and stopping once limit frames are collected.
func RefinementIndices(windows []Window, fps, step float64, totalFrames, limit int, exclude map[int]struct{}) []int {
	if fps <= 0 || limit <= 0 {
		return nil
	}
	stride := stepFrames(fps, step)
	seen := make(map[int]struct{})
	for _, w := range windows {
		from := max(0, int(math.Floor(w.Start*fps)))
		to := int(math.Ceil(w.End * fps))
		if totalFrames > 0 {
			to = min(to, totalFrames-1)
		}
		for f := from; f <= to; f += stride {
			if _, skip := exclude[f]; skip {
				continue
			}
			seen[f] = struct{}{}
		}
	}
	out := sortedKeys(seen)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func stepFrames(fps, seconds float64) int {
	return max(1, int(fps*seconds))
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Ints(out)
	return out
}
