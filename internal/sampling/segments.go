package sampling

import (
	"fmt"
	"math"
)

// Segment is a half-open time window [Start, End) in seconds. Index is the
// segment's position in the slice returned by Segments; Name is 1-based.
type Segment struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }

// Segments splits duration into windows of length seconds. A trailing window
// shorter than minTail is dropped. Non-positive inputs yield no segments.
func Segments(duration, length, minTail float64) []Segment {
	if duration <= 0 || length <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil
	}
	var out []Segment
	for start := 0.0; start < duration; start += length {
		end := math.Min(start+length, duration)
		if end-start < minTail {
			continue
		}
		idx := len(out)
		out = append(out, Segment{
			Index: idx,
			Name:  fmt.Sprintf("segment_%d", idx+1),
			Start: start,
			End:   end,
		})
	}
	return out
}
