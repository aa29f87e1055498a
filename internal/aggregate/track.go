package aggregate

import (
	"math"
	"sort"

	"hanziblur/internal/classify"
	"hanziblur/internal/geom"
	"hanziblur/internal/textutil"
)

// Track is an aggregated subtitle occurrence: a spatial envelope in percent
// of the frame plus a buffered time window.
type Track struct {
	geom.Box
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	Frequency      int     `json:"frequency"`
	SampleText     string  `json:"sample_text"`
	ClusterID      string  `json:"cluster_id"`
	Source         string  `json:"source"`
	Confidence     float64 `json:"confidence"`
	HighConfidence bool    `json:"high_confidence"`
	TimeGroupCount int     `json:"time_group_count"`

	// FirstSeen and LastSeen are the raw detection times before buffering.
	FirstSeen float64 `json:"first_seen"`
	LastSeen  float64 `json:"last_seen"`

	xs     []float64
	ys     []float64
	groups map[float64]struct{}
}

// Duration returns EndTime - StartTime.
func (t Track) Duration() float64 { return t.EndTime - t.StartTime }

// Contains reports whether instant ts lies inside the track window.
func (t Track) Contains(ts float64) bool { return ts >= t.StartTime && ts <= t.EndTime }

// Trusted reports whether the envelope is small enough to be a subtitle:
// area ratio at most 0.35 and height at most 45 percent.
func (t Track) Trusted() bool {
	return t.AreaRatio() <= MaxTrustedAreaRatio && t.Height <= MaxTrustedHeight
}

func newTrack(bucket float64, members []classify.Region, envelope geom.Box, opts Options) Track {
	tr := Track{
		Box:       envelope,
		StartTime: math.Max(0, bucket-opts.BufferBefore),
		EndTime:   bucket + opts.BufferAfter,
		Frequency: len(members),
		Source:    classify.SourceOCR,
		FirstSeen: math.Inf(1),
		LastSeen:  math.Inf(-1),
		groups:    map[float64]struct{}{bucket: {}},
	}
	for _, m := range members {
		tr.absorbMember(m)
	}
	tr.TimeGroupCount = len(tr.groups)
	return tr
}

func (t *Track) absorbMember(m classify.Region) {
	if len([]rune(m.Text)) > len([]rune(t.SampleText)) && textutil.ContainsHan(m.Text) {
		t.SampleText = m.Text
	}
	t.Confidence = math.Max(t.Confidence, m.Confidence)
	t.HighConfidence = t.HighConfidence || m.Trusted
	t.FirstSeen = math.Min(t.FirstSeen, m.Time)
	t.LastSeen = math.Max(t.LastSeen, m.Time)
	t.xs = append(t.xs, m.X)
	t.ys = append(t.ys, m.Y)
}

func (t *Track) absorb(o Track, mode MergeMode) {
	switch mode {
	case MergeWeighted:
		wa, wb := float64(t.Frequency), float64(o.Frequency)
		if wa+wb > 0 {
			t.Box = geom.Box{
				X:      (t.X*wa + o.X*wb) / (wa + wb),
				Y:      (t.Y*wa + o.Y*wb) / (wa + wb),
				Width:  (t.Width*wa + o.Width*wb) / (wa + wb),
				Height: (t.Height*wa + o.Height*wb) / (wa + wb),
			}
		}
	default:
		t.Box = t.Box.Union(o.Box)
	}
	t.StartTime = math.Min(t.StartTime, o.StartTime)
	t.EndTime = math.Max(t.EndTime, o.EndTime)
	t.FirstSeen = math.Min(t.FirstSeen, o.FirstSeen)
	t.LastSeen = math.Max(t.LastSeen, o.LastSeen)
	t.Frequency += o.Frequency
	t.Confidence = math.Max(t.Confidence, o.Confidence)
	t.HighConfidence = t.HighConfidence || o.HighConfidence
	if len([]rune(o.SampleText)) > len([]rune(t.SampleText)) {
		t.SampleText = o.SampleText
	}
	t.xs = append(t.xs, o.xs...)
	t.ys = append(t.ys, o.ys...)
	if t.groups == nil {
		t.groups = make(map[float64]struct{})
	}
	for g := range o.groups {
		t.groups[g] = struct{}{}
	}
	t.TimeGroupCount = len(t.groups)
}

// SortTracks orders tracks by start time, then vertical position.
func SortTracks(tracks []Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].StartTime != tracks[j].StartTime {
			return tracks[i].StartTime < tracks[j].StartTime
		}
		return tracks[i].Y < tracks[j].Y
	})
}
