package aggregate

import "hanziblur/internal/geom"

// MergeMode selects how cross-bucket merges combine envelopes.
type MergeMode string

const (
	// MergeUnion keeps the union of both envelopes (maximizes coverage).
	MergeUnion MergeMode = "union"
	// MergeWeighted averages envelopes weighted by member count.
	MergeWeighted MergeMode = "weighted"
)

// Trust limits for track envelopes.
const (
	MaxTrustedAreaRatio = 0.35
	MaxTrustedHeight    = 45.0
)

// Options tunes clustering and merging. Zero values are replaced by
// defaults in Normalize.
type Options struct {
	ClusterIoU        float64
	MergeIoU          float64
	SameRowMultiplier float64
	// HorizontalGap is the widest gap, in percent of frame width, that still
	// counts as adjacency for boxes on the same row.
	HorizontalGap float64
	// MergeTimeGap is the largest pause between two windows that still
	// allows a cross-bucket merge.
	MergeTimeGap float64
	// BufferBefore and BufferAfter widen each window beyond the sampled
	// instant; both exceed the sampling interval.
	BufferBefore float64
	BufferAfter  float64
	MergeMode    MergeMode

	// RelaxedPadding pads relaxed-pass envelopes on every side;
	// RelaxedMinSize is their minimum width and height.
	RelaxedPadding float64
	RelaxedMinSize float64

	ScoringFilter bool
	Math          geom.VectorMath
}

// DefaultOptions returns the built-in thresholds.
func DefaultOptions() Options {
	return Options{
		ClusterIoU:        0.2,
		MergeIoU:          0.25,
		SameRowMultiplier: 0.8,
		HorizontalGap:     6.0,
		MergeTimeGap:      1.0,
		BufferBefore:      0.8,
		BufferAfter:       1.2,
		MergeMode:         MergeUnion,
		RelaxedPadding:    2.0,
		RelaxedMinSize:    5.0,
		Math:              geom.ScalarMath{},
	}
}

// Normalize fills zero-valued fields from DefaultOptions.
func (o Options) Normalize() Options {
	d := DefaultOptions()
	if o.ClusterIoU <= 0 {
		o.ClusterIoU = d.ClusterIoU
	}
	if o.MergeIoU <= 0 {
		o.MergeIoU = d.MergeIoU
	}
	if o.SameRowMultiplier <= 0 {
		o.SameRowMultiplier = d.SameRowMultiplier
	}
	if o.HorizontalGap <= 0 {
		o.HorizontalGap = d.HorizontalGap
	}
	if o.MergeTimeGap <= 0 {
		o.MergeTimeGap = d.MergeTimeGap
	}
	if o.BufferBefore <= 0 {
		o.BufferBefore = d.BufferBefore
	}
	if o.BufferAfter <= 0 {
		o.BufferAfter = d.BufferAfter
	}
	if o.MergeMode != MergeWeighted {
		o.MergeMode = MergeUnion
	}
	if o.RelaxedPadding <= 0 {
		o.RelaxedPadding = d.RelaxedPadding
	}
	if o.RelaxedMinSize <= 0 {
		o.RelaxedMinSize = d.RelaxedMinSize
	}
	if o.Math == nil {
		o.Math = d.Math
	}
	return o
}
