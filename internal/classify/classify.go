package classify

import (
	"image"
	"math"

	"hanziblur/internal/geom"
	"hanziblur/internal/ocr"
	"hanziblur/internal/textutil"
)

const (
	// CollectionConfidenceFloor is the minimum confidence for a detection to
	// be gathered at all.
	CollectionConfidenceFloor = 0.3
	// TrustConfidenceFloor marks a Region as high confidence.
	TrustConfidenceFloor = 0.98

	// Detections smaller than this in original-frame pixels are noise.
	MinBoxWidthPixels  = 15
	MinBoxHeightPixels = 6

	// Boxes wider or taller than these fractions are whole-frame false
	// positives (watermarks, overlays, textured backgrounds).
	MaxBoxWidthRatio  = 0.98
	MaxBoxHeightRatio = 0.5

	// MinBoxPercent is the smallest width or height a Region may report.
	MinBoxPercent = 0.5
)

// Source tags for Regions and Tracks.
const (
	SourceOCR                 = "ocr"
	SourceFallbackRegion      = "fallback_region"
	SourceFallbackRegionEdges = "fallback_region_edges"
)

// Region is one Chinese-bearing detection on one sampled frame.
type Region struct {
	geom.Box
	Time       float64 `json:"time"`
	FrameIndex int     `json:"frame_index"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Trusted    bool    `json:"trusted"`
	Source     string  `json:"source"`
}

// Frame describes how the image handed to OCR relates to the original frame.
type Frame struct {
	// Width and Height of the original decoded frame.
	Width  int
	Height int
	// Scale is processed width over original width (1 when not downscaled).
	Scale float64
	// OffsetY is the top of the OCR region of interest, in processed pixels.
	OffsetY int
}

// Policy holds the two confidence floors.
type Policy struct {
	CollectionFloor float64
	TrustFloor      float64
}

// DefaultPolicy returns the built-in floors.
func DefaultPolicy() Policy {
	return Policy{CollectionFloor: CollectionConfidenceFloor, TrustFloor: TrustConfidenceFloor}
}

// Classify keeps detections whose confidence meets the collection floor and
// whose normalized text contains a Han ideograph, converting their boxes to
// percent of the original frame. Undersized and implausibly large boxes are
// discarded.
func Classify(dets []ocr.Detection, frame Frame, t float64, frameIndex int, policy Policy) []Region {
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil
	}
	var out []Region
	for _, d := range dets {
		if d.Confidence < policy.CollectionFloor {
			continue
		}
		text := textutil.NormalizeOCRText(d.Text)
		if !textutil.ContainsHan(text) {
			continue
		}
		rect, ok := OriginalRect(d, frame)
		if !ok {
			continue
		}
		box, ok := Normalize(rect, frame.Width, frame.Height)
		if !ok {
			continue
		}
		out = append(out, Region{
			Box:        box,
			Time:       t,
			FrameIndex: frameIndex,
			Text:       text,
			Confidence: d.Confidence,
			Trusted:    d.Confidence >= policy.TrustFloor,
			Source:     SourceOCR,
		})
	}
	return out
}

// OriginalRect maps a detection quad from processed ROI coordinates back to
// original-frame pixels, clamped to the frame.
func OriginalRect(d ocr.Detection, frame Frame) (image.Rectangle, bool) {
	scale := frame.Scale
	if scale <= 0 {
		scale = 1
	}
	minX, minY, maxX, maxY := d.Bounds()
	if math.IsInf(minX, 0) || math.IsNaN(minX) {
		return image.Rectangle{}, false
	}
	offset := float64(frame.OffsetY)
	r := image.Rect(
		int(minX/scale),
		int((minY+offset)/scale),
		int(maxX/scale),
		int((maxY+offset)/scale),
	).Intersect(image.Rect(0, 0, frame.Width, frame.Height))
	return r, !r.Empty()
}

// Normalize converts an original-frame pixel rectangle to a percent Box.
// Edges are rounded to 0.1 percent (0.01 on frames wider or taller than
// precisePercentAbove pixels) and width/height are derived from the rounded
// edges, so PercentToPixels lands within one pixel of r. Width and height are
// floored at MinBoxPercent. It reports false for boxes that are too small or
// implausibly large.
func Normalize(r image.Rectangle, w, h int) (geom.Box, bool) {
	bw, bh := r.Dx(), r.Dy()
	if bw < MinBoxWidthPixels || bh < MinBoxHeightPixels {
		return geom.Box{}, false
	}
	if float64(bw) > float64(w)*MaxBoxWidthRatio || float64(bh) > float64(h)*MaxBoxHeightRatio {
		return geom.Box{}, false
	}
	x0, x1 := percentEdge(r.Min.X, w), percentEdge(r.Max.X, w)
	y0, y1 := percentEdge(r.Min.Y, h), percentEdge(r.Max.Y, h)
	box := geom.Box{
		X:      x0,
		Y:      y0,
		Width:  math.Max(MinBoxPercent, roundPercent(x1-x0, w)),
		Height: math.Max(MinBoxPercent, roundPercent(y1-y0, h)),
	}
	return box.Clip(), true
}

// precisePercentAbove is the frame size beyond which half of a 0.1 percent
// step exceeds one pixel.
const precisePercentAbove = 2000

func percentEdge(px, size int) float64 {
	return roundPercent(100*float64(px)/float64(size), size)
}

func roundPercent(v float64, size int) float64 {
	if size > precisePercentAbove {
		return math.Round(v*100) / 100
	}
	return math.Round(v*10) / 10
}

// PercentToPixels is the inverse of Normalize for compositing.
func PercentToPixels(b geom.Box, w, h int) image.Rectangle {
	return geom.PixelsOf(b, w, h)
}
