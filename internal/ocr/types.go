package ocr

import (
	"context"
	"image"
	"math"
)

// Point is a vertex of a detection quad in pixel coordinates of the image
// handed to the engine.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is a single recognized text run.
type Detection struct {
	Quad       [4]Point `json:"quad"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
}

// QuadFromRect builds a clockwise quad starting at the top-left corner.
func QuadFromRect(r image.Rectangle) [4]Point {
	x0, y0 := float64(r.Min.X), float64(r.Min.Y)
	x1, y1 := float64(r.Max.X), float64(r.Max.Y)
	return [4]Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// Bounds returns the axis-aligned bounding box of the quad, truncating
// toward the inside of the quad.
func (d Detection) Bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range d.Quad {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// Capabilities describes optional behaviour of an engine.
type Capabilities struct {
	// SupportsBatch marks engines whose ReadTextBatch is cheaper than
	// repeated ReadText calls.
	SupportsBatch bool
	// TaggedBatch means ReadTextBatch returns exactly one result list per
	// input, in input order.
	TaggedBatch bool
	// Concurrent marks engines that may be called from several goroutines.
	Concurrent bool
}

// Engine is the minimal OCR provider contract: one image in, detections out.
type Engine interface {
	Name() string
	Available() bool
	ReadText(ctx context.Context, img image.Image) ([]Detection, error)
}

// BatchEngine handles several images per call, amortizing remote
// round-trips.
type BatchEngine interface {
	Engine
	Capabilities() Capabilities
	ReadTextBatch(ctx context.Context, imgs []image.Image) ([][]Detection, error)
}

// CapabilitiesOf reports the capabilities of engine, treating plain engines
// as single-image and non-concurrent.
func CapabilitiesOf(engine Engine) Capabilities {
	if b, ok := engine.(BatchEngine); ok {
		return b.Capabilities()
	}
	return Capabilities{}
}
