package geom

import (
	"image"
	"math"
)

// Box is an axis-aligned rectangle in percent of frame dimensions.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Box) Right() float64   { return b.X + b.Width }
func (b Box) Bottom() float64  { return b.Y + b.Height }
func (b Box) CenterY() float64 { return b.Y + b.Height/2 }
func (b Box) Area() float64    { return math.Max(0, b.Width) * math.Max(0, b.Height) }

// AreaRatio is the fraction of the frame covered by the box.
func (b Box) AreaRatio() float64 {
	return (b.Width / 100) * (b.Height / 100)
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	left := math.Min(b.X, o.X)
	top := math.Min(b.Y, o.Y)
	right := math.Max(b.Right(), o.Right())
	bottom := math.Max(b.Bottom(), o.Bottom())
	return Box{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Clip bounds the box to the [0,100] frame on both axes.
func (b Box) Clip() Box {
	if b.X >= 0 && b.Y >= 0 && b.Right() <= 100 && b.Bottom() <= 100 {
		return b
	}
	left := clamp(b.X, 0, 100)
	top := clamp(b.Y, 0, 100)
	right := clamp(b.Right(), 0, 100)
	bottom := clamp(b.Bottom(), 0, 100)
	return Box{X: left, Y: top, Width: math.Max(0, right-left), Height: math.Max(0, bottom-top)}
}

// Pad grows the box by pad percent on every side, clipped to the frame.
func (b Box) Pad(pad float64) Box {
	return Box{X: b.X - pad, Y: b.Y - pad, Width: b.Width + 2*pad, Height: b.Height + 2*pad}.Clip()
}

// IoU returns the intersection-over-union of two boxes. It is symmetric,
// equals 1 for identical non-empty boxes and 0 for disjoint ones.
func IoU(a, b Box) float64 {
	ix := math.Min(a.Right(), b.Right()) - math.Max(a.X, b.X)
	iy := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Y, b.Y)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// HorizontalGap is the empty horizontal distance between two boxes, zero when
// they overlap on the x axis.
func HorizontalGap(a, b Box) float64 {
	return math.Max(0, math.Max(a.X-b.Right(), b.X-a.Right()))
}

// SameRow reports whether the vertical centers of a and b are within
// multiplier times the taller box's height.
func SameRow(a, b Box, multiplier float64) bool {
	return math.Abs(a.CenterY()-b.CenterY()) <= math.Max(a.Height, b.Height)*multiplier
}

// PercentOf converts a pixel rectangle into a Box relative to a w×h frame.
// No rounding is applied so PixelsOf(PercentOf(r)) reproduces r.
func PercentOf(r image.Rectangle, w, h int) Box {
	if w <= 0 || h <= 0 {
		return Box{}
	}
	fw, fh := float64(w), float64(h)
	return Box{
		X:      100 * float64(r.Min.X) / fw,
		Y:      100 * float64(r.Min.Y) / fh,
		Width:  100 * float64(r.Dx()) / fw,
		Height: 100 * float64(r.Dy()) / fh,
	}
}

// PixelsOf converts a Box into a pixel rectangle on a w×h frame, rounding to
// the nearest pixel and clamping to the frame.
func PixelsOf(b Box, w, h int) image.Rectangle {
	fw, fh := float64(w), float64(h)
	x0 := int(math.Round(fw * b.X / 100))
	y0 := int(math.Round(fh * b.Y / 100))
	x1 := int(math.Round(fw * b.Right() / 100))
	y1 := int(math.Round(fh * b.Bottom() / 100))
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, w, h))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
