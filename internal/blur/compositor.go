package blur

import (
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"hanziblur/internal/logging"
)

// Compositor blurs the active regions of a frame.
type Compositor struct {
	regions   []Region
	width     int
	height    int
	minKernel int
	feather   int
	merged    bool
	logger    *slog.Logger
}

// NewCompositor prepares a compositor for w×h frames. The regions slice is
// copied. With opts.Stabilize the active regions of a frame are fused and
// blurred through one closed mask, otherwise each region is blurred alone.
func NewCompositor(regions []Region, w, h int, opts Options, logger *slog.Logger) *Compositor {
	return &Compositor{
		regions:   append([]Region(nil), regions...),
		width:     w,
		height:    h,
		minKernel: MinKernel(h),
		feather:   FeatherSize(h),
		merged:    opts.Stabilize,
		logger:    logging.NewComponentLogger(logger, "blur"),
	}
}

// ActiveAt lists the regions whose window contains t.
func (c *Compositor) ActiveAt(t float64) []Region {
	var out []Region
	for _, r := range c.regions {
		if r.Active(t) {
			out = append(out, r)
		}
	}
	return out
}

// Apply returns a blurred copy of frame for instant t. The input frame is
// never modified; when no region is active the copy equals the input.
func (c *Compositor) Apply(frame gocv.Mat, t float64) gocv.Mat {
	out := frame.Clone()
	active := c.ActiveAt(t)
	if len(active) == 0 || out.Empty() {
		return out
	}
	bounds := image.Rect(0, 0, out.Cols(), out.Rows())

	if c.merged {
		rects := make([]image.Rectangle, 0, len(active))
		for _, r := range active {
			rects = append(rects, r.Rect)
		}
		c.blendMerged(&out, MergeSpatial(rects, c.width), bounds)
		return out
	}
	for _, r := range active {
		rect := r.Rect.Intersect(bounds)
		if rect.Empty() {
			continue
		}
		mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), rect.Dy(), rect.Dx(), gocv.MatTypeCV8U)
		c.blend(&out, rect, mask)
		mask.Close()
	}
	return out
}

// blendMerged blurs the envelope of rects once, masked by the closed and
// dilated union of the rectangles.
func (c *Compositor) blendMerged(out *gocv.Mat, rects []image.Rectangle, bounds image.Rectangle) {
	var envelope image.Rectangle
	for _, r := range rects {
		envelope = envelope.Union(r)
	}
	envelope = envelope.Intersect(bounds)
	if envelope.Empty() {
		return
	}

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), envelope.Dy(), envelope.Dx(), gocv.MatTypeCV8U)
	defer mask.Close()
	white := color.RGBA{R: 255, G: 255, B: 255}
	for _, r := range rects {
		local := r.Sub(envelope.Min).Intersect(image.Rect(0, 0, envelope.Dx(), envelope.Dy()))
		if local.Empty() {
			continue
		}
		// Rectangle fills inclusive of the max corner.
		gocv.Rectangle(&mask, image.Rect(local.Min.X, local.Min.Y, local.Max.X-1, local.Max.Y-1), white, -1)
	}

	gap := oddAtLeast(max(3, int(float64(c.width)*0.015)))
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(gap, gap))
	defer kernel.Close()
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(mask, &closed, gocv.MorphClose, kernel)
	grown := gocv.NewMat()
	gocv.Dilate(closed, &grown, kernel)

	c.blend(out, envelope, grown)
	grown.Close()
}

// blend mixes a blurred copy of rect into out through a feathered mask:
// out = roi + (blur - roi) * mask.
func (c *Compositor) blend(out *gocv.Mat, rect image.Rectangle, mask gocv.Mat) {
	roi := out.Region(rect)
	defer roi.Close()

	k := Kernel(rect.Dx(), rect.Dy(), c.minKernel)
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(roi, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	feathered := gocv.NewMat()
	defer feathered.Close()
	gocv.GaussianBlur(mask, &feathered, image.Pt(c.feather, c.feather), 0, 0, gocv.BorderConstant)

	weights := gocv.NewMat()
	defer weights.Close()
	if roi.Channels() == 1 {
		feathered.ConvertToWithParams(&weights, gocv.MatTypeCV32F, 1.0/255, 0)
	} else {
		wide := gocv.NewMat()
		gocv.CvtColor(feathered, &wide, gocv.ColorGrayToBGR)
		wide.ConvertToWithParams(&weights, gocv.MatTypeCV32FC3, 1.0/255, 0)
		wide.Close()
	}

	floatType := gocv.MatTypeCV32FC3
	byteType := gocv.MatTypeCV8UC3
	if roi.Channels() == 1 {
		floatType, byteType = gocv.MatTypeCV32F, gocv.MatTypeCV8U
	}
	base := gocv.NewMat()
	defer base.Close()
	roi.ConvertTo(&base, floatType)
	soft := gocv.NewMat()
	defer soft.Close()
	blurred.ConvertTo(&soft, floatType)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.Subtract(soft, base, &diff)
	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Multiply(diff, weights, &scaled)
	mixed := gocv.NewMat()
	defer mixed.Close()
	gocv.Add(base, scaled, &mixed)

	result := gocv.NewMat()
	defer result.Close()
	mixed.ConvertTo(&result, byteType)
	result.CopyTo(&roi)
}

// MinKernel is the smallest blur kernel for a frame of height h.
func MinKernel(h int) int {
	return max(15, int(25*float64(h)/referenceHeight))
}

// Kernel sizes the Gaussian kernel for a bw×bh region.
func Kernel(bw, bh, minKernel int) int {
	return oddAtLeast(max(minKernel, ((bw+bh)/2)/12))
}

// FeatherSize is the odd mask blur size for height h, clamped to 11..51.
func FeatherSize(h int) int {
	f := oddAtLeast(int(21 * float64(h) / referenceHeight))
	return min(51, max(11, f))
}

func oddAtLeast(v int) int {
	if v%2 == 0 {
		return v + 1
	}
	return v
}
