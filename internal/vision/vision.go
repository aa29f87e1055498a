package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Canny hysteresis thresholds shared by the change gate and band detector.
const (
	CannyLow  = 50
	CannyHigh = 150
)

// Gray returns a single-channel copy of src.
func Gray(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	switch src.Channels() {
	case 1:
		src.CopyTo(&dst)
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	}
	return dst
}

// EdgeMap runs Canny(50,150) on a grayscale image.
func EdgeMap(gray gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Canny(gray, &dst, CannyLow, CannyHigh)
	return dst
}

// Downscale shrinks src to targetWidth when it is wider than trigger. It
// returns the resized copy and the applied scale (processed / original).
// When no resize is needed the copy has scale 1.
func Downscale(src gocv.Mat, trigger, targetWidth int) (gocv.Mat, float64) {
	w, h := src.Cols(), src.Rows()
	if trigger <= 0 || targetWidth <= 0 || w <= trigger || w == 0 {
		return src.Clone(), 1
	}
	scale := float64(targetWidth) / float64(w)
	size := image.Pt(targetWidth, max(1, int(float64(h)*scale)))
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, size, 0, 0, gocv.InterpolationArea)
	return dst, scale
}

// ResizeToWidth resizes src to width keeping the aspect ratio.
func ResizeToWidth(src gocv.Mat, width int) gocv.Mat {
	w, h := src.Cols(), src.Rows()
	if w == 0 || width <= 0 || w == width {
		return src.Clone()
	}
	scale := float64(width) / float64(w)
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(width, max(1, int(float64(h)*scale))), 0, 0, gocv.InterpolationArea)
	return dst
}

// BottomROI copies the bottom percent of src. It returns the crop and the
// y offset of its first row. Percentages below 70 are raised to 70; a
// degenerate crop falls back to the full frame.
func BottomROI(src gocv.Mat, percent float64) (gocv.Mat, int) {
	h, w := src.Rows(), src.Cols()
	if percent >= 100 || percent <= 0 || h == 0 {
		return src.Clone(), 0
	}
	percent = max(percent, 70)
	offset := int(float64(h) * (1 - percent/100))
	if offset <= 0 || offset >= h-1 {
		return src.Clone(), 0
	}
	region := src.Region(image.Rect(0, offset, w, h))
	defer region.Close()
	return region.Clone(), offset
}

// Band copies the horizontal band of src between fractions top and bottom of
// its height.
func Band(src gocv.Mat, top, bottom float64) (gocv.Mat, error) {
	h, w := src.Rows(), src.Cols()
	y0, y1 := int(float64(h)*top), int(float64(h)*bottom)
	if y1 <= y0 || w == 0 {
		return gocv.NewMat(), fmt.Errorf("empty band %.2f..%.2f of %dx%d frame", top, bottom, w, h)
	}
	region := src.Region(image.Rect(0, y0, w, y1))
	defer region.Close()
	return region.Clone(), nil
}

// MeanAbsDiff is the mean absolute per-pixel difference between two
// single-channel images of equal size.
func MeanAbsDiff(a, b gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)
	return diff.Mean().Val1
}

// Similarity returns 1 - Σ|a-b| / (w·h·255) for two grayscale images of equal
// size. Identical frames score 1.
func Similarity(a, b gocv.Mat) float64 {
	w, h := a.Cols(), a.Rows()
	if w == 0 || h == 0 {
		return 0
	}
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)
	sum := diff.Sum().Val1
	return 1 - sum/(float64(w)*float64(h)*255)
}

// EdgeRatio is the fraction of non-zero pixels in an edge map.
func EdgeRatio(edges gocv.Mat) float64 {
	total := edges.Rows() * edges.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(edges)) / float64(total)
}

// SameSize reports whether two mats share dimensions.
func SameSize(a, b gocv.Mat) bool {
	return !a.Empty() && !b.Empty() && a.Rows() == b.Rows() && a.Cols() == b.Cols()
}

// HighFrequencyEnergy sums absolute differences between horizontally and
// vertically adjacent grayscale pixels. Blurring strictly lowers it for any
// textured region.
func HighFrequencyEnergy(src gocv.Mat) float64 {
	gray := Gray(src)
	defer gray.Close()
	w, h := gray.Cols(), gray.Rows()
	if w < 2 || h < 2 {
		return 0
	}
	data := gray.ToBytes()
	var energy float64
	for y := 0; y < h; y++ {
		row := data[y*w : (y+1)*w]
		for x := 1; x < w; x++ {
			energy += absDiff(row[x], row[x-1])
		}
		if y > 0 {
			prev := data[(y-1)*w : y*w]
			for x := 0; x < w; x++ {
				energy += absDiff(row[x], prev[x])
			}
		}
	}
	return energy
}

func absDiff(a, b byte) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
