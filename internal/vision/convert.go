package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ToImage converts a mat into a Go image for the OCR backends.
func ToImage(m gocv.Mat) (image.Image, error) {
	if m.Empty() {
		return nil, fmt.Errorf("convert empty mat")
	}
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mat to image: %w", err)
	}
	return img, nil
}

// FromImage converts a Go image into a BGR mat.
func FromImage(img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), fmt.Errorf("convert nil image")
	}
	if g, ok := img.(*image.Gray); ok {
		m, err := gocv.ImageGrayToMatGray(g)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("convert gray image: %w", err)
		}
		return m, nil
	}
	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert image to mat: %w", err)
	}
	return m, nil
}

// PreprocessForOCR prepares a frame for a second OCR attempt: bilateral
// denoise, 3x3 Gaussian blur, and Gaussian adaptive threshold (block 11,
// C 2). It matches ocr.Preprocessor.
func PreprocessForOCR(img image.Image) (image.Image, error) {
	src, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	gray := Gray(src)
	defer gray.Close()

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.BilateralFilter(gray, &denoised, 9, 75, 75)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(denoised, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.AdaptiveThreshold(blurred, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 11, 2)

	return ToImage(binary)
}
