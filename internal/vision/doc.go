// Package vision wraps the OpenCV operations the detector relies on:
// grayscale conversion, Canny edge maps, downscaling, region-of-interest
// cropping, frame similarity, and the OCR retry preprocessing chain.
//
// Every function that returns a gocv.Mat hands ownership to the caller, who
// must Close it.
package vision
