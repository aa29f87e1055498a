// Package video opens decoders and encoders through OpenCV.
//
// A Source is a read-only descriptor (path, geometry, frame rate, frame
// count) that may be shared between goroutines. Decoders are not: every
// worker calls Source.Open to obtain its own Reader and must Close it.
package video
