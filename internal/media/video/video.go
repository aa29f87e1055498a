package video

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// ErrNoFrames reports a container that opened but yielded no decodable frame.
var ErrNoFrames = errors.New("video has no decodable frames")

// maxGrabAhead is the largest forward jump served by grabbing frames instead
// of seeking; short jumps are cheaper to decode through than to seek.
const maxGrabAhead = 8

// Source describes a decodable video file.
type Source struct {
	Path       string  `json:"path"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
}

// Duration returns FrameCount / FPS in seconds.
func (s Source) Duration() float64 {
	if s.FPS <= 0 {
		return 0
	}
	return float64(s.FrameCount) / s.FPS
}

// TimeOf converts a frame index to seconds.
func (s Source) TimeOf(frame int) float64 {
	if s.FPS <= 0 {
		return 0
	}
	return float64(frame) / s.FPS
}

// Probe opens path, reads its geometry, and verifies at least one frame
// decodes. When the container does not record a frame count, frames are
// counted by decoding.
func Probe(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return Source{}, fmt.Errorf("stat video: %w", err)
	}
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("open video %s: %w", path, err)
	}
	defer vc.Close()
	if !vc.IsOpened() {
		return Source{}, fmt.Errorf("open video %s: decoder unavailable", path)
	}

	src := Source{
		Path:       path,
		Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        vc.Get(gocv.VideoCaptureFPS),
		FrameCount: int(vc.Get(gocv.VideoCaptureFrameCount)),
	}

	frame := gocv.NewMat()
	defer frame.Close()
	if !vc.Read(&frame) || frame.Empty() {
		return Source{}, fmt.Errorf("%s: %w", path, ErrNoFrames)
	}
	if src.Width <= 0 || src.Height <= 0 {
		src.Width, src.Height = frame.Cols(), frame.Rows()
	}
	if src.FrameCount <= 0 {
		count := 1
		for vc.Read(&frame) {
			if frame.Empty() {
				break
			}
			count++
		}
		src.FrameCount = count
	}
	return src, nil
}

// Reader is a single-owner decoder over a Source.
type Reader struct {
	src  Source
	vc   *gocv.VideoCapture
	next int
}

// Open creates a new decoder for the source.
func (s Source) Open() (*Reader, error) {
	vc, err := gocv.VideoCaptureFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", s.Path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video %s: decoder unavailable", s.Path)
	}
	return &Reader{src: s, vc: vc}, nil
}

// Source returns the descriptor the reader was opened from.
func (r *Reader) Source() Source { return r.src }

// ReadAt decodes frame index into dst. It reports false when the frame is
// out of range or cannot be decoded.
func (r *Reader) ReadAt(index int, dst *gocv.Mat) bool {
	if index < 0 || (r.src.FrameCount > 0 && index >= r.src.FrameCount) {
		return false
	}
	switch gap := index - r.next; {
	case gap == 0:
	case gap > 0 && gap <= maxGrabAhead:
		r.vc.Grab(gap)
	default:
		r.vc.Set(gocv.VideoCapturePosFrames, float64(index))
	}
	r.next = index + 1
	if !r.vc.Read(dst) || dst.Empty() {
		return false
	}
	return true
}

// ReadNext decodes the next frame in stream order.
func (r *Reader) ReadNext(dst *gocv.Mat) bool {
	if !r.vc.Read(dst) || dst.Empty() {
		return false
	}
	r.next++
	return true
}

// Close releases the decoder.
func (r *Reader) Close() error {
	if r == nil || r.vc == nil {
		return nil
	}
	err := r.vc.Close()
	r.vc = nil
	return err
}

// Writer encodes frames to a file.
type Writer struct {
	vw   *gocv.VideoWriter
	path string
}

// Create opens an encoder. codec is a FourCC such as "mp4v" or "MJPG".
func Create(path, codec string, fps float64, width, height int) (*Writer, error) {
	if len(codec) != 4 {
		return nil, fmt.Errorf("codec %q is not a fourcc", codec)
	}
	vw, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("create writer %s: %w", path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("create writer %s: encoder %s unavailable", path, codec)
	}
	return &Writer{vw: vw, path: path}, nil
}

// Write encodes one frame.
func (w *Writer) Write(frame gocv.Mat) error {
	if err := w.vw.Write(frame); err != nil {
		return fmt.Errorf("write frame to %s: %w", w.path, err)
	}
	return nil
}

// Close flushes and releases the encoder.
func (w *Writer) Close() error {
	if w == nil || w.vw == nil {
		return nil
	}
	err := w.vw.Close()
	w.vw = nil
	return err
}
