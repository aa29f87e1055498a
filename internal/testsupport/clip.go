package testsupport

import (
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

// FrameFunc paints frame index i into a freshly allocated BGR canvas.
type FrameFunc func(i int, frame *gocv.Mat)

// Clip describes a synthetic video written by WriteClip.
type Clip struct {
	Path   string
	Width  int
	Height int
	FPS    float64
	Frames int
}

// WriteClip encodes a MJPG AVI under the test temp dir. Each frame starts
// black and is handed to paint. The test is skipped when the local OpenCV
// build cannot encode MJPG.
func WriteClip(t testing.TB, width, height int, fps float64, frames int, paint FrameFunc) Clip {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.avi")
	vw, err := gocv.VideoWriterFile(path, "MJPG", fps, width, height, true)
	if err != nil || !vw.IsOpened() {
		if vw != nil {
			vw.Close()
		}
		t.Skipf("MJPG encoder unavailable: %v", err)
	}
	defer vw.Close()

	for i := 0; i < frames; i++ {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
		if paint != nil {
			paint(i, &m)
		}
		if err := vw.Write(m); err != nil {
			m.Close()
			t.Fatalf("write frame %d: %v", i, err)
		}
		m.Close()
	}
	return Clip{Path: path, Width: width, Height: height, FPS: fps, Frames: frames}
}

// Stripes paints alternating 2px vertical bars of value v into rows
// [top, bottom) across the full width of a BGR frame.
func Stripes(frame *gocv.Mat, top, bottom int, v uint8) {
	cols := frame.Cols()
	for y := max(0, top); y < min(bottom, frame.Rows()); y++ {
		for x := 0; x < cols; x++ {
			if (x/2)%2 != 0 {
				continue
			}
			for c := 0; c < 3; c++ {
				frame.SetUCharAt(y, x*3+c, v)
			}
		}
	}
}
