package video

import (
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

// writeClip encodes frames frames of a solid image whose blue channel
// encodes the frame index. Tests skip when the MJPG encoder is missing.
func writeClip(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.avi")
	w, err := Create(path, "MJPG", 10, 64, 48)
	if err != nil {
		t.Skipf("MJPG encoder unavailable: %v", err)
	}
	for i := 0; i < frames; i++ {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(i*20), 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
		if err := w.Write(m); err != nil {
			m.Close()
			t.Fatalf("write frame %d: %v", i, err)
		}
		m.Close()
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return path
}

func TestProbeAndReadAt(t *testing.T) {
	path := writeClip(t, 10)
	src, err := Probe(path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if src.Width != 64 || src.Height != 48 || src.FrameCount != 10 {
		t.Fatalf("unexpected source %+v", src)
	}
	if src.Duration() != 1 || src.TimeOf(5) != 0.5 {
		t.Fatalf("unexpected timing %v %v", src.Duration(), src.TimeOf(5))
	}

	r, err := src.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	for _, idx := range []int{0, 3, 4, 9, 2} {
		if !r.ReadAt(idx, &frame) {
			t.Fatalf("expected frame %d to decode", idx)
		}
		blue := float64(frame.GetUCharAt(10, 10*3))
		want := float64(idx * 20)
		if blue < want-12 || blue > want+12 {
			t.Fatalf("frame %d: expected blue ~%v, got %v", idx, want, blue)
		}
	}
	if r.ReadAt(10, &frame) || r.ReadAt(-1, &frame) {
		t.Fatal("expected out of range reads to fail")
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.mp4")
	if err := os.WriteFile(path, []byte("not a video"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Probe(path); err == nil {
		t.Fatal("expected probe error")
	}
	if _, err := Probe(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCreateRejectsBadCodec(t *testing.T) {
	if _, err := Create(filepath.Join(t.TempDir(), "x.avi"), "h264x", 30, 10, 10); err == nil {
		t.Fatal("expected fourcc validation error")
	}
}
