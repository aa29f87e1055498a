package blur

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"hanziblur/internal/logging"
)

// FrameSource yields decoded frames in stream order. video.Reader
// satisfies it.
type FrameSource interface {
	ReadNext(dst *gocv.Mat) bool
}

// FrameSink consumes processed frames. video.Writer satisfies it.
type FrameSink interface {
	Write(frame gocv.Mat) error
}

// Stats summarizes a Process run.
type Stats struct {
	Frames  int `json:"frames"`
	Blurred int `json:"blurred"`
}

// Process reads every frame from src, applies the compositor at
// t = index / fps, and writes the result to dst. Frames past duration are
// still copied through unblurred. It stops early when ctx is cancelled.
func (c *Compositor) Process(ctx context.Context, src FrameSource, dst FrameSink, fps, duration float64) (Stats, error) {
	var stats Stats
	if fps <= 0 {
		return stats, fmt.Errorf("process: invalid frame rate %v", fps)
	}
	frame := gocv.NewMat()
	defer frame.Close()

	for index := 0; src.ReadNext(&frame); index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		t := float64(index) / fps
		var out gocv.Mat
		if t <= duration && len(c.ActiveAt(t)) > 0 {
			out = c.Apply(frame, t)
			stats.Blurred++
		} else {
			out = frame.Clone()
		}
		err := dst.Write(out)
		out.Close()
		if err != nil {
			return stats, fmt.Errorf("write frame %d: %w", index, err)
		}
		stats.Frames++
	}

	c.logger.Info("blur pass complete",
		logging.Int("frames", stats.Frames),
		logging.Int("blurred_frames", stats.Blurred),
		logging.Int("regions", len(c.regions)),
	)
	return stats, nil
}
