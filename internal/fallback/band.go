package fallback

import (
	"context"
	"log/slog"

	"gocv.io/x/gocv"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/classify"
	"hanziblur/internal/geom"
	"hanziblur/internal/logging"
	"hanziblur/internal/sampling"
	"hanziblur/internal/vision"
)

const (
	// SampleCount is how many frames are measured across the video.
	SampleCount = 8
	// BandTop and BandBottom bound the measured band as fractions of height.
	BandTop    = 0.72
	BandBottom = 0.95
	// AnalysisWidth is the width the band is resized to before edge detection.
	AnalysisWidth = 640
	// MinValidSamples is the fewest decodable samples needed to decide.
	MinValidSamples = 3
	// EdgeRatioThreshold is the average edge ratio above which the band fires.
	EdgeRatioThreshold = 0.012
	// Confidence is attached to the emitted track.
	Confidence = 0.25
)

// FrameReader decodes one frame by index. video.Reader satisfies it.
type FrameReader interface {
	ReadAt(index int, dst *gocv.Mat) bool
}

// Result records what the detector measured.
type Result struct {
	Samples      int
	AverageRatio float64
	Fired        bool
}

// Detector measures edge density in the bottom band.
type Detector struct {
	logger *slog.Logger
}

// New constructs a Detector. A nil logger discards output.
func New(logger *slog.Logger) *Detector {
	return &Detector{logger: logging.NewComponentLogger(logger, "fallback")}
}

// Detect samples totalFrames evenly and returns at most one track spanning
// [0, duration].
func (d *Detector) Detect(ctx context.Context, r FrameReader, totalFrames int, duration float64) ([]aggregate.Track, Result) {
	var res Result
	if r == nil || totalFrames <= 0 {
		return nil, res
	}

	frame := gocv.NewMat()
	defer frame.Close()

	var sum float64
	for _, idx := range sampling.EvenlySpaced(SampleCount, totalFrames) {
		if ctx.Err() != nil {
			break
		}
		if !r.ReadAt(idx, &frame) {
			continue
		}
		ratio, ok := BandEdgeRatio(frame)
		if !ok {
			continue
		}
		sum += ratio
		res.Samples++
	}

	if res.Samples > 0 {
		res.AverageRatio = sum / float64(res.Samples)
	}
	res.Fired = res.Samples >= MinValidSamples && res.AverageRatio > EdgeRatioThreshold

	d.logger.Debug("fallback band measured",
		logging.Int("samples", res.Samples),
		logging.Float64("avg_edge_ratio", res.AverageRatio),
		logging.Bool("fired", res.Fired),
	)
	if !res.Fired {
		return nil, res
	}
	d.logger.Info("fallback band fired",
		logging.String(logging.FieldEventType, "fallback_band_fired"),
		logging.Float64("avg_edge_ratio", res.AverageRatio),
	)
	return []aggregate.Track{BandTrack(duration)}, res
}

// BandEdgeRatio crops the bottom band of frame, resizes it to 640 px wide
// and returns its Canny edge ratio.
func BandEdgeRatio(frame gocv.Mat) (float64, bool) {
	if frame.Empty() {
		return 0, false
	}
	band, err := vision.Band(frame, BandTop, BandBottom)
	if err != nil {
		return 0, false
	}
	defer band.Close()

	small := vision.ResizeToWidth(band, AnalysisWidth)
	defer small.Close()
	gray := vision.Gray(small)
	defer gray.Close()
	edges := vision.EdgeMap(gray)
	defer edges.Close()
	return vision.EdgeRatio(edges), true
}

// BandTrack is the single track emitted when the detector fires.
func BandTrack(duration float64) aggregate.Track {
	return aggregate.Track{
		Box:            geom.Box{X: 0, Y: BandTop * 100, Width: 100, Height: (BandBottom - BandTop) * 100},
		StartTime:      0,
		EndTime:        max(0, duration),
		Frequency:      1,
		ClusterID:      "fallback_band",
		Source:         classify.SourceFallbackRegionEdges,
		Confidence:     Confidence,
		TimeGroupCount: 1,
		FirstSeen:      0,
		LastSeen:       max(0, duration),
	}
}
