package changegate

import (
	"log/slog"

	"gocv.io/x/gocv"

	"hanziblur/internal/logging"
	"hanziblur/internal/vision"
)

// firstFrameScore is the fast-stage score reported when there is no
// previous edge map to compare against.
const firstFrameScore = 100.0

// neverProcessed is the initial last-OCR timestamp.
const neverProcessed = -999.0

// Options tunes the cascade thresholds.
type Options struct {
	FastThreshold    float64
	ConfirmThreshold float64
	MinOCRInterval   float64
}

// DefaultOptions returns the built-in thresholds.
func DefaultOptions() Options {
	return Options{FastThreshold: 15.0, ConfirmThreshold: 0.80, MinOCRInterval: 0.3}
}

// Stats counts gate decisions since the last Reset.
type Stats struct {
	Total            int `json:"total"`
	Processed        int `json:"processed"`
	FastDetected     int `json:"fast_detected"`
	Confirmed        int `json:"confirmed"`
	SkippedByFast    int `json:"skipped_by_fast"`
	SkippedByConfirm int `json:"skipped_by_confirm"`
	SkippedByRate    int `json:"skipped_by_rate"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Total += o.Total
	s.Processed += o.Processed
	s.FastDetected += o.FastDetected
	s.Confirmed += o.Confirmed
	s.SkippedByFast += o.SkippedByFast
	s.SkippedByConfirm += o.SkippedByConfirm
	s.SkippedByRate += o.SkippedByRate
}

// Gate is the hybrid change detector.
type Gate struct {
	opts    Options
	logger  *slog.Logger
	edges   gocv.Mat
	ring    []gocv.Mat
	lastOCR float64
	stats   Stats
}

// New constructs a Gate. Non-positive thresholds fall back to defaults.
func New(opts Options, logger *slog.Logger) *Gate {
	d := DefaultOptions()
	if opts.FastThreshold <= 0 {
		opts.FastThreshold = d.FastThreshold
	}
	if opts.ConfirmThreshold <= 0 {
		opts.ConfirmThreshold = d.ConfirmThreshold
	}
	if opts.MinOCRInterval < 0 {
		opts.MinOCRInterval = d.MinOCRInterval
	}
	return &Gate{
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "changegate"),
		edges:   gocv.NewMat(),
		lastOCR: neverProcessed,
	}
}

// ShouldProcess reports whether frame at time t should be sent to OCR, along
// with the fast-stage edge score.
func (g *Gate) ShouldProcess(frame gocv.Mat, t float64) (bool, float64) {
	g.stats.Total++

	gray := vision.Gray(frame)
	edges := vision.EdgeMap(gray)

	score := firstFrameScore
	if vision.SameSize(edges, g.edges) {
		score = vision.MeanAbsDiff(edges, g.edges)
	}
	g.edges.Close()
	g.edges = edges
	g.push(gray)

	if score <= g.opts.FastThreshold {
		g.stats.SkippedByFast++
		return false, score
	}
	g.stats.FastDetected++

	if len(g.ring) == 2 && vision.SameSize(g.ring[0], g.ring[1]) {
		similarity := vision.Similarity(g.ring[0], g.ring[1])
		if similarity >= g.opts.ConfirmThreshold {
			g.stats.SkippedByConfirm++
			g.logger.Debug("frame skipped by confirm stage",
				logging.Float64("time", t),
				logging.Float64("fast_score", score),
				logging.Float64("similarity", similarity),
			)
			return false, score
		}
	}
	g.stats.Confirmed++

	if t-g.lastOCR < g.opts.MinOCRInterval {
		g.stats.SkippedByRate++
		return false, score
	}
	g.lastOCR = t
	g.stats.Processed++
	return true, score
}

// push appends gray to the two-frame ring, releasing the evicted frame.
func (g *Gate) push(gray gocv.Mat) {
	g.ring = append(g.ring, gray)
	if len(g.ring) > 2 {
		g.ring[0].Close()
		g.ring = g.ring[1:]
	}
}

// Stats returns the decision counters.
func (g *Gate) Stats() Stats { return g.stats }

// Reset clears the edge map, ring buffer, rate limiter and counters.
func (g *Gate) Reset() {
	g.release()
	g.edges = gocv.NewMat()
	g.lastOCR = neverProcessed
	g.stats = Stats{}
}

// Close releases all native memory held by the gate.
func (g *Gate) Close() {
	g.release()
}

func (g *Gate) release() {
	g.edges.Close()
	for _, m := range g.ring {
		m.Close()
	}
	g.ring = nil
}
