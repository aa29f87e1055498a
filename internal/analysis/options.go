package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"runtime"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/changegate"
	"hanziblur/internal/classify"
	"hanziblur/internal/config"
	"hanziblur/internal/ocr"
)

const (
	// MaxAutoWorkers caps the pool when the worker count is left on auto.
	MaxAutoWorkers = 3
	// RefineStepSeconds is the cadence of the boundary rescan.
	RefineStepSeconds = 0.05
	// RefineMarginSeconds is scanned on both sides of each first and last
	// detection.
	RefineMarginSeconds = 1.0
)

// Options gathers every tunable of an analysis run.
type Options struct {
	SegmentLength    float64
	MinSegment       float64
	CriticalWindow   float64
	CriticalInterval float64
	DefaultInterval  float64
	// Workers is the pool size; zero selects min(3, segments, NumCPU).
	Workers int

	GateEnabled bool
	Gate        changegate.Options

	DownscaleTrigger int
	DownscaleTarget  int
	ROIBottomPercent float64

	Policy    classify.Policy
	Aggregate aggregate.Options
	BatchSize int

	RefineBoundaries bool
	RefineMaxFrames  int
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return Options{
		SegmentLength:    10,
		MinSegment:       1,
		CriticalWindow:   3,
		CriticalInterval: 0.1,
		DefaultInterval:  0.3,
		GateEnabled:      true,
		Gate:             changegate.DefaultOptions(),
		DownscaleTrigger: 1920,
		DownscaleTarget:  1440,
		ROIBottomPercent: 100,
		Policy:           classify.DefaultPolicy(),
		Aggregate:        aggregate.DefaultOptions(),
		BatchSize:        ocr.DefaultBatchSize,
		RefineBoundaries: true,
		RefineMaxFrames:  500,
	}
}

// OptionsFromConfig converts the detector and OCR sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	d := cfg.Detector
	opts.SegmentLength = d.SegmentLengthSeconds
	opts.MinSegment = d.MinSegmentSeconds
	opts.CriticalWindow = d.CriticalWindowSeconds
	opts.CriticalInterval = d.CriticalIntervalSeconds
	opts.DefaultInterval = d.DefaultIntervalSeconds
	opts.Workers = d.Workers
	opts.GateEnabled = d.GateEnabled
	opts.Gate = changegate.Options{
		FastThreshold:    d.FastThreshold,
		ConfirmThreshold: d.ConfirmThreshold,
		MinOCRInterval:   d.MinOCRIntervalSeconds,
	}
	opts.DownscaleTrigger = d.DownscaleTriggerWidth
	opts.DownscaleTarget = d.DownscaleTargetWidth
	opts.ROIBottomPercent = d.ROIBottomPercent
	opts.Policy = classify.Policy{
		CollectionFloor: d.CollectionConfidenceFloor,
		TrustFloor:      d.TrustConfidenceFloor,
	}
	opts.Aggregate.ClusterIoU = d.ClusterIoU
	opts.Aggregate.MergeIoU = d.MergeIoU
	opts.Aggregate.MergeMode = aggregate.MergeMode(d.MergeMode)
	opts.Aggregate.ScoringFilter = d.ScoringFilter
	opts.BatchSize = cfg.OCR.BatchSize
	opts.RefineBoundaries = d.RefineBoundaries
	opts.RefineMaxFrames = d.RefineMaxFrames
	return opts
}

// workerCount resolves the pool size for n segments.
func (o Options) workerCount(n int) int {
	if n <= 0 {
		return 0
	}
	if o.Workers > 0 {
		return min(o.Workers, n)
	}
	return max(1, min(MaxAutoWorkers, n, runtime.NumCPU()))
}

// SettingsHash identifies the options that influence detection output, so
// cached tracks are reused only under identical settings.
func (o Options) SettingsHash(engine string) string {
	key := struct {
		Engine           string
		SegmentLength    float64
		MinSegment       float64
		CriticalWindow   float64
		CriticalInterval float64
		DefaultInterval  float64
		GateEnabled      bool
		Gate             changegate.Options
		DownscaleTrigger int
		DownscaleTarget  int
		ROIBottomPercent float64
		Policy           classify.Policy
		ClusterIoU       float64
		MergeIoU         float64
		MergeMode        aggregate.MergeMode
		ScoringFilter    bool
		RefineBoundaries bool
		RefineMaxFrames  int
	}{
		Engine:           engine,
		SegmentLength:    o.SegmentLength,
		MinSegment:       o.MinSegment,
		CriticalWindow:   o.CriticalWindow,
		CriticalInterval: o.CriticalInterval,
		DefaultInterval:  o.DefaultInterval,
		GateEnabled:      o.GateEnabled,
		Gate:             o.Gate,
		DownscaleTrigger: o.DownscaleTrigger,
		DownscaleTarget:  o.DownscaleTarget,
		ROIBottomPercent: o.ROIBottomPercent,
		Policy:           o.Policy,
		ClusterIoU:       o.Aggregate.ClusterIoU,
		MergeIoU:         o.Aggregate.MergeIoU,
		MergeMode:        o.Aggregate.MergeMode,
		ScoringFilter:    o.Aggregate.ScoringFilter,
		RefineBoundaries: o.RefineBoundaries,
		RefineMaxFrames:  o.RefineMaxFrames,
	}
	payload, _ := json.Marshal(key)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
