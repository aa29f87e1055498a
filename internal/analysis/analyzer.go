package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/changegate"
	"hanziblur/internal/classify"
	"hanziblur/internal/fallback"
	"hanziblur/internal/logging"
	"hanziblur/internal/media/video"
	"hanziblur/internal/ocr"
	"hanziblur/internal/sampling"
	"hanziblur/internal/services"
	"hanziblur/internal/vision"
)

// ErrUnreadable reports a video that cannot be opened or has no frames.
var ErrUnreadable = errors.New("video unreadable")

// Cache stores finished track lists keyed by video fingerprint and settings.
type Cache interface {
	Lookup(ctx context.Context, path, settings string) ([]aggregate.Track, bool, error)
	Store(ctx context.Context, path, settings string, tracks []aggregate.Track) error
}

// SegmentReport summarizes one segment of a run.
type SegmentReport struct {
	Name      string  `json:"name"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Sampled   int     `json:"sampled"`
	OCRFrames int     `json:"ocr_frames"`
	Regions   int     `json:"regions"`
	Error     string  `json:"error,omitempty"`
}

// Result is the outcome of Analyze.
type Result struct {
	RunID        string            `json:"run_id"`
	Video        video.Source      `json:"video"`
	Engine       string            `json:"engine"`
	Tracks       []aggregate.Track `json:"tracks"`
	Regions      int               `json:"regions"`
	Refined      int               `json:"refined_frames"`
	FallbackUsed bool              `json:"fallback_used"`
	Cached       bool              `json:"cached"`
	Segments     []SegmentReport   `json:"segments"`
	Gate         changegate.Stats  `json:"gate"`
	Elapsed      time.Duration     `json:"elapsed"`
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithProbe installs a metadata cross-check run after the decoder probe,
// typically backed by ffprobe. It may fill in a missing frame rate.
func WithProbe(p func(ctx context.Context, src *video.Source) error) Option {
	return func(a *Analyzer) { a.probe = p }
}

// Analyzer detects burned-in Chinese subtitles.
type Analyzer struct {
	opts       Options
	adapter    *ocr.Adapter
	aggregator *aggregate.Aggregator
	band       *fallback.Detector
	cache      Cache
	probe      func(ctx context.Context, src *video.Source) error
	logger     *slog.Logger
}

// New constructs an Analyzer around engine, which may be nil.
func New(opts Options, engine ocr.Engine, logger *slog.Logger, options ...Option) *Analyzer {
	logger = logging.NewComponentLogger(logger, "analysis")
	a := &Analyzer{
		opts: opts,
		adapter: ocr.NewAdapter(engine,
			ocr.WithBatchSize(opts.BatchSize),
			ocr.WithPreprocessor(vision.PreprocessForOCR),
			ocr.WithLogger(logger),
		),
		aggregator: aggregate.New(opts.Aggregate, logger),
		band:       fallback.New(logger),
		logger:     logger,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Engine returns the name of the OCR backend in use.
func (a *Analyzer) Engine() string { return a.adapter.Name() }

// Analyze runs detection over the video at path. When ctx ends during the
// segment scan, the partial result is returned with the context error so
// callers can see which segments were cancelled.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithVideo(services.WithRunID(ctx, runID), path)
	logger := logging.WithContext(ctx, a.logger)

	src, err := video.Probe(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "analysis", "open video", path,
			fmt.Errorf("%w: %w", ErrUnreadable, err))
	}
	if a.probe != nil {
		if err := a.probe(ctx, &src); err != nil {
			logging.WarnWithContext(logger, "metadata cross-check failed", "probe_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "decoder metadata used as-is"),
			)
		}
	}
	if src.FPS <= 0 || src.FrameCount <= 0 {
		return nil, services.Wrap(services.ErrValidation, "analysis", "open video", path,
			fmt.Errorf("%w: frame rate %.3f, %d frames", ErrUnreadable, src.FPS, src.FrameCount))
	}

	res := &Result{RunID: runID, Video: src, Engine: a.adapter.Name()}
	settings := a.opts.SettingsHash(res.Engine)
	if a.cache != nil {
		tracks, ok, err := a.cache.Lookup(ctx, path, settings)
		switch {
		case err != nil:
			logger.Warn("track cache lookup failed", logging.Error(err))
		case ok:
			logger.Info("using cached tracks", logging.Int("tracks", len(tracks)))
			res.Tracks, res.Cached = tracks, true
			res.Elapsed = time.Since(started)
			return res, nil
		}
	}

	logger.Info("analysis started",
		logging.String(logging.FieldEventType, "analysis_start"),
		logging.Int("width", src.Width),
		logging.Int("height", src.Height),
		logging.Float64("fps", src.FPS),
		logging.Int("frames", src.FrameCount),
		logging.String("engine", res.Engine),
	)

	var regions []classify.Region
	ocrFrames := make(map[int]struct{})
	if a.adapter.Available() {
		var gate changegate.Stats
		regions, res.Segments, gate = a.scanSegments(ctx, src, ocrFrames)
		res.Gate = gate
	} else {
		logging.WarnWithContext(logger, "ocr unavailable; skipping segment scan", "ocr_unavailable",
			logging.String(logging.FieldImpact, "edge-density band detection only"),
		)
	}
	if err := ctx.Err(); err != nil {
		res.Elapsed = time.Since(started)
		return res, err
	}

	tracks := a.aggregator.Aggregate(regions)
	if len(regions) > 0 && a.opts.RefineBoundaries {
		extra := a.refine(ctx, src, tracks, ocrFrames)
		res.Refined = len(extra.frames)
		if len(extra.regions) > 0 {
			regions = append(regions, extra.regions...)
			sortRegions(regions)
			tracks = a.aggregator.Aggregate(regions)
		}
	}
	res.Regions = len(regions)

	if len(regions) == 0 {
		bandTracks, err := a.detectBand(ctx, src)
		if err != nil {
			logger.Warn("fallback band detection failed", logging.Error(err))
		}
		tracks = bandTracks
		res.FallbackUsed = true
	}
	if tracks == nil {
		tracks = []aggregate.Track{}
	}
	aggregate.SortTracks(tracks)
	res.Tracks = tracks
	res.Elapsed = time.Since(started)

	if a.cache != nil {
		if err := a.cache.Store(ctx, path, settings, tracks); err != nil {
			logger.Warn("track cache store failed", logging.Error(err))
		}
	}

	logger.Info("analysis complete",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Int("regions", res.Regions),
		logging.Int("tracks", len(tracks)),
		logging.Int("refined_frames", res.Refined),
		logging.Bool("fallback", res.FallbackUsed),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func cancelledReason(ctx context.Context) string {
	return "cancelled: " + context.Cause(ctx).Error()
}

type segmentResult struct {
	report  SegmentReport
	regions []classify.Region
	ocr     []int
	gate    changegate.Stats
}

// scanSegments runs the worker pool and merges its output in segment order.
func (a *Analyzer) scanSegments(ctx context.Context, src video.Source, ocrFrames map[int]struct{}) ([]classify.Region, []SegmentReport, changegate.Stats) {
	segments := sampling.Segments(src.Duration(), a.opts.SegmentLength, a.opts.MinSegment)
	workers := a.opts.workerCount(len(segments))
	a.logger.Debug("segment pool starting",
		logging.Int("segments", len(segments)),
		logging.Int("workers", workers),
	)

	jobs := make(chan sampling.Segment)
	results := make([]segmentResult, len(segments))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.worker(ctx, src, jobs, results)
		}()
	}
	dispatched := 0
	for _, seg := range segments {
		select {
		case jobs <- seg:
			dispatched++
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	for _, seg := range segments[dispatched:] {
		results[seg.Index] = segmentResult{report: SegmentReport{
			Name: seg.Name, Start: seg.Start, End: seg.End, Error: cancelledReason(ctx),
		}}
	}

	var (
		regions []classify.Region
		reports []SegmentReport
		stats   changegate.Stats
	)
	for _, r := range results {
		if r.report.Name == "" {
			continue
		}
		regions = append(regions, r.regions...)
		reports = append(reports, r.report)
		stats.Add(r.gate)
		for _, f := range r.ocr {
			ocrFrames[f] = struct{}{}
		}
	}
	sortRegions(regions)
	return regions, reports, stats
}

func (a *Analyzer) worker(ctx context.Context, src video.Source, jobs <-chan sampling.Segment, results []segmentResult) {
	reader, err := src.Open()
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, a.logger), "worker could not open decoder", "decoder_open_failed",
			logging.Error(err),
		)
		for seg := range jobs {
			results[seg.Index] = segmentResult{report: SegmentReport{
				Name: seg.Name, Start: seg.Start, End: seg.End, Error: err.Error(),
			}}
		}
		return
	}
	defer reader.Close()

	for seg := range jobs {
		results[seg.Index] = a.runSegment(ctx, reader, src, seg)
	}
}

// runSegment isolates one segment: a panic or error is logged and the
// segment contributes no regions.
func (a *Analyzer) runSegment(ctx context.Context, reader *video.Reader, src video.Source, seg sampling.Segment) (res segmentResult) {
	ctx = services.WithSegment(ctx, seg.Name)
	logger := logging.WithContext(ctx, a.logger)
	res.report = SegmentReport{Name: seg.Name, Start: seg.Start, End: seg.End}
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "segment panicked; results discarded", "segment_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldImpact, "segment contributes no detections"),
			)
			res.regions = nil
			res.report.Regions = 0
			res.report.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	gate := changegate.New(a.opts.Gate, a.logger)
	defer gate.Close()

	plan := sampling.Plan{
		Segment:          seg,
		FPS:              src.FPS,
		TotalFrames:      src.FrameCount,
		CriticalWindow:   a.opts.CriticalWindow,
		CriticalInterval: a.opts.CriticalInterval,
		DefaultInterval:  a.opts.DefaultInterval,
		GateActive:       a.opts.GateEnabled,
	}
	indices := sampling.FrameIndices(plan)
	var gateFn func(f frameJob) bool
	if a.opts.GateEnabled {
		gateFn = func(f frameJob) bool {
			ok, _ := gate.ShouldProcess(f.mat, f.time)
			return ok
		}
	}
	scan := a.scanFrames(ctx, reader, src, indices, gateFn)
	res.regions = scan.regions
	res.ocr = scan.ocr
	res.gate = gate.Stats()
	res.report.Sampled = scan.decoded
	res.report.OCRFrames = len(scan.ocr)
	res.report.Regions = len(scan.regions)
	if ctx.Err() != nil {
		res.report.Error = cancelledReason(ctx)
	}

	logger.Debug("segment complete",
		logging.Int("sampled", scan.decoded),
		logging.Int("ocr_frames", len(scan.ocr)),
		logging.Int("regions", len(scan.regions)),
	)
	return res
}

func (a *Analyzer) detectBand(ctx context.Context, src video.Source) ([]aggregate.Track, error) {
	reader, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	tracks, _ := a.band.Detect(ctx, reader, src.FrameCount, src.Duration())
	return tracks, nil
}

func sortRegions(regions []classify.Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].Time != regions[j].Time {
			return regions[i].Time < regions[j].Time
		}
		if regions[i].Y != regions[j].Y {
			return regions[i].Y < regions[j].Y
		}
		return regions[i].X < regions[j].X
	})
}
