package analysis

import (
	"context"
	"image"

	"gocv.io/x/gocv"

	"hanziblur/internal/classify"
	"hanziblur/internal/logging"
	"hanziblur/internal/media/video"
	"hanziblur/internal/ocr"
	"hanziblur/internal/vision"
)

type frameJob struct {
	index int
	time  float64
	mat   gocv.Mat
}

type pendingFrame struct {
	index int
	time  float64
	img   image.Image
	frame classify.Frame
}

type scanResult struct {
	regions []classify.Region
	ocr     []int
	decoded int
}

// scanFrames decodes indices in order, asks gate (when set) whether each
// downscaled frame is worth reading, and runs OCR in batches of the adapter's
// batch size. Frames that fail to decode are skipped.
func (a *Analyzer) scanFrames(ctx context.Context, reader *video.Reader, src video.Source, indices []int, gate func(frameJob) bool) scanResult {
	var (
		res     scanResult
		pending []pendingFrame
	)
	batch := 1
	if a.adapter.SupportsBatch() {
		batch = max(1, a.adapter.BatchSize())
	}
	frame := gocv.NewMat()
	defer frame.Close()

	for _, idx := range indices {
		if ctx.Err() != nil {
			break
		}
		if !reader.ReadAt(idx, &frame) || frame.Empty() {
			continue
		}
		res.decoded++
		t := src.TimeOf(idx)

		small, scale := vision.Downscale(frame, a.opts.DownscaleTrigger, a.opts.DownscaleTarget)
		if gate != nil && !gate(frameJob{index: idx, time: t, mat: small}) {
			small.Close()
			continue
		}
		roi, offset := vision.BottomROI(small, a.opts.ROIBottomPercent)
		small.Close()
		img, err := vision.ToImage(roi)
		roi.Close()
		if err != nil {
			a.logger.Debug("frame conversion failed", logging.Int("frame", idx), logging.Error(err))
			continue
		}
		pending = append(pending, pendingFrame{
			index: idx,
			time:  t,
			img:   img,
			frame: classify.Frame{Width: src.Width, Height: src.Height, Scale: scale, OffsetY: offset},
		})
		if len(pending) >= batch {
			a.flush(ctx, pending, &res)
			pending = pending[:0]
		}
	}
	if len(pending) > 0 && ctx.Err() == nil {
		a.flush(ctx, pending, &res)
	}
	return res
}

func (a *Analyzer) flush(ctx context.Context, pending []pendingFrame, res *scanResult) {
	var results [][]ocr.Detection
	if len(pending) > 1 && a.adapter.SupportsBatch() {
		imgs := make([]image.Image, len(pending))
		for i, p := range pending {
			imgs[i] = p.img
		}
		results = a.adapter.ReadBatch(ctx, imgs)
	} else {
		results = make([][]ocr.Detection, len(pending))
		for i, p := range pending {
			results[i] = a.adapter.ReadText(ctx, p.img)
		}
	}
	for i, p := range pending {
		res.ocr = append(res.ocr, p.index)
		if i >= len(results) {
			continue
		}
		res.regions = append(res.regions, classify.Classify(results[i], p.frame, p.time, p.index, a.opts.Policy)...)
	}
}
