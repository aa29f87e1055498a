package analysis

import (
	"context"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/classify"
	"hanziblur/internal/logging"
	"hanziblur/internal/media/video"
	"hanziblur/internal/sampling"
)

type refinement struct {
	frames  []int
	regions []classify.Region
}

// refine rescans a margin around every track's first and last sighting at a
// fine cadence so subtitle edges land on the right frame. Frames already
// read during the main pass are not read again.
func (a *Analyzer) refine(ctx context.Context, src video.Source, tracks []aggregate.Track, seen map[int]struct{}) refinement {
	var windows []sampling.Window
	for _, t := range tracks {
		if t.Source != classify.SourceOCR {
			continue
		}
		windows = append(windows,
			sampling.Window{Start: t.FirstSeen - RefineMarginSeconds, End: t.FirstSeen + RefineMarginSeconds},
			sampling.Window{Start: t.LastSeen - RefineMarginSeconds, End: t.LastSeen + RefineMarginSeconds},
		)
	}
	indices := sampling.RefinementIndices(windows, src.FPS, RefineStepSeconds, src.FrameCount, a.opts.RefineMaxFrames, seen)
	if len(indices) == 0 {
		return refinement{}
	}

	reader, err := src.Open()
	if err != nil {
		a.logger.Warn("boundary refinement skipped", logging.Error(err))
		return refinement{}
	}
	defer reader.Close()

	scan := a.scanFrames(ctx, reader, src, indices, nil)
	a.logger.Debug("boundary refinement complete",
		logging.Int("windows", len(windows)),
		logging.Int("frames", len(scan.ocr)),
		logging.Int("regions", len(scan.regions)),
	)
	return refinement{frames: scan.ocr, regions: scan.regions}
}
