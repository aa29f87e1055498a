package blur

import (
	"context"
	"fmt"
	"log/slog"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/logging"
	"hanziblur/internal/media/video"
)

// RenderRequest bundles what RenderFile needs.
type RenderRequest struct {
	Source  video.Source
	Tracks  []aggregate.Track
	Output  string
	Codec   string
	Options Options
}

// RenderFile plans regions for the tracks and writes a blurred copy of the
// source video to req.Output. Audio is not carried over.
func RenderFile(ctx context.Context, req RenderRequest, logger *slog.Logger) (Stats, error) {
	src := req.Source
	regions := Plan(req.Tracks, src.Width, src.Height, src.Duration(), req.Options)
	comp := NewCompositor(regions, src.Width, src.Height, req.Options, logger)

	reader, err := src.Open()
	if err != nil {
		return Stats{}, err
	}
	defer reader.Close()

	writer, err := video.Create(req.Output, req.Codec, src.FPS, src.Width, src.Height)
	if err != nil {
		return Stats{}, err
	}

	comp.logger.Info("blur render starting",
		logging.String("output", req.Output),
		logging.Int("tracks", len(req.Tracks)),
		logging.Int("regions", len(regions)),
		logging.Bool("stabilize", req.Options.Stabilize),
	)

	stats, procErr := comp.Process(ctx, reader, writer, src.FPS, src.Duration())
	if err := writer.Close(); err != nil && procErr == nil {
		procErr = fmt.Errorf("finalize %s: %w", req.Output, err)
	}
	return stats, procErr
}
