package ocr

import (
	"context"
	"image"
)

// Noop is an engine that never recognizes anything. It stands in when no
// backend is configured so the pipeline falls through to band detection.
type Noop struct{}

func (Noop) Name() string    { return "none" }
func (Noop) Available() bool { return false }

func (Noop) ReadText(context.Context, image.Image) ([]Detection, error) { return nil, nil }
