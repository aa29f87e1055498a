package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"hanziblur/internal/logging"
)

// DefaultBatchSize is the number of frames grouped into one batch request.
const DefaultBatchSize = 8

// Preprocessor produces a cleaned-up copy of an image for the retry
// attempt (denoise, blur, adaptive threshold).
type Preprocessor func(image.Image) (image.Image, error)

// AdapterOption customizes an Adapter.
type AdapterOption func(*Adapter)

// WithPreprocessor installs the retry preprocessor.
func WithPreprocessor(p Preprocessor) AdapterOption {
	return func(a *Adapter) { a.preprocess = p }
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithLogger attaches a logger for failure diagnostics.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Adapter wraps an Engine so callers never see errors or panics. A failed
// call is retried once on a preprocessed copy; persistent failures yield an
// empty result.
type Adapter struct {
	engine     Engine
	caps       Capabilities
	preprocess Preprocessor
	batchSize  int
	logger     *slog.Logger

	// mu serializes engine calls unless the engine declares itself
	// concurrent.
	mu sync.Mutex
}

// NewAdapter wraps engine. A nil engine produces an adapter that reports
// itself unavailable and always returns empty results.
func NewAdapter(engine Engine, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		engine:    engine,
		batchSize: DefaultBatchSize,
		logger:    logging.NewNop(),
	}
	if engine != nil {
		a.caps = CapabilitiesOf(engine)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the wrapped engine name or "none".
func (a *Adapter) Name() string {
	if a == nil || a.engine == nil {
		return "none"
	}
	return a.engine.Name()
}

// Available reports whether the wrapped engine can currently serve requests.
func (a *Adapter) Available() bool {
	return a != nil && a.engine != nil && a.engine.Available()
}

// BatchSize returns the configured batch size.
func (a *Adapter) BatchSize() int { return a.batchSize }

// SupportsBatch reports whether ReadBatch will use a native batch call.
func (a *Adapter) SupportsBatch() bool {
	return a.Available() && a.caps.SupportsBatch
}

// ReadText recognizes text in img. It never returns an error; failures are
// logged and produce an empty slice.
func (a *Adapter) ReadText(ctx context.Context, img image.Image) []Detection {
	if !a.Available() || img == nil {
		return nil
	}
	dets, err := a.call(ctx, img)
	if err == nil {
		return dets
	}
	if ctx.Err() != nil {
		return nil
	}
	a.logger.Debug("ocr attempt failed; retrying with preprocessing",
		logging.String("engine", a.Name()),
		logging.Error(err),
	)
	if a.preprocess == nil {
		return nil
	}
	cleaned, perr := a.preprocess(img)
	if perr != nil {
		a.logger.Debug("ocr preprocessing failed", logging.Error(perr))
		return nil
	}
	dets, err = a.call(ctx, cleaned)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "ocr retry failed; frame skipped", "ocr_failed",
			logging.String(logging.FieldErrorHint, "check OCR backend health"),
			logging.String(logging.FieldImpact, "frame contributes no detections"),
			logging.String("engine", a.Name()),
			logging.Error(err),
		)
		return nil
	}
	return dets
}

// ReadBatch recognizes every image, grouping them into batches of BatchSize
// when the engine supports it. The result has one entry per input. A failed
// batch degrades to per-image ReadText calls.
func (a *Adapter) ReadBatch(ctx context.Context, imgs []image.Image) [][]Detection {
	out := make([][]Detection, len(imgs))
	if !a.Available() {
		return out
	}
	if !a.caps.SupportsBatch {
		for i, img := range imgs {
			if ctx.Err() != nil {
				return out
			}
			out[i] = a.ReadText(ctx, img)
		}
		return out
	}
	for start := 0; start < len(imgs); start += a.batchSize {
		if ctx.Err() != nil {
			return out
		}
		end := min(start+a.batchSize, len(imgs))
		chunk := imgs[start:end]
		results, err := a.callBatch(ctx, chunk)
		if err != nil {
			a.logger.Debug("ocr batch failed; falling back to single frames",
				logging.Int("batch_start", start),
				logging.Int("batch_size", len(chunk)),
				logging.Error(err),
			)
			for i, img := range chunk {
				out[start+i] = a.ReadText(ctx, img)
			}
			continue
		}
		if !a.caps.TaggedBatch || len(results) != len(chunk) {
			results = SplitProportional(results, len(chunk))
		}
		copy(out[start:end], results)
	}
	return out
}

func (a *Adapter) call(ctx context.Context, img image.Image) (dets []Detection, err error) {
	if !a.caps.Concurrent {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ocr engine %s panicked: %v", a.engine.Name(), r)
		}
	}()
	return a.engine.ReadText(ctx, img)
}

func (a *Adapter) callBatch(ctx context.Context, imgs []image.Image) (res [][]Detection, err error) {
	batch, ok := a.engine.(BatchEngine)
	if !ok {
		return nil, fmt.Errorf("ocr engine %s does not support batches", a.engine.Name())
	}
	if !a.caps.Concurrent {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ocr engine %s panicked: %v", a.engine.Name(), r)
		}
	}()
	return batch.ReadTextBatch(ctx, imgs)
}

// SplitProportional redistributes untagged batch output across n inputs.
// All detections are flattened in order and dealt out in equal contiguous
// runs. It is a best-effort heuristic: an engine that cannot attribute
// results to inputs gives no better information.
func SplitProportional(results [][]Detection, n int) [][]Detection {
	out := make([][]Detection, n)
	if n == 0 {
		return out
	}
	var flat []Detection
	for _, r := range results {
		flat = append(flat, r...)
	}
	if len(flat) == 0 {
		return out
	}
	per := (len(flat) + n - 1) / n
	for i := 0; i < n; i++ {
		lo := i * per
		if lo >= len(flat) {
			break
		}
		hi := min(lo+per, len(flat))
		out[i] = append([]Detection(nil), flat[lo:hi]...)
	}
	return out
}
