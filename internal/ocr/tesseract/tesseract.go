// Package tesseract is the local OCR backend built on gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/draw"

	"hanziblur/internal/logging"
	"hanziblur/internal/ocr"
)

const (
	// MinTextHeight is the crop height below which images are upscaled.
	MinTextHeight = 48

	// MaxUpscale bounds the upscale factor for very short crops.
	MaxUpscale = 4.0
)

const listLangsTimeout = 10 * time.Second

// languagePreference lists Tesseract language strings in priority order.
var languagePreference = []struct {
	lang  string
	needs []string
}{
	{"chi_sim+eng", []string{"chi_sim", "eng"}},
	{"chi_sim", []string{"chi_sim"}},
	{"eng", []string{"eng"}},
}

// Engine runs Tesseract in-process.
type Engine struct {
	binary    string
	language  string
	logger    *slog.Logger
	newClient func() *gosseract.Client

	once      sync.Once
	available bool
	mu        sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithBinary sets the tesseract executable used for language discovery.
func WithBinary(path string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(path) != "" {
			e.binary = strings.TrimSpace(path)
		}
	}
}

// WithLanguage forces a language string such as "chi_sim+eng".
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = strings.TrimSpace(lang) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New constructs a Tesseract engine. Language discovery is deferred to the
// first Available call.
func New(opts ...Option) *Engine {
	e := &Engine{binary: "tesseract", newClient: gosseract.NewClient}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "ocr.tesseract")
	return e
}

func (e *Engine) Name() string { return ocr.BackendTesseract }

// Available reports whether the tesseract binary is installed. It resolves
// the language string on first use.
func (e *Engine) Available() bool {
	e.once.Do(e.probe)
	return e.available
}

// Language returns the language string in use.
func (e *Engine) Language() string {
	e.once.Do(e.probe)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.language
}

func (e *Engine) probe() {
	if _, err := exec.LookPath(e.binary); err != nil {
		e.logger.Debug("tesseract not found", logging.String("binary", e.binary), logging.Error(err))
		return
	}
	e.available = true
	if e.language != "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), listLangsTimeout)
	defer cancel()
	langs, err := ListLanguages(ctx, e.binary)
	if err != nil {
		e.logger.Warn("tesseract language discovery failed; using eng",
			logging.Error(err),
			logging.String(logging.FieldEventType, "tesseract_langs_failed"),
		)
	}
	e.language = PickLanguage(langs)
	e.logger.Info("tesseract ready", logging.String("language", e.language))
}

// ReadText recognizes word boxes in img. Confidences are scaled to 0..1 and
// words with a negative confidence are dropped.
func (e *Engine) ReadText(ctx context.Context, img image.Image) ([]ocr.Detection, error) {
	if !e.Available() {
		return nil, fmt.Errorf("tesseract unavailable")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaled, factor := upscale(img)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	lang := e.Language()
	dets, err := e.recognize(buf.Bytes(), lang, factor)
	if err != nil && lang != "eng" {
		e.logger.Warn("tesseract language failed; retrying with eng",
			logging.String("language", lang),
			logging.Error(err),
			logging.String(logging.FieldEventType, "tesseract_language_fallback"),
		)
		e.mu.Lock()
		e.language = "eng"
		e.mu.Unlock()
		dets, err = e.recognize(buf.Bytes(), "eng", factor)
	}
	return dets, err
}

func (e *Engine) recognize(data []byte, lang string, factor float64) ([]ocr.Detection, error) {
	client := e.newClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}
	return convertBoxes(boxes, factor), nil
}

func convertBoxes(boxes []gosseract.BoundingBox, factor float64) []ocr.Detection {
	out := make([]ocr.Detection, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" || b.Confidence < 0 {
			continue
		}
		quad := ocr.QuadFromRect(b.Box)
		if factor != 1 {
			for i := range quad {
				quad[i].X /= factor
				quad[i].Y /= factor
			}
		}
		out = append(out, ocr.Detection{
			Quad:       quad,
			Text:       text,
			Confidence: min(1, max(0, b.Confidence/100)),
		})
	}
	return out
}

// upscale enlarges short crops so glyphs reach a readable height. It
// returns the image to recognize and the applied factor.
func upscale(img image.Image) (image.Image, float64) {
	b := img.Bounds()
	if b.Dy() <= 0 || b.Dy() >= MinTextHeight {
		return img, 1
	}
	factor := min(MaxUpscale, float64(MinTextHeight)/float64(b.Dy()))
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(b.Dx())*factor), int(float64(b.Dy())*factor)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, factor
}

// ListLanguages runs "<binary> --list-langs".
func ListLanguages(ctx context.Context, binary string) ([]string, error) {
	cmd := exec.CommandContext(ctx, binary, "--list-langs")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s --list-langs: %w", binary, err)
	}
	return ParseLanguages(string(out)), nil
}

// ParseLanguages extracts language codes from --list-langs output.
func ParseLanguages(output string) []string {
	var langs []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(strings.ToLower(line), "list of available") || strings.ContainsAny(line, " :") {
			continue
		}
		langs = append(langs, line)
	}
	return langs
}

// PickLanguage chooses the best language string available from langs, defaulting to
// eng.
func PickLanguage(langs []string) string {
	have := make(map[string]bool, len(langs))
	for _, l := range langs {
		have[l] = true
	}
	for _, pref := range languagePreference {
		ok := true
		for _, need := range pref.needs {
			ok = ok && have[need]
		}
		if ok {
			return pref.lang
		}
	}
	return "eng"
}
