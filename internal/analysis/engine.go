package analysis

import (
	"log/slog"

	"hanziblur/internal/config"
	"hanziblur/internal/logging"
	"hanziblur/internal/ocr"
	"hanziblur/internal/ocr/tesseract"
	"hanziblur/internal/services/glmocr"
)

// EngineFromConfig builds the configured OCR backends in priority order
// and returns the first available one, or nil when none can serve.
func EngineFromConfig(cfg *config.Config, logger *slog.Logger) ocr.Engine {
	logger = logging.NewComponentLogger(logger, "ocr")
	var candidates []ocr.Engine
	for _, name := range cfg.OCR.Backends {
		switch name {
		case ocr.BackendGLM:
			if cfg.OCR.GLMAPIKey == "" {
				logger.Debug("glm backend skipped; no api key")
				continue
			}
			candidates = append(candidates, glmocr.NewClient(glmocr.Config{
				APIKey:           cfg.OCR.GLMAPIKey,
				BaseURL:          cfg.OCR.GLMBaseURL,
				Model:            cfg.OCR.GLMModel,
				TimeoutSeconds:   cfg.OCR.GLMTimeoutSeconds,
				FailureThreshold: cfg.OCR.GLMFailureThreshold,
			}, glmocr.WithLogger(logger)))
		case ocr.BackendTesseract:
			candidates = append(candidates, tesseract.New(
				tesseract.WithBinary(cfg.TesseractBinary()),
				tesseract.WithLanguage(cfg.OCR.TesseractLanguage),
				tesseract.WithLogger(logger),
			))
		default:
			logger.Warn("unknown ocr backend ignored", logging.String("backend", name))
		}
	}
	engine := ocr.Select(candidates...)
	if engine == nil {
		logging.WarnWithContext(logger, "no OCR backend available", "ocr_unavailable",
			logging.String(logging.FieldErrorHint, "install tesseract with chi_sim data or set GLM_OCR_API_KEY"),
			logging.String(logging.FieldImpact, "detection falls back to the edge-density band"),
		)
		return nil
	}
	logger.Info("ocr backend selected", logging.String("backend", engine.Name()))
	return engine
}
