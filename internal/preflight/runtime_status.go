package preflight

import (
	"context"
	"strings"

	"hanziblur/internal/config"
	"hanziblur/internal/services/glmocr"
)

// CheckGLMFromConfig evaluates GLM-OCR status from config and connectivity.
func CheckGLMFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "GLM-OCR"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.HasBackend("glm") {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.OCR.GLMAPIKey) == "" {
		return Result{Name: name, Detail: "Missing API key (set GLM_OCR_API_KEY)"}
	}
	return CheckGLM(ctx, glmocr.Config{
		APIKey:           cfg.OCR.GLMAPIKey,
		BaseURL:          cfg.OCR.GLMBaseURL,
		Model:            cfg.OCR.GLMModel,
		TimeoutSeconds:   cfg.OCR.GLMTimeoutSeconds,
		FailureThreshold: cfg.OCR.GLMFailureThreshold,
	})
}
