package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"hanziblur/internal/config"
	"hanziblur/internal/deps"
	"hanziblur/internal/services/glmocr"
)

// glmCheckTimeout bounds the single-attempt GLM-OCR probe.
const glmCheckTimeout = 30 * time.Second

// CheckGLM verifies that the GLM-OCR endpoint is reachable and the key is
// valid. It makes a single attempt.
func CheckGLM(ctx context.Context, cfg glmocr.Config) Result {
	const name = "GLM-OCR"
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, glmCheckTimeout)
	defer cancel()

	client := glmocr.NewClient(cfg, glmocr.WithRetryMaxAttempts(1))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Tesseract is required only when it is the sole OCR backend; ffprobe is
// always optional because the decoder reports the same metadata.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	tesseractOptional := !cfg.HasBackend("tesseract") || cfg.OCR.GLMAPIKey != ""
	statuses := deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Cross-checks frame rate and frame count",
			Optional:    true,
		},
		{
			Name:        "Tesseract",
			Command:     cfg.TesseractBinary(),
			Description: "Local OCR backend",
			Optional:    tesseractOptional,
		},
	})
	if cfg.HasBackend("tesseract") {
		statuses = append(statuses, deps.CheckTesseractLanguages(ctx, cfg.TesseractBinary(), tesseractOptional))
	}
	return statuses
}

// summarizeError produces a human-readable summary for health check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (GLM-OCR unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (GLM-OCR unreachable)"
	}
	return err.Error()
}
