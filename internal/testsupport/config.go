package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"hanziblur/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory. Remote OCR
// is disabled so tests never reach the network unless they opt in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Cache.Path = filepath.Join(base, "cache", "tracks.db")
	cfgVal.OCR.Backends = []string{"tesseract"}
	cfgVal.OCR.GLMAPIKey = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackends replaces the OCR backend priority list.
func WithBackends(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OCR.Backends = append([]string(nil), names...)
	}
}

// WithGLM enables the remote backend against baseURL with a fixed key.
func WithGLM(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OCR.Backends = []string{"glm"}
		b.cfg.OCR.GLMAPIKey = "test-key"
		b.cfg.OCR.GLMBaseURL = baseURL
	}
}

// WithCacheDisabled turns off the analysis result cache.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// points the tool settings at them. With no names, ffprobe and tesseract
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffprobe", "tesseract"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			switch name {
			case "ffprobe":
				b.cfg.Tools.FFprobe = target
			case "tesseract":
				b.cfg.Tools.Tesseract = target
			}
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
