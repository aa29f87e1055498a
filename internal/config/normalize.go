package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDetector()
	c.normalizeOCR()
	c.normalizeBlur()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = filepath.Join(c.Paths.CacheDir, "tracks.db")
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.Tesseract = strings.TrimSpace(c.Tools.Tesseract)
	return nil
}

func (c *Config) normalizeDetector() {
	c.Detector.MergeMode = strings.ToLower(strings.TrimSpace(c.Detector.MergeMode))
	if c.Detector.MergeMode == "" {
		c.Detector.MergeMode = defaultMergeMode
	}
	if c.Detector.RefineMaxFrames <= 0 {
		c.Detector.RefineMaxFrames = defaultRefineMaxFrames
	}
}

func (c *Config) normalizeOCR() {
	if c.OCR.GLMAPIKey == "" {
		for _, key := range []string{"GLM_OCR_API_KEY", "ZHIPU_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.OCR.GLMAPIKey = value
				break
			}
		}
	}
	c.OCR.GLMAPIKey = strings.TrimSpace(c.OCR.GLMAPIKey)
	c.OCR.GLMBaseURL = strings.TrimSpace(c.OCR.GLMBaseURL)
	if c.OCR.GLMBaseURL == "" {
		c.OCR.GLMBaseURL = defaultGLMBaseURL
	}
	c.OCR.GLMModel = strings.TrimSpace(c.OCR.GLMModel)
	if c.OCR.GLMModel == "" {
		c.OCR.GLMModel = defaultGLMModel
	}
	if c.OCR.GLMTimeoutSeconds <= 0 {
		c.OCR.GLMTimeoutSeconds = defaultGLMTimeoutSeconds
	}
	if c.OCR.GLMFailureThreshold <= 0 {
		c.OCR.GLMFailureThreshold = defaultGLMFailureThreshold
	}
	if c.OCR.TesseractLanguage == "" {
		if value, ok := os.LookupEnv("TESSERACT_LANG"); ok {
			c.OCR.TesseractLanguage = value
		}
	}
	c.OCR.TesseractLanguage = strings.TrimSpace(c.OCR.TesseractLanguage)

	backends := make([]string, 0, len(c.OCR.Backends))
	seen := make(map[string]struct{}, len(c.OCR.Backends))
	for _, backend := range c.OCR.Backends {
		name := strings.ToLower(strings.TrimSpace(backend))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		backends = append(backends, name)
	}
	c.OCR.Backends = backends
}

func (c *Config) normalizeBlur() {
	c.Blur.Codec = strings.TrimSpace(c.Blur.Codec)
	if c.Blur.Codec == "" {
		c.Blur.Codec = defaultBlurCodec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.ComponentLevels) > 0 {
		normalized := make(map[string]string, len(c.Logging.ComponentLevels))
		for component, level := range c.Logging.ComponentLevels {
			normalized[strings.ToLower(strings.TrimSpace(component))] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentLevels = normalized
	}
}
