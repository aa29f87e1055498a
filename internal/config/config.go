package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
	OutputDir string `toml:"output_dir"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFprobe   string `toml:"ffprobe"`
	Tesseract string `toml:"tesseract"`
}

// Detector holds sampling, gating, classification and clustering settings.
type Detector struct {
	SegmentLengthSeconds    float64 `toml:"segment_length_s"`
	MinSegmentSeconds       float64 `toml:"min_segment_s"`
	CriticalWindowSeconds   float64 `toml:"critical_window_s"`
	CriticalIntervalSeconds float64 `toml:"critical_interval_s"`
	DefaultIntervalSeconds  float64 `toml:"default_interval_s"`
	Workers                 int     `toml:"workers"`

	// Change gate
	GateEnabled           bool    `toml:"gate_enabled"`
	FastThreshold         float64 `toml:"fast_threshold"`
	ConfirmThreshold      float64 `toml:"confirm_threshold"`
	MinOCRIntervalSeconds float64 `toml:"min_ocr_interval_s"`

	// Frame preparation
	DownscaleTriggerWidth int     `toml:"downscale_trigger_width"`
	DownscaleTargetWidth  int     `toml:"downscale_target_width"`
	ROIBottomPercent      float64 `toml:"roi_bottom_percent"`

	// Classification
	CollectionConfidenceFloor float64 `toml:"collection_confidence_floor"`
	TrustConfidenceFloor      float64 `toml:"trust_confidence_floor"`

	// Aggregation
	ClusterIoU    float64 `toml:"cluster_iou"`
	MergeIoU      float64 `toml:"merge_iou"`
	MergeMode     string  `toml:"merge_mode"`
	ScoringFilter bool    `toml:"scoring_filter"`

	// Boundary refinement
	RefineBoundaries bool `toml:"refine_boundaries"`
	RefineMaxFrames  int  `toml:"refine_max_frames"`
}

// OCR contains backend selection and remote API settings.
type OCR struct {
	// Backends lists engines in priority order; the first available wins.
	Backends            []string `toml:"backends"`
	BatchSize           int      `toml:"batch_size"`
	GLMAPIKey           string   `toml:"glm_api_key"`
	GLMBaseURL          string   `toml:"glm_base_url"`
	GLMModel            string   `toml:"glm_model"`
	GLMTimeoutSeconds   int      `toml:"glm_timeout_seconds"`
	GLMFailureThreshold int      `toml:"glm_failure_threshold"`
	TesseractLanguage   string   `toml:"tesseract_language"`
}

// Blur contains compositor settings.
type Blur struct {
	Stabilize         bool    `toml:"stabilize"`
	TimeBufferSeconds float64 `toml:"time_buffer_s"`
	Codec             string  `toml:"codec"`
}

// Cache contains configuration for the analysis result cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format          string            `toml:"format"`
	Level           string            `toml:"level"`
	ComponentLevels map[string]string `toml:"component_levels"`
}

// Config encapsulates all configuration values for hanziblur.
//
// Configuration sections by subsystem:
//   - Paths: log, cache, and default output directories
//   - Tools: external binaries (ffprobe, tesseract)
//   - Detector: sampling cadence, change gate, classifier floors, clustering
//   - OCR: backend priority, batch size, GLM-OCR credentials
//   - Blur: compositor buffers and output codec
//   - Cache: SQLite result cache
//   - Logging: log format and levels
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools"`
	Detector Detector `toml:"detector"`
	OCR      OCR      `toml:"ocr"`
	Blur     Blur     `toml:"blur"`
	Cache    Cache    `toml:"cache"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hanziblur.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and cache directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.Cache.Enabled {
		dirs = append(dirs, c.Paths.CacheDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return "ffprobe"
}

// TesseractBinary returns the tesseract executable checked during preflight.
func (c *Config) TesseractBinary() string {
	if bin := strings.TrimSpace(c.Tools.Tesseract); bin != "" {
		return bin
	}
	return "tesseract"
}

// HasBackend reports whether name appears in the OCR backend priority list.
func (c *Config) HasBackend(name string) bool {
	for _, backend := range c.OCR.Backends {
		if strings.EqualFold(strings.TrimSpace(backend), name) {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
