package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateGate(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateClustering(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateBlur(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSampling() error {
	d := c.Detector
	if d.SegmentLengthSeconds <= 0 {
		return errors.New("detector.segment_length_s must be positive")
	}
	if d.MinSegmentSeconds < 0 || d.MinSegmentSeconds > d.SegmentLengthSeconds {
		return errors.New("detector.min_segment_s must be between 0 and detector.segment_length_s")
	}
	if d.CriticalWindowSeconds < 0 {
		return errors.New("detector.critical_window_s must be non-negative")
	}
	if d.CriticalIntervalSeconds <= 0 {
		return errors.New("detector.critical_interval_s must be positive")
	}
	if d.DefaultIntervalSeconds <= 0 {
		return errors.New("detector.default_interval_s must be positive")
	}
	if d.Workers < 0 {
		return errors.New("detector.workers must be 0 (auto) or positive")
	}
	if d.DownscaleTargetWidth <= 0 || d.DownscaleTriggerWidth < d.DownscaleTargetWidth {
		return errors.New("detector.downscale_trigger_width must be >= detector.downscale_target_width > 0")
	}
	if d.ROIBottomPercent <= 0 || d.ROIBottomPercent > 100 {
		return errors.New("detector.roi_bottom_percent must be in (0, 100]")
	}
	return nil
}

func (c *Config) validateGate() error {
	d := c.Detector
	if d.FastThreshold < 0 || d.FastThreshold > 255 {
		return errors.New("detector.fast_threshold must be between 0 and 255")
	}
	if d.ConfirmThreshold < 0 || d.ConfirmThreshold > 1 {
		return errors.New("detector.confirm_threshold must be between 0 and 1")
	}
	if d.MinOCRIntervalSeconds < 0 {
		return errors.New("detector.min_ocr_interval_s must be non-negative")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	d := c.Detector
	if d.CollectionConfidenceFloor < 0 || d.CollectionConfidenceFloor > 1 {
		return errors.New("detector.collection_confidence_floor must be between 0 and 1")
	}
	if d.TrustConfidenceFloor < 0 || d.TrustConfidenceFloor > 1 {
		return errors.New("detector.trust_confidence_floor must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateClustering() error {
	d := c.Detector
	if d.ClusterIoU <= 0 || d.ClusterIoU >= 1 {
		return errors.New("detector.cluster_iou must be between 0 and 1 (exclusive)")
	}
	if d.MergeIoU <= 0 || d.MergeIoU >= 1 {
		return errors.New("detector.merge_iou must be between 0 and 1 (exclusive)")
	}
	switch d.MergeMode {
	case "union", "weighted":
	default:
		return fmt.Errorf("detector.merge_mode must be union or weighted, got %q", d.MergeMode)
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.BatchSize <= 0 {
		return errors.New("ocr.batch_size must be positive")
	}
	for _, backend := range c.OCR.Backends {
		switch backend {
		case "glm", "tesseract":
		default:
			return fmt.Errorf("ocr.backends: unknown backend %q (expected glm or tesseract)", backend)
		}
	}
	return nil
}

func (c *Config) validateBlur() error {
	if c.Blur.TimeBufferSeconds < 0 {
		return errors.New("blur.time_buffer_s must be non-negative")
	}
	if len(c.Blur.Codec) != 4 {
		return fmt.Errorf("blur.codec must be a four character code, got %q", c.Blur.Codec)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	levels := map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
	if _, ok := levels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	for component, level := range c.Logging.ComponentLevels {
		if _, ok := levels[level]; !ok {
			return fmt.Errorf("logging.component_levels.%s: invalid level %q", component, level)
		}
	}
	return nil
}
