package config

const (
	defaultConfigPath = "~/.config/hanziblur/config.toml"
	defaultLogDir     = "~/.local/share/hanziblur/logs"
	defaultCacheDir   = "~/.cache/hanziblur"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"

	defaultSegmentLengthSeconds    = 10.0
	defaultMinSegmentSeconds       = 1.0
	defaultCriticalWindowSeconds   = 3.0
	defaultCriticalIntervalSeconds = 0.1
	defaultDefaultIntervalSeconds  = 0.3
	defaultFastThreshold           = 15.0
	defaultConfirmThreshold        = 0.80
	defaultMinOCRIntervalSeconds   = 0.3
	defaultDownscaleTriggerWidth   = 1920
	defaultDownscaleTargetWidth    = 1440
	defaultROIBottomPercent        = 100.0
	defaultCollectionFloor         = 0.3
	defaultTrustFloor              = 0.98
	defaultClusterIoU              = 0.2
	defaultMergeIoU                = 0.25
	defaultMergeMode               = "union"
	defaultRefineMaxFrames         = 500

	defaultOCRBatchSize        = 8
	defaultGLMBaseURL          = "https://open.bigmodel.cn/api/paas/v4/layout_parsing"
	defaultGLMModel            = "glm-ocr"
	defaultGLMTimeoutSeconds   = 30
	defaultGLMFailureThreshold = 3

	defaultBlurTimeBufferSeconds = 0.6
	defaultBlurCodec             = "mp4v"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir,
		},
		Tools: Tools{
			FFprobe:   "ffprobe",
			Tesseract: "tesseract",
		},
		Detector: Detector{
			SegmentLengthSeconds:      defaultSegmentLengthSeconds,
			MinSegmentSeconds:         defaultMinSegmentSeconds,
			CriticalWindowSeconds:     defaultCriticalWindowSeconds,
			CriticalIntervalSeconds:   defaultCriticalIntervalSeconds,
			DefaultIntervalSeconds:    defaultDefaultIntervalSeconds,
			GateEnabled:               true,
			FastThreshold:             defaultFastThreshold,
			ConfirmThreshold:          defaultConfirmThreshold,
			MinOCRIntervalSeconds:     defaultMinOCRIntervalSeconds,
			DownscaleTriggerWidth:     defaultDownscaleTriggerWidth,
			DownscaleTargetWidth:      defaultDownscaleTargetWidth,
			ROIBottomPercent:          defaultROIBottomPercent,
			CollectionConfidenceFloor: defaultCollectionFloor,
			TrustConfidenceFloor:      defaultTrustFloor,
			ClusterIoU:                defaultClusterIoU,
			MergeIoU:                  defaultMergeIoU,
			MergeMode:                 defaultMergeMode,
			RefineBoundaries:          true,
			RefineMaxFrames:           defaultRefineMaxFrames,
		},
		OCR: OCR{
			Backends:            []string{"glm", "tesseract"},
			BatchSize:           defaultOCRBatchSize,
			GLMBaseURL:          defaultGLMBaseURL,
			GLMModel:            defaultGLMModel,
			GLMTimeoutSeconds:   defaultGLMTimeoutSeconds,
			GLMFailureThreshold: defaultGLMFailureThreshold,
		},
		Blur: Blur{
			TimeBufferSeconds: defaultBlurTimeBufferSeconds,
			Codec:             defaultBlurCodec,
		},
		Cache: Cache{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
