package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hanziblur/internal/analysis"
	"hanziblur/internal/config"
	"hanziblur/internal/logging"
	"hanziblur/internal/media/ffprobe"
	"hanziblur/internal/media/video"
	"hanziblur/internal/preflight"
	"hanziblur/internal/services"
	"hanziblur/internal/trackcache"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", path, err)
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "ensure directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = services.Wrap(services.ErrConfiguration, "cli", "build logger", "", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// newAnalyzer wires the OCR engine, ffprobe cross-check and optional cache
// from cfg. The returned closer releases the cache.
func (c *commandContext) newAnalyzer(cmd *cobra.Command, useCache bool) (*analysis.Analyzer, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()

	for _, failed := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "analysis continues; run `hanziblur check` for details"),
		)
	}

	options := []analysis.Option{analysis.WithProbe(ffprobeCrossCheck(cfg.FFprobeBinary(), logger))}
	closer := func() {}
	if useCache && cfg.Cache.Enabled {
		store, err := trackcache.Open(ctx, cfg.Cache.Path, logger)
		if err != nil {
			logger.Warn("track cache unavailable", logging.Error(err))
		} else {
			options = append(options, analysis.WithCache(store))
			closer = func() { _ = store.Close() }
		}
	}

	engine := analysis.EngineFromConfig(cfg, logger)
	return analysis.New(analysis.OptionsFromConfig(cfg), engine, logger, options...), closer, nil
}

// ffprobeCrossCheck fills a missing frame rate or frame count from ffprobe
// and logs a disagreement between the decoder and the container.
func ffprobeCrossCheck(binary string, logger *slog.Logger) func(context.Context, *video.Source) error {
	return func(ctx context.Context, src *video.Source) error {
		if _, err := exec.LookPath(binary); err != nil {
			return nil
		}
		res, err := ffprobe.Inspect(ctx, binary, src.Path)
		if err != nil {
			return err
		}
		stream, ok := res.VideoStream()
		if !ok {
			return fmt.Errorf("ffprobe: no video stream in %s", src.Path)
		}
		if fps := stream.FrameRate(); fps > 0 {
			if src.FPS <= 0 {
				src.FPS = fps
			} else if diff := fps - src.FPS; diff > 0.01 || diff < -0.01 {
				logger.Debug("decoder and ffprobe disagree on frame rate",
					logging.Float64("decoder_fps", src.FPS),
					logging.Float64("ffprobe_fps", fps),
				)
			}
		}
		if src.FrameCount <= 0 {
			if n := stream.FrameCount(); n > 0 {
				src.FrameCount = n
			} else if d := res.DurationSeconds(); d > 0 && src.FPS > 0 {
				src.FrameCount = int(d * src.FPS)
			}
		}
		return nil
	}
}

// audioStreamCount reports how many audio streams ffprobe sees in path. The
// boolean is false when ffprobe is missing or fails.
func audioStreamCount(ctx context.Context, binary, path string) (int, bool) {
	if _, err := exec.LookPath(binary); err != nil {
		return 0, false
	}
	res, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return 0, false
	}
	return res.AudioStreamCount(), true
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
