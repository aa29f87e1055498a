package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hanziblur/internal/aggregate"
	"hanziblur/internal/analysis"
	"hanziblur/internal/blur"
	"hanziblur/internal/fileutil"
	"hanziblur/internal/logging"
	"hanziblur/internal/media/video"
	"hanziblur/internal/services"
)

func newBlurCommand(ctx *commandContext) *cobra.Command {
	var (
		output     string
		tracksPath string
		noCache    bool
		stabilize  bool
		codec      string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "blur <video>",
		Short: "Write a copy of the video with detected subtitles blurred",
		Long: "Analyze the video (or load tracks from a previous `analyze --json`) and " +
			"write a blurred copy. The output carries video only; audio is not muxed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			input := args[0]

			if strings.TrimSpace(codec) == "" {
				codec = cfg.Blur.Codec
			}
			target := strings.TrimSpace(output)
			if target == "" {
				target = defaultOutputPath(input, cfg.Paths.OutputDir, codec)
			}
			if err := fileutil.PrepareOutput(input, target); err != nil {
				return services.Wrap(services.ErrValidation, "blur", "prepare output", target, err)
			}

			runCtx, cancel := contextWithTimeout(cmd.Context(), timeout)
			defer cancel()

			var (
				src    video.Source
				tracks []aggregate.Track
			)
			if tracksPath != "" {
				if tracks, err = loadTracks(tracksPath); err != nil {
					return err
				}
				if src, err = video.Probe(input); err != nil {
					return services.Wrap(services.ErrValidation, "blur", "open video", input,
						fmt.Errorf("%w: %w", analysis.ErrUnreadable, err))
				}
			} else {
				analyzer, closeCache, err := ctx.newAnalyzer(cmd, !noCache)
				if err != nil {
					return err
				}
				res, err := analyzer.Analyze(runCtx, input)
				closeCache()
				if err != nil {
					return wrapRunError(err, timeout)
				}
				src, tracks = res.Video, res.Tracks
			}

			if n, known := audioStreamCount(runCtx, cfg.FFprobeBinary(), input); !known || n > 0 {
				logging.WarnWithContext(logger, "output contains no audio track", "audio_not_muxed",
					logging.String("output", target),
					logging.Int("source_audio_streams", n),
					logging.String(logging.FieldErrorHint, "remux audio from the source with ffmpeg if needed"),
				)
			}

			stats, err := blur.RenderFile(runCtx, blur.RenderRequest{
				Source: src,
				Tracks: tracks,
				Output: target,
				Codec:  codec,
				Options: blur.Options{
					Stabilize:  stabilize || cfg.Blur.Stabilize,
					TimeBuffer: cfg.Blur.TimeBufferSeconds,
				},
			}, logger)
			if err != nil {
				return wrapRunError(err, timeout)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", target)
			fmt.Fprintf(out, "Frames: %d written, %d blurred across %d tracks\n", stats.Frames, stats.Blurred, len(tracks))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output video path (default: <name>_blurred next to the input or in paths.output_dir)")
	cmd.Flags().StringVar(&tracksPath, "tracks", "", "Use tracks from an `analyze --json` file instead of analyzing")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore and do not update the track cache")
	cmd.Flags().BoolVar(&stabilize, "stabilize", false, "Fuse nearby detections into stable row-wide blur regions")
	cmd.Flags().StringVar(&codec, "codec", "", "FourCC of the output codec (default: blur.codec)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort after this long (0 = no limit)")
	return cmd
}

// loadTracks reads the tracks of a saved analysis result.
func loadTracks(path string) ([]aggregate.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "blur", "read tracks", path, err)
	}
	var res analysis.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, services.Wrap(services.ErrValidation, "blur", "parse tracks", path, err)
	}
	return res.Tracks, nil
}
