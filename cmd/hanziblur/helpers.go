package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"hanziblur/internal/services"
	"hanziblur/internal/textutil"
)

func contextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, func()) {
	if timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, timeout)
}

// wrapRunError tags a deadline overrun so the exit code reports a timeout.
func wrapRunError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "cli", "run", fmt.Sprintf("exceeded %s", timeout), err)
	}
	return err
}

// defaultOutputPath places "<stem>_blurred.<ext>" in outputDir, or next to
// the input when outputDir is empty. The extension follows the codec.
func defaultOutputPath(input, outputDir, codec string) string {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	stem := textutil.SanitizeFileName(strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)))
	if stem == "" {
		stem = "video"
	}
	return filepath.Join(dir, stem+"_blurred"+extensionForCodec(codec))
}

func extensionForCodec(codec string) string {
	switch strings.ToLower(codec) {
	case "mjpg", "xvid", "divx":
		return ".avi"
	default:
		return ".mp4"
	}
}
