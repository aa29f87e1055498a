// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The decoder reports frame rate and frame count from container headers that
// are sometimes wrong (variable frame rate phone footage, missing indexes).
// Analysis cross-checks those values against ffprobe's stream metadata when
// the binary is installed.
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods on Result expose the first video stream, its frame rate and
// frame count, and the container duration.
package ffprobe
