// Package analysis orchestrates subtitle detection for one video.
//
// Analyze probes the file, splits it into fixed-length segments and fans
// them out to a bounded worker pool. Each worker owns its decoder and, per
// segment, its own change gate; only the read-only video.Source descriptor
// and the internally synchronized OCR adapter are shared. Sampled frames
// that pass the gate are downscaled, cropped to the caption region of
// interest, recognized and classified into Regions.
//
// After every worker has joined, Regions are aggregated into Tracks on the
// calling goroutine. When OCR is unavailable or found nothing, the
// edge-density band detector supplies the result instead. Optionally the
// edges of each OCR track are rescanned at a finer cadence before the final
// aggregation.
//
// Only an unreadable input is fatal: ErrUnreadable, wrapped with
// services.ErrValidation. Frame decode errors, OCR failures and segment
// panics are logged and contribute nothing.
package analysis
