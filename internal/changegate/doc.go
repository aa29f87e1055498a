// Package changegate decides which sampled frames are worth an OCR call.
//
// A Gate runs a two-stage cascade per frame. The fast stage compares the
// Canny edge map of the frame against the previous one; a low mean
// difference means nothing on screen changed and the frame is skipped. The
// confirm stage measures grayscale similarity of the last two frames and
// skips near-duplicates. Frames that pass both stages are still rate limited
// so OCR runs at most once per minimum interval.
//
// A Gate holds per-segment state and is not safe for concurrent use; each
// segment worker owns one and calls Reset between segments.
package changegate
