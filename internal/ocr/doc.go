// Package ocr defines the text-recognition capability the detector consumes
// and the adapter that makes any backend safe to call from the segment
// workers.
//
// Backends implement Engine (single image) and optionally BatchEngine. Select
// resolves a priority-ordered candidate list once at startup; Adapter wraps
// the winner, converts errors and panics into empty results, retries once on
// a preprocessed copy of the frame, and serializes calls for engines that are
// not safe for concurrent use.
package ocr
