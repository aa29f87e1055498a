// Package trackcache persists analysis results in SQLite so repeated runs
// over an unchanged video with unchanged detector settings skip OCR.
//
// Entries are keyed by the video fingerprint plus a settings hash supplied
// by the caller. A sidecar lock file serializes writers across processes.
package trackcache
