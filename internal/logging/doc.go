// Package logging builds the slog loggers used across the analysis pipeline.
//
// Output is either a one-line console format or JSON, written to stderr and
// the log file. Components tag their loggers with NewComponentLogger, which
// also applies any per-component level from the configuration, and WithContext
// adds the run ID, video and segment carried by a context.
package logging
