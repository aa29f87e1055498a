// Package services defines shared utilities consumed by the analysis pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, source video paths, and
//     segment names for logging.
//   - Structured error markers plus the Wrap helper so the CLI can translate
//     failures into consistent exit codes.
//
// Remote integrations live in subpackages (for example glmocr).
package services
