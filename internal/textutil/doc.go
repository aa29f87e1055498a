// Package textutil normalizes OCR output and sanitizes names derived from it.
//
// The primary use cases are:
//   - Folding full-width and compatibility forms so recognizers that emit
//     different code points for the same glyph compare equal
//   - Testing recognized text for CJK ideographs
//   - Sanitizing filenames and path segments for safe filesystem use
package textutil
