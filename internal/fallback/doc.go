// Package fallback guesses a subtitle band from edge density when OCR is
// unavailable or found nothing.
//
// The detector samples a handful of frames across the whole video, crops
// the band where burned-in captions usually sit, and measures the share of
// Canny edge pixels. A consistently busy band yields one full-duration
// track covering it.
package fallback
