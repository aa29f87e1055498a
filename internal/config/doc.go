// Package config loads, normalizes, and validates hanziblur configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GLM_OCR_API_KEY and TESSERACT_LANG. The Config type centralizes every
// detector, OCR, blur, and cache knob so the CLI and the analysis pipeline
// resolve settings in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
