// Package preflight provides readiness checks for the external tools,
// services and filesystem paths hanziblur depends on.
//
// The CLI "check" command runs every check and prints the report; analyze
// and blur run RunAll first and log failures without aborting, because
// analysis degrades to the fallback band detector when OCR is missing.
//
// Each check is gated by its config toggle so unused backends are skipped.
package preflight
