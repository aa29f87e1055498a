package deps

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"hanziblur/internal/ocr/tesseract"
)

// CheckTesseractLanguages reports whether the tesseract binary runs and
// which recognition language the local backend would pick. A missing
// chi_sim pack is reported in Detail because Latin-only recognition cannot
// find Chinese subtitles.
func CheckTesseractLanguages(ctx context.Context, binary string, optional bool) Status {
	result := Status{
		Name:        "Tesseract languages",
		Command:     strings.TrimSpace(binary),
		Description: "chi_sim traineddata for local OCR",
		Optional:    optional,
	}
	if result.Command == "" {
		result.Detail = "command not configured"
		return result
	}
	if _, err := exec.LookPath(result.Command); err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", result.Command)
		return result
	}
	langs, err := tesseract.ListLanguages(ctx, result.Command)
	if err != nil {
		result.Detail = fmt.Sprintf("list languages: %v", err)
		return result
	}
	if !slices.Contains(langs, "chi_sim") {
		result.Detail = fmt.Sprintf("chi_sim not installed (have %s)", strings.Join(langs, ", "))
		return result
	}
	result.Available = true
	result.Detail = "using " + tesseract.PickLanguage(langs)
	return result
}
