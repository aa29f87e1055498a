package ocr

// Backend names accepted in the ocr.backends configuration list.
const (
	BackendGLM       = "glm"
	BackendTesseract = "tesseract"
)

// Select returns the first candidate that is non-nil and reports itself
// available. Candidates are expected in priority order (cloud before local).
// It returns nil when no backend can serve requests.
func Select(candidates ...Engine) Engine {
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if c.Available() {
			return c
		}
	}
	return nil
}
