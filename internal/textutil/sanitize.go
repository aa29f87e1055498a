package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFileName turns a video file stem into one safe for an output path.
// Path separators and shell-hostile punctuation become "-", runs of
// whitespace become a single "_", and control characters are dropped. Han
// and other letters are kept as-is after NFC composition, so names copied
// from macOS (decomposed) and Linux (composed) map to the same output. A
// leading dot is removed so the output is never hidden. Blank input yields "".
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	var b strings.Builder
	pendingSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if pendingSpace {
			b.WriteByte('_')
			pendingSpace = false
		}
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			r = '-'
		}
		b.WriteRune(r)
	}
	return strings.TrimLeft(b.String(), ".")
}
