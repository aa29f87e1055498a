package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// NormalizeOCRText applies NFKC normalization and width folding, drops
// control characters, and collapses runs of whitespace into single spaces.
func NormalizeOCRText(text string) string {
	if text == "" {
		return ""
	}
	folded := width.Fold.String(norm.NFKC.String(text))
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ContainsHan reports whether text holds at least one rune in the CJK Unified
// Ideographs block (U+4E00..U+9FFF).
func ContainsHan(text string) bool {
	return CountHan(text) > 0
}

// CountHan counts runes in the CJK Unified Ideographs block.
func CountHan(text string) int {
	n := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			n++
		}
	}
	return n
}

// Preview shortens text to at most n runes for logs and blur box labels.
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
