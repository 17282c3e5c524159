// Package textnorm provides accent-insensitive, whitespace-collapsing text
// normalization shared by city matching and domain-filter keyword matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips combining diacritical marks via NFD
// decomposition, collapses runs of whitespace to a single space, and trims
// the result. Callers should never compare caller-supplied strings without
// passing them through Normalize first.
func Normalize(s string) string {
	lower := strings.ToLower(s)
	decomposed := norm.NFD.String(lower)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	return squashSpace(b.String())
}

func squashSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ContainsFold reports whether needle occurs in haystack once both are
// normalized (case-folded and diacritic-stripped).
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Normalize(haystack), Normalize(needle))
}

// EqualFold reports whether a and b are equal once both are normalized.
func EqualFold(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
