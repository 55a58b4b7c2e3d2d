package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FoldText lowercases s and strips diacritics ("Pão" -> "pao"). Catalog
// text search compares folded forms on every store backend.
func FoldText(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
