package usecase

import (
	"strings"
	"unicode"

	"github.com/superpoupe/backend/internal/domain"
)

// foldText lowercases s and strips diacritics ("Pão" -> "pao")
func foldText(s string) string {
	return domain.FoldText(s)
}

// normalizeKey folds s and keeps only ASCII letters and digits
func normalizeKey(s string) string {
	folded := foldText(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// foldWords folds s and splits it into alphanumeric words
func foldWords(s string) []string {
	return strings.FieldsFunc(foldText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
