package usecase

import "strings"

const (
	// minSplittableLength is the shortest trimmed name worth bisecting
	minSplittableLength = 4
	// splitWindow is how far the bisection point may drift from the center
	splitWindow = 2
	// splitEdgeGuard keeps the bisection point away from both ends
	splitEdgeGuard = 2
)

// SanitizeName collapses a product name that the scrape duplicated
// ("Leite Meio Gordo 1L Leite Meio Gordo 1L") into a single copy.
// Halving is repeated until the name stops changing, so a name copied four
// times collapses to one and the result is stable under reapplication.
func SanitizeName(name string) string {
	text := strings.TrimSpace(name)
	for {
		next, ok := collapseOnce(text)
		if !ok {
			return text
		}
		text = next
	}
}

// collapseOnce tries a character-offset bisection, then a word bisection.
func collapseOnce(text string) (string, bool) {
	runes := []rune(text)
	n := len(runes)
	if n < minSplittableLength {
		return text, false
	}

	for offset := -splitWindow; offset <= splitWindow; offset++ {
		mid := n/2 + offset
		if mid <= splitEdgeGuard || mid >= n-splitEdgeGuard {
			continue
		}
		left := strings.TrimSpace(string(runes[:mid]))
		right := strings.TrimSpace(string(runes[mid:]))
		if strings.ToLower(left) == strings.ToLower(right) {
			return left, true
		}
	}

	words := strings.Fields(text)
	if len(words) >= 4 && len(words)%2 == 0 {
		half := len(words) / 2
		first := strings.Join(words[:half], " ")
		second := strings.Join(words[half:], " ")
		if strings.ToLower(first) == strings.ToLower(second) {
			return first, true
		}
	}

	return text, false
}
