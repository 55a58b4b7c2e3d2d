package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/superpoupe/backend/internal/domain"
)

// Scoring weights
const (
	fuzzyWeightFactor  = 0.8  // fuzzy token matches count 80% of an exact one
	unitMatchBonus     = 10.0 // same package size
	substringBonus     = 10.0 // one name contains the other
	defaultMinScore    = 50.0
	fuzzyEditDistance  = 1
	minFuzzyTokenRunes = 4
)

// comparisonStopWords are dropped before scoring: articles, prepositions,
// unit words and packaging terms
var comparisonStopWords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "de": true, "da": true,
	"do": true, "das": true, "dos": true, "e": true, "em": true, "com": true,
	"sem": true, "para": true, "por": true, "ao": true, "na": true, "no": true,
	"kg": true, "g": true, "gr": true, "grs": true, "mg": true, "l": true,
	"lt": true, "lts": true, "ml": true, "cl": true, "dl": true, "un": true,
	"und": true, "unid": true, "unidades": true, "x": true,
	"emb": true, "embalagem": true, "pack": true, "pacote": true, "caixa": true,
	"garrafa": true, "lata": true, "frasco": true, "saco": true, "cuvete": true,
	"aprox": true, "cerca": true, "promocao": true, "novo": true, "nova": true,
}

// ComparisonServiceConfig holds configuration for the comparison service
type ComparisonServiceConfig struct {
	MinScore            float64
	EnableFuzzyMatching bool
}

// ComparisonService finds the same product in other stores
type ComparisonService struct {
	store    domain.CatalogStore
	logger   zerolog.Logger
	minScore float64
	fuzzy    bool
}

// NewComparisonService creates a new comparison service with the given configuration
func NewComparisonService(store domain.CatalogStore, logger zerolog.Logger, config ComparisonServiceConfig) *ComparisonService {
	minScore := config.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	return &ComparisonService{
		store:    store,
		logger:   logger.With().Str("component", "comparison").Logger(),
		minScore: minScore,
		fuzzy:    config.EnableFuzzyMatching,
	}
}

// Compare returns the best-scoring equivalent of productID in each other
// store, ordered by price. Candidates scoring below the minimum are dropped.
func (s *ComparisonService) Compare(ctx context.Context, productID string) (*domain.PriceComparison, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.ErrInvalidRequest
	}

	reference, err := s.store.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates(ctx, *reference)
	if err != nil {
		return nil, err
	}

	// raw scores exceed 100 when bonuses stack; they rank candidates of one
	// store, the reported score is capped
	type scored struct {
		match domain.ProductMatch
		raw   float64
	}
	best := make(map[domain.StoreID]scored)
	for _, c := range candidates {
		if c.Store == reference.Store {
			continue
		}

		raw, matched := s.score(*reference, c)
		s.logger.Debug().
			Str("candidate", c.Name).
			Str("store", string(c.Store)).
			Float64("score", raw).
			Strs("matched", matched).
			Msg("scored candidate")

		if raw < s.minScore {
			continue
		}
		current, ok := best[c.Store]
		if !ok || raw > current.raw || (raw == current.raw && c.Price < current.match.Price) {
			best[c.Store] = scored{
				match: domain.ProductMatch{Product: c, Score: min(raw, 100), MatchedTokens: matched},
				raw:   raw,
			}
		}
	}

	comparison := &domain.PriceComparison{Reference: *reference, Matches: []domain.ProductMatch{}}
	for _, b := range best {
		comparison.Matches = append(comparison.Matches, b.match)
	}
	sort.Slice(comparison.Matches, func(i, j int) bool {
		a, b := comparison.Matches[i], comparison.Matches[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.Store < b.Store
	})

	if len(comparison.Matches) > 0 {
		cheapest := comparison.Matches[0]
		comparison.Cheapest = &cheapest
		savings := decimal.NewFromFloat(reference.Price).Sub(decimal.NewFromFloat(cheapest.Price))
		if savings.IsPositive() {
			comparison.Savings = savings.Round(2).InexactFloat64()
		}
	}

	return comparison, nil
}

// candidates gathers listings sharing the reference's strongest token or its category
func (s *ComparisonService) candidates(ctx context.Context, reference domain.Product) ([]domain.Product, error) {
	var filters []domain.ProductFilter
	if token := longestToken(tokenizeName(reference.Name)); token != "" {
		filters = append(filters, domain.ProductFilter{TextSearch: token})
	}
	if reference.Category != "" {
		filters = append(filters, domain.ProductFilter{Category: reference.Category})
	}

	seen := make(map[string]bool)
	var out []domain.Product
	for _, f := range filters {
		products, err := s.store.Query(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			if p.ID == reference.ID || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// score computes the similarity of a candidate to the reference, 0-100
// before bonuses:
//   - reference token coverage (60%)
//   - candidate token coverage (20%)
//   - Jaccard over exact tokens (20%)
//
// plus bonuses for the same unit and for one name containing the other.
func (s *ComparisonService) score(reference, candidate domain.Product) (float64, []string) {
	refTokens := tokenizeName(reference.Name)
	candTokens := tokenizeName(candidate.Name)
	if len(refTokens) == 0 || len(candTokens) == 0 {
		return 0, nil
	}

	refWeight, matched := s.coverage(refTokens, candTokens)
	candWeight, _ := s.coverage(candTokens, refTokens)

	exact, _ := findIntersection(refTokens, candTokens)
	jaccard := float64(exact) / float64(findUnion(refTokens, candTokens))

	score := (refWeight/float64(len(refTokens))*0.60 +
		candWeight/float64(len(candTokens))*0.20 +
		jaccard*0.20) * 100

	if sameUnit(reference.Unit, candidate.Unit) {
		score += unitMatchBonus
	}

	refName := strings.Join(refTokens, " ")
	candName := strings.Join(candTokens, " ")
	if strings.Contains(candName, refName) || strings.Contains(refName, candName) {
		score += substringBonus
	}

	return score, matched
}

// coverage sums the weight of tokens in from that appear in to, exactly or
// within the fuzzy edit distance
func (s *ComparisonService) coverage(from, to []string) (float64, []string) {
	set := make(map[string]bool, len(to))
	for _, t := range to {
		set[t] = true
	}

	var weight float64
	var matched []string
	for _, t := range from {
		if set[t] {
			weight++
			matched = append(matched, t)
			continue
		}
		if !s.fuzzy {
			continue
		}
		for _, other := range to {
			if fuzzyTokenMatch(t, other, fuzzyEditDistance) {
				weight += fuzzyWeightFactor
				matched = append(matched, t)
				break
			}
		}
	}
	return weight, matched
}

// tokenizeName folds a product name into scoring tokens, dropping stop words,
// numbers and single characters. Duplicates are removed.
func tokenizeName(name string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range foldWords(name) {
		if len(w) <= 1 || comparisonStopWords[w] || isNumeric(w) || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

func longestToken(tokens []string) string {
	var longest string
	for _, t := range tokens {
		if len(t) > len(longest) {
			longest = t
		}
	}
	return longest
}

// sameUnit compares package sizes ignoring case, spaces and accents.
// The default unit carries no information and never matches.
func sameUnit(a, b string) bool {
	if a == domain.DefaultUnit || b == domain.DefaultUnit {
		return false
	}
	ka, kb := normalizeKey(a), normalizeKey(b)
	return ka != "" && ka == kb
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	r1, r2 := []rune(token1), []rune(token2)
	// Short tokens produce too many false positives ("sal" vs "sol")
	if len(r1) < minFuzzyTokenRunes || len(r2) < minFuzzyTokenRunes {
		return false
	}

	lenDiff := len(r1) - len(r2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
