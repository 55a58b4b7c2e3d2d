package usecase

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/superpoupe/backend/internal/domain"
)

// DefaultLookback is how many lines are scanned backward from a price anchor
const DefaultLookback = 12

// minNameLength is the rune count a name must exceed
const minNameLength = 3

// Compiled patterns for the scraped listing format
var (
	// ",99€" on its own line; the euros are on the line above
	centsLinePattern = regexp.MustCompile(`^,(\d{1,2})\s*€$`)

	// "2" or "1.299" on its own line
	integerLinePattern = regexp.MustCompile(`^(?:\d{1,3}(?:\.\d{3})+|\d+)$`)

	// "2,49€" or "1.299,99€" anywhere in a line. The euros must not continue
	// a longer number, so "1.299,99€" never reads as 299,99.
	inlinePricePattern = regexp.MustCompile(`(?:^|[^\d.,])(\d{1,3}(?:\.\d{3})+|\d+),(\d{1,2})\s*€`)

	// "500 g", "1 lt", "6 x 33 cl", "aprox. 1 kg", "12 un"
	unitQuantityPattern = regexp.MustCompile(`(?i)^(?:aprox\.?\s*|cerca de\s*)?\d+(?:[.,]\d+)?\s*(?:x\s*\d+(?:[.,]\d+)?\s*)?(?:kg|g|gr|grs|mg|l|lt|lts|ml|cl|dl|un|und|unid|uni|unidades?|doses?|rolos?|saquetas?|c[aá]psulas?|pares?|pack)\b`)

	// "emb. 1 lt", "Pack of 6", "Garrafa 75 cl"
	unitPackagingPattern = regexp.MustCompile(`(?i)^(?:emb|embalagem|pack|pacote|caixa|garrafa|garraf[aã]o|lata|frasco|saco|cuvete|conjunto|granel)(?:[\s.:]|\d|$)`)

	// "[loja: lidl]", "[category: Frescos]"
	markerLinePattern = regexp.MustCompile(`(?i)^\[\s*(loja|store|categoria|category)\s*[:=]\s*([^\]]*?)\s*\]$`)
)

// defaultNoisePhrases are boilerplate lines retailers interleave with listings.
// They are compared folded (lowercase, no diacritics).
var defaultNoisePhrases = []string{
	"adicionar ao carrinho",
	"adicionar",
	"comprar",
	"novidade",
	"promocao",
	"exclusivo online",
	"mais vendido",
	"ver detalhes",
	"esgotado",
	"indisponivel",
	"add to cart",
}

// ImportParserConfig holds configuration for the import parser
type ImportParserConfig struct {
	Lookback     int
	NoisePhrases []string
	Now          func() time.Time
}

// ParseContext is the store and category selected when the text was pasted.
// Marker lines in the text override it from that point on.
type ParseContext struct {
	Store    domain.StoreID
	Category string
}

// ParseResult holds the deduplicated products recovered from a text
type ParseResult struct {
	Products []domain.Product
	Anchors  int // price anchors recognized
	Skipped  int // anchors with no recoverable name
	Rejected int // candidates failing name or price validation
}

// ImportParser turns pasted retailer listings into products
type ImportParser struct {
	lookback int
	noise    map[string]bool
	now      func() time.Time
}

// NewImportParser creates a new import parser
func NewImportParser(config ImportParserConfig) *ImportParser {
	lookback := config.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	phrases := config.NoisePhrases
	if len(phrases) == 0 {
		phrases = defaultNoisePhrases
	}
	noise := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		noise[foldText(strings.TrimSpace(p))] = true
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &ImportParser{lookback: lookback, noise: noise, now: now}
}

// line is a cleaned input line with the store/category in force where it appears
type line struct {
	text     string
	store    domain.StoreID
	category string
}

// Parse extracts products from raw text. It never fails: anchors that
// cannot be resolved are counted and dropped.
func (p *ImportParser) Parse(text string, ctx ParseContext) ParseResult {
	lines := p.splitLines(text, ctx)
	stamp := p.now().UTC()

	var result ParseResult
	index := make(map[string]int)

	// floor is the first line the backward scan may visit; lines before it
	// belong to an earlier anchor.
	floor := 0
	for i := 0; i < len(lines); i++ {
		price, first, prefix, ok := matchAnchor(lines, i, floor)
		if !ok {
			continue
		}
		result.Anchors++

		name, unit := p.scanBackward(lines, first-1, floor, prefix)
		floor = i + 1

		if name == "" {
			result.Skipped++
			continue
		}

		name = SanitizeName(name)
		if utf8.RuneCountInString(name) <= minNameLength || !price.IsPositive() {
			result.Rejected++
			continue
		}

		if unit == "" {
			unit = domain.DefaultUnit
		}

		category := lines[i].category
		if category == "" {
			category = ClassifyCategory(name)
		}

		product := domain.Product{
			ID:          StableID(name, unit, lines[i].store, ""),
			Name:        name,
			Category:    category,
			Price:       price.Round(2).InexactFloat64(),
			Unit:        unit,
			Store:       lines[i].store,
			LastUpdated: stamp,
		}

		if at, seen := index[product.ID]; seen {
			result.Products[at] = product
			continue
		}
		index[product.ID] = len(result.Products)
		result.Products = append(result.Products, product)
	}

	return result
}

// splitLines trims lines, drops blanks and noise, and applies marker lines
func (p *ImportParser) splitLines(text string, ctx ParseContext) []line {
	store := ctx.Store
	category := ctx.Category
	if category == domain.AllCategories {
		category = ""
	}

	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]line, 0, len(raw))
	for _, r := range raw {
		t := strings.TrimSpace(r)
		if t == "" || p.noise[foldText(t)] {
			continue
		}

		if m := markerLinePattern.FindStringSubmatch(t); m != nil {
			switch strings.ToLower(m[1]) {
			case "loja", "store":
				if id, ok := domain.ParseStoreID(m[2]); ok {
					store = id
				}
			default:
				category = m[2]
			}
			continue
		}

		lines = append(lines, line{text: t, store: store, category: category})
	}
	return lines
}

// matchAnchor reports whether line i is a price anchor. first is the index of
// the first line consumed by the price; prefix is any text preceding an
// inline price on the same line.
func matchAnchor(lines []line, i, floor int) (price decimal.Decimal, first int, prefix string, ok bool) {
	text := lines[i].text

	if m := centsLinePattern.FindStringSubmatch(text); m != nil {
		if i-1 < floor || !integerLinePattern.MatchString(lines[i-1].text) {
			return decimal.Zero, 0, "", false
		}
		price, err := parseEuros(lines[i-1].text, m[1])
		if err != nil {
			return decimal.Zero, 0, "", false
		}
		return price, i - 1, "", true
	}

	matches := inlinePricePattern.FindAllStringSubmatchIndex(text, -1)
	for _, loc := range matches {
		// "1,20 €/kg" is a unit price, not the listing price
		if strings.HasPrefix(strings.TrimSpace(text[loc[1]:]), "/") {
			continue
		}
		price, err := parseEuros(text[loc[2]:loc[3]], text[loc[4]:loc[5]])
		if err != nil {
			return decimal.Zero, 0, "", false
		}
		// the name candidate ends where the first price on the line starts
		return price, i, strings.TrimSpace(text[:matches[0][2]]), true
	}
	return decimal.Zero, 0, "", false
}

// parseEuros joins a euro part ("1.299") and a cents part ("9") into an exact
// amount; the cents part is a decimal fraction, so "9" reads as 0.90
func parseEuros(euros, cents string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(euros, ".", "") + "." + cents)
}

// scanBackward walks from start toward floor looking for the unit and name.
// Units seen before the name replace one another; the first name candidate
// ends the scan.
func (p *ImportParser) scanBackward(lines []line, start, floor int, prefix string) (name, unit string) {
	if prefix != "" {
		if isUnitLine(prefix) {
			unit = prefix
		} else if isNameCandidate(prefix) {
			return prefix, unit
		}
	}

	for j := start; j >= floor && start-j < p.lookback; j-- {
		t := lines[j].text
		if isUnitLine(t) {
			unit = t
			continue
		}
		if isNameCandidate(t) {
			return t, unit
		}
	}
	return "", unit
}

// isUnitLine reports whether t describes a package size or count
func isUnitLine(t string) bool {
	if strings.Contains(t, "€") {
		return false
	}
	return unitQuantityPattern.MatchString(t) || unitPackagingPattern.MatchString(t)
}

// isNameCandidate reports whether t can be a product name
func isNameCandidate(t string) bool {
	if strings.Contains(t, "€") || integerLinePattern.MatchString(t) {
		return false
	}
	return utf8.RuneCountInString(t) > minNameLength
}
