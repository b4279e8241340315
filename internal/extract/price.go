package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const defaultWindowRunes = 30

var (
	// Thousands-separated groups, or a bare digit run, immediately followed by 원.
	amountPattern = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+)원`)

	defaultVocabulary = regexp.MustCompile(`(?i)매입|바이백|구매|중고|판매|보상|팔기|buyback|purchase|used|sale|compensation`)

	maxAmount = decimal.NewFromInt(1_000_000_000)
)

// PriceExtractor turns page text into a single buyback price; 0 means none found.
type PriceExtractor interface {
	BestPrice(text string) int64
}

// Heuristic prefers amounts surrounded by buyback vocabulary and falls back
// to the largest amount on the page.
type Heuristic struct {
	WindowRunes int
	Vocabulary  *regexp.Regexp
}

// NewHeuristic returns the default heuristic.
func NewHeuristic() Heuristic {
	return Heuristic{WindowRunes: defaultWindowRunes, Vocabulary: defaultVocabulary}
}

// BestPrice runs the default heuristic.
func BestPrice(text string) int64 {
	return NewHeuristic().BestPrice(text)
}

// BestPrice scans every amount in text. The result is the largest contextual
// amount if any exist, else the largest amount overall, else 0.
func (h Heuristic) BestPrice(text string) int64 {
	window := h.WindowRunes
	if window <= 0 {
		window = defaultWindowRunes
	}
	vocab := h.Vocabulary
	if vocab == nil {
		vocab = defaultVocabulary
	}

	var bestAny, bestContextual int64
	foundContextual := false

	for _, loc := range amountPattern.FindAllStringSubmatchIndex(text, -1) {
		value, ok := parseAmount(text[loc[2]:loc[3]])
		if !ok {
			continue
		}
		if value > bestAny {
			bestAny = value
		}

		if vocab.MatchString(surrounding(text, loc[0], loc[1], window)) {
			foundContextual = true
			if value > bestContextual {
				bestContextual = value
			}
		}
	}

	if foundContextual {
		return bestContextual
	}
	return bestAny
}

func parseAmount(raw string) (int64, bool) {
	value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || value.GreaterThan(maxAmount) {
		return 0, false
	}
	return value.IntPart(), true
}

// surrounding returns up to n runes before start, the match, and up to n runes after end.
func surrounding(text string, start, end, n int) string {
	from := start
	for i := 0; i < n && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < n && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}
	return text[from:to]
}

var _ PriceExtractor = Heuristic{}
