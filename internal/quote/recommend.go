package quote

import "github.com/shopspring/decimal"

// DefaultTieBand is the price gap, in whole won, within which the first
// provider is preferred regardless of which offer is higher.
const DefaultTieBand = 500

// Recommender arbitrates between the two provider quotes.
type Recommender struct {
	tieBand decimal.Decimal
}

// NewRecommender builds a Recommender; a non-positive band falls back to DefaultTieBand.
func NewRecommender(tieBand int64) Recommender {
	if tieBand <= 0 {
		tieBand = DefaultTieBand
	}
	return Recommender{tieBand: decimal.NewFromInt(tieBand)}
}

// Recommend picks aladin or yes24, or none when neither is buyable. Within the
// tie band aladin always wins.
func (r Recommender) Recommend(aladin, yes24 ProviderQuote) Provider {
	switch {
	case aladin.IsBuyable && yes24.IsBuyable:
		a := decimal.NewFromInt(aladin.Price)
		b := decimal.NewFromInt(yes24.Price)
		if a.Sub(b).Abs().LessThanOrEqual(r.tieBand) {
			return ProviderAladin
		}
		if a.GreaterThanOrEqual(b) {
			return ProviderAladin
		}
		return ProviderYes24
	case aladin.IsBuyable:
		return ProviderAladin
	case yes24.IsBuyable:
		return ProviderYes24
	default:
		return ProviderNone
	}
}

// Recommend applies the default tie band.
func Recommend(aladin, yes24 ProviderQuote) Provider {
	return NewRecommender(DefaultTieBand).Recommend(aladin, yes24)
}
