package quote

import (
	"fmt"
	"time"
)

// Provider names a marketplace in responses and recommendations.
type Provider string

const (
	ProviderAladin Provider = "aladin"
	ProviderYes24  Provider = "yes24"
	ProviderNone   Provider = "none"
)

// Soft error messages carried inside a ProviderQuote.
const (
	ErrMsgNotBuyable  = "Not buyable"
	ErrMsgUnparseable = "Unable to parse buyback price"
	errMsgNoResponse  = "%s lookup failed (no response)"
	DefaultTitle      = "Title unavailable"
)

// ProviderQuote is one marketplace's buyback offer. When IsBuyable is true,
// Price is positive and Error is empty.
type ProviderQuote struct {
	IsBuyable bool   `json:"is_buyable"`
	Price     int64  `json:"price"`
	Error     string `json:"error,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// Buyable builds a successful quote.
func Buyable(price int64, sourceURL string) ProviderQuote {
	return ProviderQuote{IsBuyable: true, Price: price, SourceURL: sourceURL}
}

// Unavailable builds a quote with a soft error message.
func Unavailable(msg, sourceURL string) ProviderQuote {
	return ProviderQuote{Error: msg, SourceURL: sourceURL}
}

// NoResponseMessage is the soft error for a provider whose candidates all failed.
func NoResponseMessage(provider string) string {
	return fmt.Sprintf(errMsgNoResponse, provider)
}

// Aggregated is the complete answer for one identifier. It is never mutated
// after construction.
type Aggregated struct {
	ISBN           string        `json:"isbn"`
	Title          string        `json:"title"`
	Aladin         ProviderQuote `json:"aladin"`
	Yes24          ProviderQuote `json:"yes24"`
	Recommendation Provider      `json:"recommendation"`
	FetchedAt      time.Time     `json:"-"`
}

// FirstTitle returns the first non-empty candidate, or DefaultTitle.
func FirstTitle(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return DefaultTitle
}
