package storage

import "time"

// Lookup outcome labels recorded in lookup_events.status.
const (
	StatusOK          = "ok"
	StatusBadRequest  = "bad_request"
	StatusRateLimited = "rate_limited"
	StatusError       = "error"
)

// LookupEvent is one dispatcher outcome. Prices are deliberately absent: the
// log describes traffic and provider availability, not quotes.
type LookupEvent struct {
	ID             int64
	ISBN           string
	ClientKey      string
	HTTPStatus     int
	Status         string
	CacheHit       bool
	Recommendation string
	AladinBuyable  bool
	Yes24Buyable   bool
	DurationMS     int64
	CreatedAt      time.Time
}

// LookupBucket aggregates lookups for charts and CSV export.
type LookupBucket struct {
	Bucket      time.Time
	Total       int64
	CacheHits   int64
	RateLimited int64
	Buyable     int64
}
