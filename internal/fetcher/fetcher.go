package fetcher

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no candidate location produced an acceptable document.
var ErrUnavailable = errors.New("no candidate returned a usable document")

// Document is a fetched page together with the location that served it.
type Document struct {
	Body string
	URL  string
}

// DocumentFetcher retrieves the first acceptable document among ordered candidates.
type DocumentFetcher interface {
	FetchFirstAvailable(ctx context.Context, candidates []string) (Document, error)
}
