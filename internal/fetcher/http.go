package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout        = 8 * time.Second
	defaultMinBodyLength  = 200
	defaultMaxBodyBytes   = 4 << 20
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultAcceptLanguage = "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"
)

// Options parameterise the HTTP document fetcher.
type Options struct {
	Timeout        time.Duration
	MinBodyLength  int
	MaxBodyBytes   int64
	UserAgent      string
	AcceptLanguage string
}

// HTTP fetches documents over HTTP, trying candidates strictly in order.
type HTTP struct {
	opts   Options
	logger zerolog.Logger
	client *http.Client
}

// NewHTTP constructs an HTTP document fetcher.
func NewHTTP(opts Options, logger zerolog.Logger) *HTTP {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MinBodyLength <= 0 {
		opts.MinBodyLength = defaultMinBodyLength
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if strings.TrimSpace(opts.AcceptLanguage) == "" {
		opts.AcceptLanguage = defaultAcceptLanguage
	}

	return &HTTP{
		opts:   opts,
		logger: logger.With().Str("component", "document_fetcher").Logger(),
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// FetchFirstAvailable returns the first candidate answering 2xx with a body
// longer than the minimum length. Per-candidate failures are logged and skipped.
func (f *HTTP) FetchFirstAvailable(ctx context.Context, candidates []string) (Document, error) {
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		body, err := f.get(ctx, candidate)
		if err != nil {
			f.logger.Debug().Err(err).Str("url", candidate).Msg("candidate rejected")
			continue
		}
		return Document{Body: body, URL: candidate}, nil
	}
	return Document{}, ErrUnavailable
}

func (f *HTTP) get(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return "", err
	}

	body := string(payload)
	if n := utf8.RuneCountInString(body); n <= f.opts.MinBodyLength {
		return "", fmt.Errorf("body too short (%d chars)", n)
	}
	return body, nil
}

var _ DocumentFetcher = (*HTTP)(nil)
