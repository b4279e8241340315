package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"buyback-quotes/internal/extract"
	"buyback-quotes/internal/fetcher"
	"buyback-quotes/internal/quote"
)

// ISBNPlaceholder is replaced by the canonical identifier in candidate URL templates.
const ISBNPlaceholder = "{isbn}"

// Quoter produces one marketplace's quote for a canonical identifier. The
// returned title is empty when the page did not expose one.
type Quoter interface {
	Name() quote.Provider
	Quote(ctx context.Context, isbn string) (string, quote.ProviderQuote)
}

// Options parameterise a marketplace adapter.
type Options struct {
	Name              quote.Provider
	DisplayName       string
	CandidateURLs     []string
	NotBuyablePattern string
	SiteNames         []string
	RequestsPerSecond float64
	Burst             int
	// MaxWait bounds the time spent queueing for the outbound limiter.
	MaxWait time.Duration
}

const defaultMaxWait = 8 * time.Second

// Provider scrapes one marketplace's buyback page.
type Provider struct {
	opts       Options
	fetcher    fetcher.DocumentFetcher
	prices     extract.PriceExtractor
	notBuyable *regexp.Regexp
	titles     extract.TitleCleaner
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// New builds a Provider. A nil price extractor selects the default heuristic.
func New(opts Options, docs fetcher.DocumentFetcher, prices extract.PriceExtractor, logger zerolog.Logger) (*Provider, error) {
	if opts.Name == "" {
		return nil, errors.New("provider name required")
	}
	if len(opts.CandidateURLs) == 0 {
		return nil, fmt.Errorf("%s: at least one candidate url required", opts.Name)
	}
	if docs == nil {
		return nil, fmt.Errorf("%s: document fetcher required", opts.Name)
	}
	if prices == nil {
		prices = extract.NewHeuristic()
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = defaultMaxWait
	}
	if opts.DisplayName == "" {
		opts.DisplayName = string(opts.Name)
	}

	var notBuyable *regexp.Regexp
	if strings.TrimSpace(opts.NotBuyablePattern) != "" {
		re, err := regexp.Compile(opts.NotBuyablePattern)
		if err != nil {
			return nil, fmt.Errorf("%s: compile not-buyable pattern: %w", opts.Name, err)
		}
		notBuyable = re
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Provider{
		opts:       opts,
		fetcher:    docs,
		prices:     prices,
		notBuyable: notBuyable,
		titles:     extract.NewTitleCleaner(opts.SiteNames...),
		limiter:    limiter,
		logger:     logger.With().Str("component", "provider").Str("provider", string(opts.Name)).Logger(),
	}, nil
}

// Name returns the marketplace identifier.
func (p *Provider) Name() quote.Provider {
	return p.opts.Name
}

// CandidateURLs expands the URL templates for isbn, in order.
func (p *Provider) CandidateURLs(isbn string) []string {
	urls := make([]string, 0, len(p.opts.CandidateURLs))
	for _, tmpl := range p.opts.CandidateURLs {
		urls = append(urls, strings.ReplaceAll(tmpl, ISBNPlaceholder, isbn))
	}
	return urls
}

// Quote fetches and interprets the marketplace page. It never fails: every
// problem is reported through the quote's Error field.
func (p *Provider) Quote(ctx context.Context, isbn string) (string, quote.ProviderQuote) {
	candidates := p.CandidateURLs(isbn)
	noResponse := quote.Unavailable(quote.NoResponseMessage(p.opts.DisplayName), candidates[0])

	if p.limiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, p.opts.MaxWait)
		err := p.limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			p.logger.Warn().Err(err).Str("isbn", isbn).Msg("outbound rate limit wait aborted")
			return "", noResponse
		}
	}

	doc, err := p.fetcher.FetchFirstAvailable(ctx, candidates)
	if err != nil {
		p.logger.Warn().Err(err).Str("isbn", isbn).Msg("no candidate responded")
		return "", noResponse
	}

	page, err := extract.ParseDocument(doc.Body)
	if err != nil {
		p.logger.Warn().Err(err).Str("isbn", isbn).Str("url", doc.URL).Msg("document unreadable")
		return "", quote.Unavailable(quote.ErrMsgUnparseable, doc.URL)
	}

	title := p.titles.Clean(page.RawTitle())
	return title, p.interpret(page.PlainText(), doc.URL)
}

func (p *Provider) interpret(text, sourceURL string) quote.ProviderQuote {
	price := p.prices.BestPrice(text)
	blocked := p.notBuyable != nil && p.notBuyable.MatchString(text)

	switch {
	case price > 0 && !blocked:
		return quote.Buyable(price, sourceURL)
	case blocked:
		return quote.Unavailable(quote.ErrMsgNotBuyable, sourceURL)
	default:
		return quote.Unavailable(quote.ErrMsgUnparseable, sourceURL)
	}
}

var _ Quoter = (*Provider)(nil)
