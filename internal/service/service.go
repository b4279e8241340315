package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"buyback-quotes/internal/alerting"
	"buyback-quotes/internal/cache"
	"buyback-quotes/internal/isbn"
	"buyback-quotes/internal/provider"
	"buyback-quotes/internal/quote"
)

// ErrMissingISBN is returned when no identifier was supplied.
var ErrMissingISBN = errors.New("service: isbn is required")

// Options tune lookup behaviour.
type Options struct {
	TieBand       int64
	Health        *alerting.HealthTracker
	Notifier      alerting.Notifier
	NotifyTimeout time.Duration
	Now           func() time.Time
}

// Result is a completed lookup.
type Result struct {
	Quote    quote.Aggregated
	CacheHit bool
}

// Service answers buyback lookups: normalise, consult the cache, query both
// marketplaces concurrently, recommend, and cache the answer.
type Service struct {
	aladin      provider.Quoter
	yes24       provider.Quoter
	quotes      cache.QuoteStore
	recommender quote.Recommender
	health      *alerting.HealthTracker
	notifier    alerting.Notifier
	notifyTTL   time.Duration
	now         func() time.Time
	background  conc.WaitGroup
	logger      zerolog.Logger
}

// New constructs the lookup service.
func New(opts Options, aladin, yes24 provider.Quoter, quotes cache.QuoteStore, logger zerolog.Logger) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	notifyTTL := opts.NotifyTimeout
	if notifyTTL <= 0 {
		notifyTTL = 10 * time.Second
	}
	return &Service{
		aladin:      aladin,
		yes24:       yes24,
		quotes:      quotes,
		recommender: quote.NewRecommender(opts.TieBand),
		health:      opts.Health,
		notifier:    opts.Notifier,
		notifyTTL:   notifyTTL,
		now:         now,
		logger:      logger.With().Str("component", "service").Logger(),
	}
}

// Lookup resolves raw into an aggregated quote. Input problems are reported as
// ErrMissingISBN or isbn.ErrInvalid; any other error is internal.
func (s *Service) Lookup(ctx context.Context, raw string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, ErrMissingISBN
	}

	id, err := isbn.Normalize(raw)
	if err != nil {
		return Result{}, err
	}

	if cached, ok := s.quotes.Get(id); ok {
		s.logger.Debug().Str("isbn", id).Msg("cache hit")
		return Result{Quote: cached, CacheHit: true}, nil
	}

	aladin, yes24, err := s.fetchQuotes(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("fetch quotes for %s: %w", id, err)
	}

	agg := quote.Aggregated{
		ISBN:           id,
		Title:          quote.FirstTitle(aladin.title, yes24.title),
		Aladin:         aladin.quote,
		Yes24:          yes24.quote,
		Recommendation: s.recommender.Recommend(aladin.quote, yes24.quote),
		FetchedAt:      s.now().UTC(),
	}
	s.quotes.Put(id, agg)

	s.observe(id, s.aladin.Name(), aladin.quote)
	s.observe(id, s.yes24.Name(), yes24.quote)

	s.logger.Info().Str("isbn", id).
		Str("recommendation", string(agg.Recommendation)).
		Bool("aladin_buyable", agg.Aladin.IsBuyable).
		Bool("yes24_buyable", agg.Yes24.IsBuyable).
		Msg("quote assembled")
	return Result{Quote: agg}, nil
}

// Wait blocks until background notifications have been delivered.
func (s *Service) Wait() {
	s.background.Wait()
}

type providerResult struct {
	title string
	quote quote.ProviderQuote
}

// fetchQuotes runs both adapters concurrently and waits for both. The fetches
// are detached from ctx's cancellation so a disconnected client still warms
// the cache; each fetch attempt carries its own deadline.
func (s *Service) fetchQuotes(ctx context.Context, id string) (providerResult, providerResult, error) {
	detached := context.WithoutCancel(ctx)

	var (
		wg     conc.WaitGroup
		aladin providerResult
		yes24  providerResult
	)
	wg.Go(func() {
		aladin.title, aladin.quote = s.aladin.Quote(detached, id)
	})
	wg.Go(func() {
		yes24.title, yes24.quote = s.yes24.Quote(detached, id)
	})

	if recovered := wg.WaitAndRecover(); recovered != nil {
		return providerResult{}, providerResult{}, recovered.AsError()
	}
	return aladin, yes24, nil
}

// observe feeds provider health. "Not buyable" is a valid answer from a
// working provider, so it counts as healthy.
func (s *Service) observe(id string, name quote.Provider, q quote.ProviderQuote) {
	if s.health == nil {
		return
	}
	if q.IsBuyable || q.Error == quote.ErrMsgNotBuyable {
		s.health.RecordSuccess(string(name))
		return
	}

	note, due := s.health.RecordFailure(string(name), q.Error, id, q.SourceURL)
	s.logger.Warn().Str("provider", string(name)).
		Str("isbn", id).
		Str("error", q.Error).
		Int("consecutive_failures", s.health.Failures(string(name))).
		Msg("provider degraded")
	if !due || s.notifier == nil {
		return
	}

	s.background.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTTL)
		defer cancel()
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("provider", string(name)).Msg("failed to dispatch alert")
		}
	})
}
