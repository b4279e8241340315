package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"buyback-quotes/internal/isbn"
	"buyback-quotes/internal/ratelimit"
	"buyback-quotes/internal/service"
	"buyback-quotes/internal/storage"
)

// Client-facing error messages. Internal detail never leaves the process.
const (
	msgMissingISBN = "isbn is required"
	msgInvalidISBN = "invalid isbn"
	msgRateLimited = "too many requests"
	msgInternal    = "internal server error"
)

// identifierParams are accepted spellings of the lookup parameter, in priority order.
var identifierParams = []string{"isbn", "ISBN", "q", "query"}

// Lookuper resolves identifiers into quotes.
type Lookuper interface {
	Lookup(ctx context.Context, raw string) (service.Result, error)
}

// Limiter decides whether a client may proceed.
type Limiter interface {
	Decide(key string) ratelimit.Decision
}

// LookupRecorder persists dispatcher outcomes.
type LookupRecorder interface {
	InsertLookup(ctx context.Context, ev storage.LookupEvent) (storage.LookupEvent, error)
}

// Options configure the quote handler. Stats and Recorder are optional.
type Options struct {
	TrustForwardedFor bool
	Stats             ratelimit.StatsStore
	Recorder          LookupRecorder
	RecordTimeout     time.Duration
}

// QuoteHandler serves GET /api/quote.
type QuoteHandler struct {
	lookups Lookuper
	limiter Limiter
	opts    Options
	now     func() time.Time
	logger  zerolog.Logger
}

// NewQuoteHandler wires the dispatcher.
func NewQuoteHandler(lookups Lookuper, limiter Limiter, opts Options, logger zerolog.Logger) *QuoteHandler {
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = 5 * time.Second
	}
	return &QuoteHandler{
		lookups: lookups,
		limiter: limiter,
		opts:    opts,
		now:     time.Now,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

// ServeHTTP runs one lookup: rate limit, validate, resolve, respond.
func (h *QuoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	client := ratelimit.ClientKey(r, h.opts.TrustForwardedFor)
	ev := storage.LookupEvent{ClientKey: client}

	decision := h.limiter.Decide(client)
	h.recordDecision(r, client, decision)
	if !decision.Allowed {
		retry := int(decision.ResetAt.Sub(start).Round(time.Second) / time.Second)
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		respondError(w, h.logger, http.StatusTooManyRequests, msgRateLimited)
		h.finish(r, ev, http.StatusTooManyRequests, storage.StatusRateLimited, start)
		return
	}

	raw := identifierParam(r)
	ev.ISBN = raw
	if raw == "" {
		respondError(w, h.logger, http.StatusBadRequest, msgMissingISBN)
		h.finish(r, ev, http.StatusBadRequest, storage.StatusBadRequest, start)
		return
	}

	res, err := h.lookups.Lookup(r.Context(), raw)
	switch {
	case errors.Is(err, service.ErrMissingISBN):
		respondError(w, h.logger, http.StatusBadRequest, msgMissingISBN)
		h.finish(r, ev, http.StatusBadRequest, storage.StatusBadRequest, start)
		return
	case errors.Is(err, isbn.ErrInvalid):
		respondError(w, h.logger, http.StatusBadRequest, msgInvalidISBN)
		h.finish(r, ev, http.StatusBadRequest, storage.StatusBadRequest, start)
		return
	case err != nil:
		h.logger.Error().Err(err).Str("isbn", raw).Msg("lookup failed")
		respondError(w, h.logger, http.StatusInternalServerError, msgInternal)
		h.finish(r, ev, http.StatusInternalServerError, storage.StatusError, start)
		return
	}

	w.Header().Set("Cache-Control", cacheableDirective)
	respondJSON(w, h.logger, http.StatusOK, res.Quote)

	ev.ISBN = res.Quote.ISBN
	ev.CacheHit = res.CacheHit
	ev.Recommendation = string(res.Quote.Recommendation)
	ev.AladinBuyable = res.Quote.Aladin.IsBuyable
	ev.Yes24Buyable = res.Quote.Yes24.IsBuyable
	h.finish(r, ev, http.StatusOK, storage.StatusOK, start)
}

func identifierParam(r *http.Request) string {
	query := r.URL.Query()
	for _, name := range identifierParams {
		if v := strings.TrimSpace(query.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func (h *QuoteHandler) recordDecision(r *http.Request, client string, d ratelimit.Decision) {
	if h.opts.Stats == nil {
		return
	}
	ev := ratelimit.StatsEvent{
		Key:     client,
		Allowed: d.Allowed,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      h.now(),
	}
	if err := h.opts.Stats.Record(r.Context(), ev); err != nil {
		h.logger.Warn().Err(err).Msg("failed to record rate limit decision")
	}
}

// finish logs the outcome and appends it to the lookup log. The write happens
// off the request path and never alters the response.
func (h *QuoteHandler) finish(r *http.Request, ev storage.LookupEvent, status int, label string, start time.Time) {
	elapsed := h.now().Sub(start)
	ev.HTTPStatus = status
	ev.Status = label
	ev.DurationMS = elapsed.Milliseconds()

	h.logger.Info().Str("isbn", ev.ISBN).
		Str("client", ev.ClientKey).
		Int("status", status).
		Bool("cache_hit", ev.CacheHit).
		Dur("duration", elapsed).
		Msg("quote request")

	if h.opts.Recorder == nil {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(ctx, h.opts.RecordTimeout)
		defer cancel()
		if _, err := h.opts.Recorder.InsertLookup(ctx, ev); err != nil {
			h.logger.Warn().Err(err).Msg("failed to record lookup")
		}
	}()
}

var (
	_ http.Handler = (*QuoteHandler)(nil)
	_ Limiter      = (*ratelimit.Limiter)(nil)
)
