package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter mounts the lookup API and health check.
func NewRouter(quotes http.Handler, logger zerolog.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error().Err(err).Msg("failed to write health response")
		}
	})

	router.With(recoverJSON(logger)).Method(http.MethodGet, "/api/quote", quotes)

	return router
}

// recoverJSON turns a panic in the lookup route into the same generic JSON
// error body every other failure gets.
func recoverJSON(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.Error().
					Interface("panic", rvr).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("quote handler panicked")
				respondError(w, logger, http.StatusInternalServerError, msgInternal)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
