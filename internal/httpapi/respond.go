package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const (
	cacheableDirective    = "public, s-maxage=86400, stale-while-revalidate=604800"
	nonCacheableDirective = "no-store"
)

func respondJSON(w http.ResponseWriter, logger zerolog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, logger zerolog.Logger, status int, message string) {
	w.Header().Set("Cache-Control", nonCacheableDirective)
	respondJSON(w, logger, status, map[string]string{"error": message})
}
