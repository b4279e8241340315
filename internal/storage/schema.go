package storage

import (
	"context"
	"fmt"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS lookup_events (
    id              BIGSERIAL PRIMARY KEY,
    isbn            TEXT        NOT NULL,
    client_key      TEXT        NOT NULL,
    http_status     INTEGER     NOT NULL,
    status          TEXT        NOT NULL,
    cache_hit       BOOLEAN     NOT NULL DEFAULT FALSE,
    recommendation  TEXT        NOT NULL DEFAULT '',
    aladin_buyable  BOOLEAN     NOT NULL DEFAULT FALSE,
    yes24_buyable   BOOLEAN     NOT NULL DEFAULT FALSE,
    duration_ms     BIGINT      NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS lookup_events_created_at_idx ON lookup_events (created_at);`

// EnsureSchema creates the lookup log table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
