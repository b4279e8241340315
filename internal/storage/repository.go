package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertLookupSQL = `INSERT INTO lookup_events (
        isbn,
        client_key,
        http_status,
        status,
        cache_hit,
        recommendation,
        aladin_buyable,
        yes24_buyable,
        duration_ms
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id, created_at;`

	selectLookupColumns = `SELECT
        id,
        isbn,
        client_key,
        http_status,
        status,
        cache_hit,
        recommendation,
        aladin_buyable,
        yes24_buyable,
        duration_ms,
        created_at
    FROM lookup_events`

	listRecentLookupsSQL = selectLookupColumns + `
    ORDER BY created_at DESC
    LIMIT $1;`

	listLookupsBetweenSQL = selectLookupColumns + `
    WHERE created_at >= $1
      AND created_at < $2
    ORDER BY created_at
    LIMIT $3;`

	countLookupsSQL = `SELECT COUNT(*) FROM lookup_events;`

	deleteLookupsBeforeSQL = `DELETE FROM lookup_events WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// LookupStore defines operations for the lookup log.
type LookupStore interface {
	InsertLookup(ctx context.Context, ev LookupEvent) (LookupEvent, error)
	ListRecentLookups(ctx context.Context, limit int) ([]LookupEvent, error)
	ListLookupsBetween(ctx context.Context, from, to time.Time, limit int) ([]LookupEvent, error)
	CountLookups(ctx context.Context) (int64, error)
	DeleteLookupsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store is the PostgreSQL-backed lookup log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the session lock is dropped with the connection anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertLookup appends one event and returns it with its id and timestamp.
func (s *Store) InsertLookup(ctx context.Context, ev LookupEvent) (LookupEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return LookupEvent{}, err
	}

	row := pool.QueryRow(ctx, insertLookupSQL,
		ev.ISBN,
		ev.ClientKey,
		ev.HTTPStatus,
		ev.Status,
		ev.CacheHit,
		ev.Recommendation,
		ev.AladinBuyable,
		ev.Yes24Buyable,
		ev.DurationMS,
	)
	if scanErr := row.Scan(&ev.ID, &ev.CreatedAt); scanErr != nil {
		return LookupEvent{}, fmt.Errorf("insert lookup: %w", scanErr)
	}
	return ev, nil
}

// ListRecentLookups lists the newest events first.
func (s *Store) ListRecentLookups(ctx context.Context, limit int) ([]LookupEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentLookupsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent lookups: %w", queryErr)
	}
	return collectLookups(rows, limit)
}

// ListLookupsBetween lists events in [from, to) in chronological order.
func (s *Store) ListLookupsBetween(ctx context.Context, from, to time.Time, limit int) ([]LookupEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listLookupsBetweenSQL, from, to, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list lookups between: %w", queryErr)
	}
	return collectLookups(rows, 0)
}

// CountLookups counts stored events.
func (s *Store) CountLookups(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countLookupsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count lookups: %w", scanErr)
	}
	return count, nil
}

// DeleteLookupsBefore applies retention and reports how many rows were removed.
func (s *Store) DeleteLookupsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, deleteLookupsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete lookups before: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

func collectLookups(rows pgx.Rows, capacity int) ([]LookupEvent, error) {
	defer rows.Close()

	if capacity < 0 {
		capacity = 0
	}
	events := make([]LookupEvent, 0, capacity)
	for rows.Next() {
		var ev LookupEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.ISBN,
			&ev.ClientKey,
			&ev.HTTPStatus,
			&ev.Status,
			&ev.CacheHit,
			&ev.Recommendation,
			&ev.AladinBuyable,
			&ev.Yes24Buyable,
			&ev.DurationMS,
			&ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// Aggregate buckets events by interval. Events must be in chronological order.
func Aggregate(events []LookupEvent, interval time.Duration) []LookupBucket {
	if interval <= 0 || len(events) == 0 {
		return nil
	}

	buckets := make([]LookupBucket, 0)
	for _, ev := range events {
		start := ev.CreatedAt.UTC().Truncate(interval)
		if n := len(buckets); n == 0 || !buckets[n-1].Bucket.Equal(start) {
			buckets = append(buckets, LookupBucket{Bucket: start})
		}
		b := &buckets[len(buckets)-1]
		b.Total++
		if ev.CacheHit {
			b.CacheHits++
		}
		if ev.Status == StatusRateLimited {
			b.RateLimited++
		}
		if ev.AladinBuyable || ev.Yes24Buyable {
			b.Buyable++
		}
	}
	return buckets
}

var (
	_ LookupStore    = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
