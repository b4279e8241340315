package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"buyback-quotes/internal/ratelimit"
	"buyback-quotes/internal/storage"
)

// WindowPruner drops idle rate-limit windows.
type WindowPruner interface {
	Prune() int
}

// RetentionStore deletes old lookup log rows.
type RetentionStore interface {
	DeleteLookupsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// MaintenanceOptions configure the periodic janitor.
type MaintenanceOptions struct {
	Retention time.Duration
	LockKey   int64
}

// Maintenance prunes in-memory rate windows and applies lookup log retention.
// The quote cache is left alone: expired entries are overwritten on the next
// put for the same identifier.
type Maintenance struct {
	windows   WindowPruner
	store     RetentionStore
	locker    storage.AdvisoryLocker
	retention time.Duration
	lockKey   int64
	logger    zerolog.Logger
}

// NewMaintenance wires the janitor. store may be nil when persistence is off.
func NewMaintenance(opts MaintenanceOptions, windows WindowPruner, store RetentionStore, logger zerolog.Logger) *Maintenance {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}
	return &Maintenance{
		windows:   windows,
		store:     store,
		locker:    locker,
		retention: opts.Retention,
		lockKey:   opts.LockKey,
		logger:    logger.With().Str("component", "maintenance").Logger(),
	}
}

// Tick runs one maintenance pass. Its signature matches scheduler.TickFunc.
func (m *Maintenance) Tick(ctx context.Context, at time.Time) error {
	if m.windows != nil {
		if pruned := m.windows.Prune(); pruned > 0 {
			m.logger.Debug().Int("pruned", pruned).Msg("rate limit windows pruned")
		}
	}

	if m.store == nil || m.retention <= 0 {
		return nil
	}

	unlock, proceed, err := m.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		m.logger.Debug().Time("tick", at).Msg("skip retention because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	cutoff := at.Add(-m.retention)
	deleted, err := m.store.DeleteLookupsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("apply lookup retention: %w", err)
	}
	if deleted > 0 {
		m.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("lookup log retention applied")
	}
	return nil
}

func (m *Maintenance) acquireLock(ctx context.Context) (func(), bool, error) {
	if m.lockKey == 0 || m.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := m.locker.TryAdvisoryLock(ctx, m.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

var _ WindowPruner = (*ratelimit.Limiter)(nil)
