package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPruner struct{ calls int }

func (p *countingPruner) Prune() int {
	p.calls++
	return 3
}

type fakeRetention struct {
	cutoffs  []time.Time
	err      error
	acquired bool
	unlocked bool
}

func (f *fakeRetention) DeleteLookupsBefore(_ context.Context, olderThan time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, olderThan)
	return 7, f.err
}

func (f *fakeRetention) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	if !f.acquired {
		return nil, false, nil
	}
	return func() { f.unlocked = true }, true, nil
}

func TestMaintenanceTickPrunesAndAppliesRetention(t *testing.T) {
	pruner := &countingPruner{}
	store := &fakeRetention{acquired: true}
	m := NewMaintenance(MaintenanceOptions{Retention: 72 * time.Hour, LockKey: 42}, pruner, store, zerolog.Nop())

	at := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.Tick(context.Background(), at))

	assert.Equal(t, 1, pruner.calls)
	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), store.cutoffs[0])
	assert.True(t, store.unlocked)
}

func TestMaintenanceSkipsRetentionWhenLockHeld(t *testing.T) {
	store := &fakeRetention{acquired: false}
	m := NewMaintenance(MaintenanceOptions{Retention: time.Hour, LockKey: 42}, &countingPruner{}, store, zerolog.Nop())

	require.NoError(t, m.Tick(context.Background(), time.Now()))
	assert.Empty(t, store.cutoffs)
}

func TestMaintenanceWithoutStore(t *testing.T) {
	pruner := &countingPruner{}
	m := NewMaintenance(MaintenanceOptions{Retention: time.Hour}, pruner, nil, zerolog.Nop())

	require.NoError(t, m.Tick(context.Background(), time.Now()))
	assert.Equal(t, 1, pruner.calls)
}

func TestMaintenanceRetentionError(t *testing.T) {
	store := &fakeRetention{acquired: true, err: errors.New("relation does not exist")}
	m := NewMaintenance(MaintenanceOptions{Retention: time.Hour}, nil, store, zerolog.Nop())

	err := m.Tick(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply lookup retention")
}
