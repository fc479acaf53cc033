package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomledger/internal/app/uow"
	domaininventory "roomledger/internal/domain/inventory"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

func newLedgerWithRoom(t *testing.T, units int) *Ledger {
	t.Helper()
	l := NewLedger()
	cal, err := domaininventory.NewCalendar("room-101", units)
	require.NoError(t, err)
	require.NoError(t, l.Create(context.Background(), cal))
	return l
}

func mustRange(t *testing.T, from, to string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(daterange.MustParse(from), daterange.MustParse(to))
	require.NoError(t, err)
	return dr
}

func TestLedgerConcurrentReserveNeverOversells(t *testing.T) {
	t.Parallel()

	const units = 5
	l := newLedgerWithRoom(t, units)
	dr := mustRange(t, "2025-07-01", "2025-07-04")

	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Reserve(context.Background(), "room-101", dr, 1)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, apperr.ErrInsufficientAvailability):
				short.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(units), ok.Load())
	assert.Equal(t, int32(40-units), short.Load())
	cal, err := l.Calendar(context.Background(), "room-101", dr)
	require.NoError(t, err)
	for _, d := range dr.Days() {
		assert.Equal(t, 0, cal.Quota(d))
	}
}

func TestLedgerUnknownRoom(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	_, err := l.Calendar(context.Background(), "nope", mustRange(t, "2025-07-01", "2025-07-02"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLedgerCalendarFiltersToWindow(t *testing.T) {
	t.Parallel()

	l := newLedgerWithRoom(t, 2)
	ctx := context.Background()
	require.NoError(t, l.SetQuota(ctx, "room-101", mustRange(t, "2025-07-01", "2025-07-11").Days(), 1))

	cal, err := l.Calendar(ctx, "room-101", mustRange(t, "2025-07-03", "2025-07-05"))
	require.NoError(t, err)
	assert.Len(t, cal.PerDate, 2)
	assert.Equal(t, 2, cal.DefaultUnitCount)
}

func TestUnitRollbackRestoresLedgerAndRepos(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	cal, err := domaininventory.NewCalendar("room-101", 3)
	require.NoError(t, err)
	require.NoError(t, store.Ledger.Create(ctx, cal))
	dr := mustRange(t, "2025-07-01", "2025-07-03")
	require.NoError(t, store.Ledger.SetQuota(ctx, "room-101", dr.Days()[:1], 2))

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	execCtx := unit.(*Unit).InjectContext(ctx)
	require.NoError(t, unit.Ledger().Reserve(execCtx, "room-101", dr, 2))
	require.NoError(t, store.Outbox.Add(execCtx, fakeRecord("evt-1")))
	require.NoError(t, unit.Rollback(execCtx))

	after, err := store.Ledger.Calendar(ctx, "room-101", dr)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Quota(dr.CheckIn))
	assert.True(t, after.Explicit(dr.CheckIn))
	assert.False(t, after.Explicit(dr.Last()), "rollback removes entries the unit created")
	assert.Empty(t, store.Outbox.Records())

	// the write lock was released
	next, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, next.Commit(ctx))
}

func TestUnitCommitKeepsWrites(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	cal, err := domaininventory.NewCalendar("room-101", 1)
	require.NoError(t, err)
	require.NoError(t, store.Ledger.Create(ctx, cal))
	dr := mustRange(t, "2025-07-01", "2025-07-02")

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	execCtx := unit.(*Unit).InjectContext(ctx)
	require.NoError(t, unit.Ledger().Reserve(execCtx, "room-101", dr, 1))
	require.NoError(t, unit.Commit(execCtx))
	require.NoError(t, unit.Rollback(execCtx), "rollback after commit is a no-op")

	after, err := store.Ledger.Calendar(ctx, "room-101", dr)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Quota(dr.CheckIn))
	assert.ErrorIs(t, unit.Commit(execCtx), ErrUnitClosed)
}
