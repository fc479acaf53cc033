package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	appoutbox "roomledger/internal/app/outbox"
	"roomledger/internal/app/uow"
	domaininventory "roomledger/internal/domain/inventory"
	domainpricing "roomledger/internal/domain/pricing"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/money"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMapError(t *testing.T) {
	t.Parallel()

	conflict := mapError("reserve", mongo.CommandError{Code: codeWriteConflict, Message: "WriteConflict"})
	assert.ErrorIs(t, conflict, apperr.ErrConcurrencyConflict)

	labelled := mapError("commit", mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}})
	assert.ErrorIs(t, labelled, apperr.ErrConcurrencyConflict)

	plain := errors.New("boom")
	wrapped := mapError("get room", plain)
	assert.ErrorIs(t, wrapped, plain)
	assert.NotErrorIs(t, wrapped, apperr.ErrConcurrencyConflict)

	assert.ErrorIs(t, mapError("x", context.Canceled), context.Canceled)
	assert.NoError(t, mapError("x", nil))
}

func TestProfileDocumentKeepsUnsetWeekdays(t *testing.T) {
	t.Parallel()

	p, err := domainpricing.NewProfile("r1", "EUR", decimal.RequireFromString("99.90"), now)
	require.NoError(t, err)
	sat := decimal.RequireFromString("140")
	require.NoError(t, p.SetWeekdayPrice(time.Saturday, &sat, now))

	doc := newProfileDocument(p)
	require.Len(t, doc.Weekday, 7)
	assert.Nil(t, doc.Weekday[time.Monday])
	require.NotNil(t, doc.Weekday[time.Saturday])
	assert.Equal(t, "140", *doc.Weekday[time.Saturday])

	back, err := doc.toDomain()
	require.NoError(t, err)
	assert.True(t, back.BaseNightly.Equal(p.BaseNightly))
	assert.True(t, back.Weekday[time.Saturday].Equal(sat))
	assert.Nil(t, back.Weekday[time.Sunday])
	assert.NotNil(t, back.DateOverrides)
}

func TestHoldDocumentStoresNightsAsDates(t *testing.T) {
	t.Parallel()

	dr, err := daterange.New(daterange.MustParse("2025-12-30"), daterange.MustParse("2026-01-02"))
	require.NoError(t, err)
	h, err := domainreservation.NewHold(domainreservation.CreateParams{
		ID: "h1", RoomID: "r1", Range: dr, Units: 2,
		QuotedTotal: money.Money{Amount: decimal.RequireFromString("450.25"), Currency: "USD"}, Now: now,
	})
	require.NoError(t, err)

	doc := newHoldDocument(h)
	assert.Equal(t, "2025-12-30", doc.CheckIn)
	assert.Equal(t, "2026-01-02", doc.CheckOut)

	back, err := doc.toDomain()
	require.NoError(t, err)
	assert.Equal(t, 3, back.Range.Nights())
	assert.Equal(t, "450.25", back.QuotedTotal.Amount.String())

	doc.QuotedAmount = "n/a"
	_, err = doc.toDomain()
	assert.Error(t, err)
}

func TestSpanOf(t *testing.T) {
	t.Parallel()

	days := []time.Time{daterange.MustParse("2025-07-09"), daterange.MustParse("2025-07-02"), daterange.MustParse("2025-07-05")}
	span := spanOf(days)
	assert.Equal(t, "2025-07-02", daterange.Key(span.CheckIn))
	assert.Equal(t, "2025-07-10", daterange.Key(span.CheckOut))
}

// newTestStore connects to MONGO_TEST_URI, a replica set, on a throwaway database.
func newTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := New(ctx, uri, "roomledger_test_"+uuid.NewString()[:8])
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	t.Cleanup(func() {
		_ = client.DB.Drop(context.Background())
		_ = client.Close(context.Background())
	})
	s, err := NewStore(ctx, client.DB, StoreOptions{Consumer: "test", IdempotencyTTL: time.Hour})
	require.NoError(t, err)
	return s, ctx
}

func seedRoom(t *testing.T, ctx context.Context, s *Store, id string, units int) {
	t.Helper()
	room, err := domainrooms.NewRoom(domainrooms.CreateParams{ID: domainrooms.RoomID(id), DefaultUnitCount: units, Currency: "USD", Now: now})
	require.NoError(t, err)
	require.NoError(t, s.Rooms.Save(ctx, room))
	profile, err := domainpricing.NewProfile(room.ID, "USD", decimal.NewFromInt(100), now)
	require.NoError(t, err)
	require.NoError(t, s.Profiles.SaveProfile(ctx, profile))
	cal, err := domaininventory.NewCalendar(room.ID, units)
	require.NoError(t, err)
	require.NoError(t, s.Ledger.Create(ctx, cal))
}

func TestLedgerUnitCommitAndRollback(t *testing.T) {
	s, ctx := newTestStore(t)
	seedRoom(t, ctx, s, "r1", 2)
	dr, err := daterange.New(daterange.MustParse("2025-07-01"), daterange.MustParse("2025-07-03"))
	require.NoError(t, err)

	unit, err := s.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	txCtx := unit.(*Unit).InjectContext(ctx)
	require.NoError(t, unit.Ledger().Reserve(txCtx, "r1", dr, 2))
	require.NoError(t, unit.Rollback(txCtx))

	cal, err := s.Ledger.Calendar(ctx, "r1", dr)
	require.NoError(t, err)
	assert.Equal(t, 2, cal.Quota(dr.CheckIn))
	assert.False(t, cal.Explicit(dr.CheckIn))

	unit, err = s.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	txCtx = unit.(*Unit).InjectContext(ctx)
	require.NoError(t, unit.Ledger().Reserve(txCtx, "r1", dr, 2))
	require.NoError(t, unit.Commit(txCtx))
	assert.ErrorIs(t, unit.Commit(txCtx), ErrUnitClosed)

	err = s.Ledger.Reserve(ctx, "r1", dr, 1)
	var short *apperr.InsufficientAvailabilityError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, "2025-07-01", daterange.Key(short.Night))

	require.NoError(t, s.Ledger.Release(ctx, "r1", dr, 1))
	cal, err = s.Ledger.Calendar(ctx, "r1", dr)
	require.NoError(t, err)
	assert.Equal(t, 1, cal.Quota(dr.Last()))
}

func TestRoomsAndOverrides(t *testing.T) {
	s, ctx := newTestStore(t)
	seedRoom(t, ctx, s, "r1", 1)

	dup, err := domainrooms.NewRoom(domainrooms.CreateParams{ID: "r1", DefaultUnitCount: 1, Currency: "USD", Now: now})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Rooms.Save(ctx, dup), domainrooms.ErrRoomExists)

	days := []time.Time{daterange.MustParse("2025-07-04")}
	require.NoError(t, s.Profiles.UpsertDateOverrides(ctx, "r1", days, decimal.RequireFromString("180")))
	require.NoError(t, s.Profiles.UpsertDateOverrides(ctx, "r1", days, decimal.RequireFromString("175")))
	assert.ErrorIs(t, s.Profiles.UpsertDateOverrides(ctx, "ghost", days, decimal.NewFromInt(1)), apperr.ErrNotFound)

	p, err := s.Profiles.Profile(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, p.DateOverrides, 1)
	v, ok := p.Override(days[0])
	require.True(t, ok)
	assert.Equal(t, "175", v.String())

	stale := *p
	require.NoError(t, s.Profiles.SaveProfile(ctx, p))
	assert.ErrorIs(t, s.Profiles.SaveProfile(ctx, &stale), apperr.ErrConcurrencyConflict)
}

func TestOutboxInboxIdempotency(t *testing.T) {
	s, ctx := newTestStore(t)
	require.NoError(t, s.Outbox.Add(ctx, appoutbox.EventRecord{
		ID: "ev-1", Name: "reservation.confirmed", Aggregate: "h1", Payload: []byte(`{}`), OccurredAt: now,
	}))
	msg, err := s.Outbox.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	again, err := s.Outbox.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, again)
	require.NoError(t, s.Outbox.MarkSent(ctx, "ev-1"))

	seen, err := s.Inbox.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = s.Inbox.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, seen)

	_, found, err := s.Idempotency.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewRequiresDatabase(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "mongodb://127.0.0.1:1", "")
	require.Error(t, err)
}
