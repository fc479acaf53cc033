package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomledger/internal/app/middleware"
	appoutbox "roomledger/internal/app/outbox"
	domainpricing "roomledger/internal/domain/pricing"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/money"
)

func fakeRecord(id string) appoutbox.EventRecord {
	return appoutbox.EventRecord{ID: id, Name: "reservation.created", Payload: []byte(`{}`), Aggregate: "hold-1", OccurredAt: time.Now()}
}

func TestRoomRepositoryVersioning(t *testing.T) {
	t.Parallel()

	repo := NewRoomRepository()
	ctx := context.Background()
	room, err := domainrooms.NewRoom(domainrooms.CreateParams{ID: "room-101", DefaultUnitCount: 1, Currency: "USD", Now: time.Now()})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, room))

	dup, _ := domainrooms.NewRoom(domainrooms.CreateParams{ID: "room-101", DefaultUnitCount: 1, Currency: "USD", Now: time.Now()})
	assert.ErrorIs(t, repo.Save(ctx, dup), domainrooms.ErrRoomExists)

	stale, err := repo.ByID(ctx, "room-101")
	require.NoError(t, err)
	fresh, err := repo.ByID(ctx, "room-101")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, fresh))
	assert.ErrorIs(t, repo.Save(ctx, stale), apperr.ErrConcurrencyConflict)
}

func TestHoldRepositoryDetectsLostUpdate(t *testing.T) {
	t.Parallel()

	repo := NewHoldRepository()
	ctx := context.Background()
	dr, _ := daterange.New(daterange.MustParse("2025-07-01"), daterange.MustParse("2025-07-02"))
	h, err := domainreservation.NewHold(domainreservation.CreateParams{
		ID: "hold-1", RoomID: "room-101", Range: dr, Units: 1, QuotedTotal: money.Must(100, "USD"), Now: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, h))

	a, _ := repo.ByID(ctx, "hold-1")
	b, _ := repo.ByID(ctx, "hold-1")
	require.NoError(t, a.Confirm(time.Now()))
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, b.Confirm(time.Now()))
	assert.ErrorIs(t, repo.Save(ctx, b), apperr.ErrConcurrencyConflict)

	_, err = repo.ByID(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProfileStoreKeepsOverridesSeparate(t *testing.T) {
	t.Parallel()

	store := NewProfileStore()
	ctx := context.Background()
	p, err := domainpricing.NewProfile("room-101", "USD", decimal.NewFromInt(1000), time.Now())
	require.NoError(t, err)
	require.NoError(t, store.SaveProfile(ctx, p))

	loaded, err := store.Profile(ctx, "room-101")
	require.NoError(t, err)

	day := daterange.MustParse("2025-07-04")
	require.NoError(t, store.UpsertDateOverrides(ctx, "room-101", []time.Time{day}, decimal.NewFromInt(1500)))

	// saving a profile loaded before the override must not drop it
	require.NoError(t, loaded.SetBase(decimal.NewFromInt(900), time.Now()))
	require.NoError(t, store.SaveProfile(ctx, loaded))

	final, err := store.Profile(ctx, "room-101")
	require.NoError(t, err)
	v, ok := final.Override(day)
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(1500)))
	assert.True(t, final.BaseNightly.Equal(decimal.NewFromInt(900)))

	assert.ErrorIs(t, store.UpsertDateOverrides(ctx, "room-101", []time.Time{day}, decimal.NewFromInt(-1)), apperr.ErrValidation)
	assert.ErrorIs(t, store.UpsertDateOverrides(ctx, "nope", []time.Time{day}, decimal.NewFromInt(1)), apperr.ErrNotFound)
}

func TestOutboxClaimLifecycle(t *testing.T) {
	t.Parallel()

	box := NewOutbox(nil)
	ctx := context.Background()
	require.NoError(t, box.Add(ctx, fakeRecord("evt-1")))
	require.NoError(t, box.Add(ctx, fakeRecord("evt-2")))

	msg, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "evt-1", msg.ID)

	require.NoError(t, box.MarkFailed(ctx, msg.ID, time.Now().Add(time.Hour), "broker down"))
	next, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "evt-2", next.ID)
	require.NoError(t, box.MarkSent(ctx, next.ID))

	none, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, none, "evt-1 is backing off")
	assert.Len(t, box.Records(), 1)
}

func TestIdempotencyStoreExpiry(t *testing.T) {
	t.Parallel()

	store := NewIdempotencyStore(time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, middlewareRecord("k1", time.Now().Add(-2*time.Minute))))
	require.NoError(t, store.Save(ctx, middlewareRecord("k2", time.Now())))

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = store.Get(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, found)

	purged, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	purged, err = store.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestInboxSeenAndForget(t *testing.T) {
	t.Parallel()

	in := NewInbox()
	ctx := context.Background()
	seen, err := in.Seen(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, _ = in.Seen(ctx, "e1")
	assert.True(t, seen)
	require.NoError(t, in.Forget(ctx, "e1"))
	seen, _ = in.Seen(ctx, "e1")
	assert.False(t, seen)
}

func middlewareRecord(key string, at time.Time) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, Command: "reservations.confirm", Payload: []byte(`{}`), OccurredAt: at}
}
