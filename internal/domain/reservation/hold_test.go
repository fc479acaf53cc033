package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/money"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestHold(t *testing.T) *Hold {
	t.Helper()
	dr, err := daterange.New(daterange.MustParse("2025-07-03"), daterange.MustParse("2025-07-05"))
	require.NoError(t, err)
	h, err := NewHold(CreateParams{
		ID:          "hold-1",
		RoomID:      "room-101",
		Range:       dr,
		Units:       1,
		QuotedTotal: money.Must(2500, "USD"),
		GuestRef:    "guest-7",
		Now:         now,
	})
	require.NoError(t, err)
	return h
}

func TestNewHoldStartsPending(t *testing.T) {
	t.Parallel()

	h := newTestHold(t)
	assert.Equal(t, StatusPending, h.Status)
	events := h.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "reservation.created", events[0].EventName())
}

func TestNewHoldValidation(t *testing.T) {
	t.Parallel()

	day := daterange.MustParse("2025-07-03")
	valid, _ := daterange.New(day, day.AddDate(0, 0, 1))
	cases := []struct {
		name   string
		params CreateParams
		field  string
	}{
		{"missing room", CreateParams{ID: "h", Range: valid, Units: 1}, "room_id"},
		{"empty range", CreateParams{ID: "h", RoomID: "r", Range: daterange.DateRange{CheckIn: day, CheckOut: day}, Units: 1}, "check_out"},
		{"zero units", CreateParams{ID: "h", RoomID: "r", Range: valid}, "units"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewHold(tc.params)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestTransitions(t *testing.T) {
	t.Parallel()

	t.Run("pending cancel does not release", func(t *testing.T) {
		h := newTestHold(t)
		release, err := h.Cancel("guest changed plans", now)
		require.NoError(t, err)
		assert.False(t, release)
		assert.Equal(t, StatusCancelled, h.Status)
	})

	t.Run("confirmed cancel releases", func(t *testing.T) {
		h := newTestHold(t)
		require.NoError(t, h.Confirm(now))
		release, err := h.Cancel("", now)
		require.NoError(t, err)
		assert.True(t, release)
	})

	t.Run("confirmed completes", func(t *testing.T) {
		h := newTestHold(t)
		require.NoError(t, h.Confirm(now))
		require.NoError(t, h.Complete(now))
		assert.Equal(t, StatusCompleted, h.Status)
	})

	t.Run("illegal moves", func(t *testing.T) {
		h := newTestHold(t)
		assert.ErrorIs(t, h.Complete(now), ErrInvalidTransition)

		require.NoError(t, h.Confirm(now))
		assert.ErrorIs(t, h.Confirm(now), ErrInvalidTransition)

		_, err := h.Cancel("", now)
		require.NoError(t, err)
		_, err = h.Cancel("", now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.ErrorIs(t, h.Confirm(now), ErrInvalidTransition)
		assert.ErrorIs(t, h.Complete(now), ErrInvalidTransition)
	})
}

func TestCloneDropsPendingEvents(t *testing.T) {
	t.Parallel()

	h := newTestHold(t)
	c := h.Clone()
	assert.Empty(t, c.PendingEvents())
	assert.Equal(t, h.ID, c.ID)
	assert.Len(t, h.PendingEvents(), 1)
}
