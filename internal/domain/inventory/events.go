package inventory

import (
	"time"

	"roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/daterange"
)

type QuotaReserved struct {
	RoomID rooms.RoomID
	HoldID string
	Range  daterange.DateRange
	Units  int
	At     time.Time
}

func (e QuotaReserved) EventName() string     { return "inventory.quota_reserved" }
func (e QuotaReserved) AggregateID() string   { return string(e.RoomID) }
func (e QuotaReserved) OccurredAt() time.Time { return e.At }

type QuotaReleased struct {
	RoomID rooms.RoomID
	HoldID string
	Range  daterange.DateRange
	Units  int
	At     time.Time
}

func (e QuotaReleased) EventName() string     { return "inventory.quota_released" }
func (e QuotaReleased) AggregateID() string   { return string(e.RoomID) }
func (e QuotaReleased) OccurredAt() time.Time { return e.At }

// RangeApplied is emitted once per bulk edit. Price and Quota are nil when not part of the edit.
type RangeApplied struct {
	RoomID rooms.RoomID
	Range  daterange.DateRange
	Price  *string
	Quota  *int
	At     time.Time
}

func (e RangeApplied) EventName() string     { return "calendar.range_applied" }
func (e RangeApplied) AggregateID() string   { return string(e.RoomID) }
func (e RangeApplied) OccurredAt() time.Time { return e.At }

func QuotaReservedEvent(roomID rooms.RoomID, holdID string, dr daterange.DateRange, units int, at time.Time) QuotaReserved {
	return QuotaReserved{RoomID: roomID, HoldID: holdID, Range: dr, Units: units, At: at.UTC()}
}

func QuotaReleasedEvent(roomID rooms.RoomID, holdID string, dr daterange.DateRange, units int, at time.Time) QuotaReleased {
	return QuotaReleased{RoomID: roomID, HoldID: holdID, Range: dr, Units: units, At: at.UTC()}
}
