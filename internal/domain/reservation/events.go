package reservation

import (
	"time"

	"roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/money"
)

type HoldCreated struct {
	HoldID      HoldID
	RoomID      rooms.RoomID
	Range       daterange.DateRange
	Units       int
	QuotedTotal money.Money
	At          time.Time
}

func (e HoldCreated) EventName() string     { return "reservation.created" }
func (e HoldCreated) AggregateID() string   { return string(e.HoldID) }
func (e HoldCreated) OccurredAt() time.Time { return e.At }

type HoldConfirmed struct {
	HoldID HoldID
	RoomID rooms.RoomID
	Range  daterange.DateRange
	Units  int
	Total  money.Money
	At     time.Time
}

func (e HoldConfirmed) EventName() string     { return "reservation.confirmed" }
func (e HoldConfirmed) AggregateID() string   { return string(e.HoldID) }
func (e HoldConfirmed) OccurredAt() time.Time { return e.At }

type HoldCancelled struct {
	HoldID   HoldID
	RoomID   rooms.RoomID
	Range    daterange.DateRange
	Units    int
	Released bool
	Reason   string
	At       time.Time
}

func (e HoldCancelled) EventName() string     { return "reservation.cancelled" }
func (e HoldCancelled) AggregateID() string   { return string(e.HoldID) }
func (e HoldCancelled) OccurredAt() time.Time { return e.At }

type HoldCompleted struct {
	HoldID HoldID
	RoomID rooms.RoomID
	At     time.Time
}

func (e HoldCompleted) EventName() string     { return "reservation.completed" }
func (e HoldCompleted) AggregateID() string   { return string(e.HoldID) }
func (e HoldCompleted) OccurredAt() time.Time { return e.At }
