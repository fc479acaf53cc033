package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/events"
	"roomledger/internal/domain/shared/money"
)

var ErrInvalidTransition = errors.New("reservation: invalid state transition")

type HoldID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Hold is a guest's claim on a stay. Only confirmed holds own ledger units.
type Hold struct {
	ID          HoldID
	RoomID      rooms.RoomID
	Range       daterange.DateRange
	Units       int
	Status      Status
	QuotedTotal money.Money
	GuestRef    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
	events.EventRecorder
}

// Repository saves holds with optimistic versioning: Version 0 inserts, any other
// value must match the stored version or the save fails with a concurrency conflict.
type Repository interface {
	ByID(ctx context.Context, id HoldID) (*Hold, error)
	Save(ctx context.Context, hold *Hold) error
}

type CreateParams struct {
	ID          HoldID
	RoomID      rooms.RoomID
	Range       daterange.DateRange
	Units       int
	QuotedTotal money.Money
	GuestRef    string
	Now         time.Time
}

func NewHold(params CreateParams) (*Hold, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, apperr.Validation("id", "hold id is required")
	}
	if strings.TrimSpace(string(params.RoomID)) == "" {
		return nil, apperr.Validation("room_id", "room id is required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, apperr.Validation("check_out", "check-out must be after check-in")
	}
	if params.Units < 1 {
		return nil, apperr.Validation("units", "must be at least 1")
	}
	now := params.Now.UTC()
	h := &Hold{
		ID:          params.ID,
		RoomID:      params.RoomID,
		Range:       params.Range,
		Units:       params.Units,
		Status:      StatusPending,
		QuotedTotal: params.QuotedTotal,
		GuestRef:    strings.TrimSpace(params.GuestRef),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	h.Record(HoldCreated{HoldID: h.ID, RoomID: h.RoomID, Range: h.Range, Units: h.Units, QuotedTotal: h.QuotedTotal, At: now})
	return h, nil
}

// Confirm moves a pending hold to confirmed. The caller reserves ledger units first.
func (h *Hold) Confirm(now time.Time) error {
	if h.Status != StatusPending {
		return ErrInvalidTransition
	}
	h.Status = StatusConfirmed
	h.UpdatedAt = now.UTC()
	h.Record(HoldConfirmed{HoldID: h.ID, RoomID: h.RoomID, Range: h.Range, Units: h.Units, Total: h.QuotedTotal, At: h.UpdatedAt})
	return nil
}

// Cancel reports whether the hold owned ledger units that must now be released.
func (h *Hold) Cancel(reason string, now time.Time) (bool, error) {
	var release bool
	switch h.Status {
	case StatusPending:
	case StatusConfirmed:
		release = true
	default:
		return false, ErrInvalidTransition
	}
	h.Status = StatusCancelled
	h.UpdatedAt = now.UTC()
	h.Record(HoldCancelled{HoldID: h.ID, RoomID: h.RoomID, Range: h.Range, Units: h.Units, Released: release, Reason: reason, At: h.UpdatedAt})
	return release, nil
}

// Complete closes a confirmed stay; units stay consumed.
func (h *Hold) Complete(now time.Time) error {
	if h.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	h.Status = StatusCompleted
	h.UpdatedAt = now.UTC()
	h.Record(HoldCompleted{HoldID: h.ID, RoomID: h.RoomID, At: h.UpdatedAt})
	return nil
}

func (h *Hold) Clone() *Hold {
	c := *h
	c.EventRecorder = events.EventRecorder{}
	return &c
}
