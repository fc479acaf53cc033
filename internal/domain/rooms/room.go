package rooms

import (
	"context"
	"errors"
	"strings"
	"time"

	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/events"
	"roomledger/internal/domain/shared/money"
)

var ErrRoomExists = errors.New("rooms: room already exists")

type RoomID string

// Room is an inventory pool: DefaultUnitCount identical units sold under one price profile.
// A classic single room is simply DefaultUnitCount = 1.
type Room struct {
	ID               RoomID
	Name             string
	DefaultUnitCount int
	Currency         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id RoomID) (*Room, error)
	Save(ctx context.Context, room *Room) error
}

type CreateParams struct {
	ID               RoomID
	Name             string
	DefaultUnitCount int
	Currency         string
	Now              time.Time
}

func NewRoom(params CreateParams) (*Room, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, apperr.Validation("id", "room id is required")
	}
	if params.DefaultUnitCount < 1 {
		return nil, apperr.Validation("default_unit_count", "must be at least 1")
	}
	currency, err := money.NormalizeCurrency(params.Currency)
	if err != nil {
		return nil, apperr.Validation("currency", err.Error())
	}
	now := params.Now.UTC()
	r := &Room{
		ID:               params.ID,
		Name:             strings.TrimSpace(params.Name),
		DefaultUnitCount: params.DefaultUnitCount,
		Currency:         currency,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.Record(RoomCreated{RoomID: r.ID, Units: r.DefaultUnitCount, At: now})
	return r, nil
}

type RoomCreated struct {
	RoomID RoomID
	Units  int
	At     time.Time
}

func (e RoomCreated) EventName() string     { return "rooms.created" }
func (e RoomCreated) AggregateID() string   { return string(e.RoomID) }
func (e RoomCreated) OccurredAt() time.Time { return e.At }
