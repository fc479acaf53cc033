package rooms

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/middleware"
	"roomledger/internal/app/outbox"
	"roomledger/internal/app/uow"
	"roomledger/internal/clock"
	domaininventory "roomledger/internal/domain/inventory"
	domainpricing "roomledger/internal/domain/pricing"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
)

const CreateRoomKey = "rooms.create"

type CreateRoomCommand struct {
	RoomID           string `json:"id" validate:"required,max=64"`
	Name             string `json:"name" validate:"max=200"`
	DefaultUnitCount int    `json:"default_unit_count" validate:"min=1"`
	Currency         string `json:"currency" validate:"omitempty,len=3"`
	BaseNightlyPrice string `json:"base_nightly_price" validate:"required"`
	IdempotencyKeyV  string `json:"-"`
}

func (c CreateRoomCommand) Key() string            { return CreateRoomKey }
func (c CreateRoomCommand) AdminOnly() bool        { return true }
func (c CreateRoomCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CreateRoomCommand) ResultPrototype() any   { return &dto.Room{} }

// CreateRoomHandler creates the room with its default pricing profile and quota
// calendar in one unit of work.
type CreateRoomHandler struct {
	UoWFactory      uow.UoWFactory
	Outbox          outbox.Outbox
	Encoder         outbox.EventEncoder
	Clock           clock.Clock
	DefaultCurrency string
	Logger          *slog.Logger
}

func (h *CreateRoomHandler) Handle(ctx context.Context, cmd CreateRoomCommand) (dto.Room, error) {
	base, err := decimal.NewFromString(strings.TrimSpace(cmd.BaseNightlyPrice))
	if err != nil {
		return dto.Room{}, apperr.Validation("base_nightly_price", "must be a decimal number")
	}
	currency := cmd.Currency
	if currency == "" {
		currency = h.DefaultCurrency
	}

	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Room{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	id := domainrooms.RoomID(strings.TrimSpace(cmd.RoomID))
	if _, err := unit.Rooms().ByID(ctx, id); err == nil {
		return dto.Room{}, domainrooms.ErrRoomExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return dto.Room{}, err
	}

	now := h.Clock.Now()
	room, err := domainrooms.NewRoom(domainrooms.CreateParams{
		ID:               id,
		Name:             cmd.Name,
		DefaultUnitCount: cmd.DefaultUnitCount,
		Currency:         currency,
		Now:              now,
	})
	if err != nil {
		return dto.Room{}, err
	}
	profile, err := domainpricing.NewProfile(room.ID, room.Currency, base, now)
	if err != nil {
		return dto.Room{}, err
	}
	calendar, err := domaininventory.NewCalendar(room.ID, room.DefaultUnitCount)
	if err != nil {
		return dto.Room{}, err
	}

	if err := unit.Rooms().Save(ctx, room); err != nil {
		return dto.Room{}, err
	}
	if err := unit.Pricing().SaveProfile(ctx, profile); err != nil {
		return dto.Room{}, err
	}
	if err := unit.Ledger().Create(ctx, calendar); err != nil {
		return dto.Room{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, room); err != nil {
		return dto.Room{}, err
	}
	if err := unit.Commit(); err != nil {
		return dto.Room{}, err
	}
	h.logger().InfoContext(ctx, "room created", "room_id", room.ID, "units", room.DefaultUnitCount, "currency", room.Currency)
	return dto.MapRoom(room), nil
}

func (h *CreateRoomHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[CreateRoomCommand, dto.Room] = (*CreateRoomHandler)(nil)
var _ middleware.IdempotentCommand = CreateRoomCommand{}
