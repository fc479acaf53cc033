package reservations

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/middleware"
	"roomledger/internal/app/outbox"
	"roomledger/internal/app/policies"
	"roomledger/internal/app/uow"
	"roomledger/internal/clock"
	domainpricing "roomledger/internal/domain/pricing"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/daterange"
)

const CreateHoldKey = "reservations.create_hold"

// CreateHoldCommand opens a pending hold priced at the current stay total.
// Pending holds do not consume quota.
type CreateHoldCommand struct {
	HoldID          string    `json:"hold_id" validate:"omitempty,max=64"`
	RoomID          string    `json:"room_id" validate:"required"`
	CheckIn         time.Time `json:"check_in"`
	CheckOut        time.Time `json:"check_out"`
	Units           *int      `json:"units"`
	GuestRef        string    `json:"guest_ref" validate:"max=128"`
	IdempotencyKeyV string    `json:"-"`
}

func (c CreateHoldCommand) Key() string            { return CreateHoldKey }
func (c CreateHoldCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CreateHoldCommand) ResultPrototype() any   { return &dto.Hold{} }

type CreateHoldHandler struct {
	UoWFactory uow.UoWFactory
	// Pricing overrides the unit's profile store when set.
	Pricing policies.PricingPort
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   clock.Clock
	Logger  *slog.Logger
}

func (h *CreateHoldHandler) Handle(ctx context.Context, cmd CreateHoldCommand) (dto.Hold, error) {
	units, err := handlersupport.UnitsOrDefault(cmd.Units)
	if err != nil {
		return dto.Hold{}, err
	}
	id := cmd.HoldID
	if id == "" {
		id = uuid.NewString()
	}
	dr := daterange.DateRange{CheckIn: daterange.Day(cmd.CheckIn), CheckOut: daterange.Day(cmd.CheckOut)}

	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hold{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	roomID := domainrooms.RoomID(cmd.RoomID)
	if _, err := unit.Rooms().ByID(ctx, roomID); err != nil {
		return dto.Hold{}, err
	}
	pricing := h.Pricing
	if pricing == nil {
		pricing = domainpricing.StayCalculator{Profiles: unit.Pricing()}
	}
	quote, err := pricing.Quote(ctx, roomID, dr)
	if err != nil {
		return dto.Hold{}, err
	}
	hold, err := domainreservation.NewHold(domainreservation.CreateParams{
		ID:          domainreservation.HoldID(id),
		RoomID:      roomID,
		Range:       dr,
		Units:       units,
		QuotedTotal: quote.Total,
		GuestRef:    cmd.GuestRef,
		Now:         h.Clock.Now(),
	})
	if err != nil {
		return dto.Hold{}, err
	}
	if err := unit.Holds().Save(ctx, hold); err != nil {
		return dto.Hold{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, hold); err != nil {
		return dto.Hold{}, err
	}
	if err := unit.Commit(); err != nil {
		return dto.Hold{}, err
	}
	return dto.MapHold(hold), nil
}

var _ commands.Handler[CreateHoldCommand, dto.Hold] = (*CreateHoldHandler)(nil)
var _ middleware.IdempotentCommand = CreateHoldCommand{}
