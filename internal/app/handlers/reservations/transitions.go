package reservations

import (
	"context"
	"log/slog"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/middleware"
	"roomledger/internal/app/outbox"
	"roomledger/internal/app/uow"
	"roomledger/internal/clock"
	domaininventory "roomledger/internal/domain/inventory"
	domainreservation "roomledger/internal/domain/reservation"
	"roomledger/internal/domain/shared/events"
)

const (
	ConfirmHoldKey  = "reservations.confirm"
	CancelHoldKey   = "reservations.cancel"
	CompleteHoldKey = "reservations.complete"
)

type ConfirmHoldCommand struct {
	HoldID          string `json:"hold_id" validate:"required"`
	IdempotencyKeyV string `json:"-"`
}

func (c ConfirmHoldCommand) Key() string            { return ConfirmHoldKey }
func (c ConfirmHoldCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c ConfirmHoldCommand) ResultPrototype() any   { return &dto.Hold{} }

type CancelHoldCommand struct {
	HoldID          string `json:"hold_id" validate:"required"`
	Reason          string `json:"reason" validate:"max=500"`
	IdempotencyKeyV string `json:"-"`
}

func (c CancelHoldCommand) Key() string            { return CancelHoldKey }
func (c CancelHoldCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CancelHoldCommand) ResultPrototype() any   { return &dto.Hold{} }

type CompleteHoldCommand struct {
	HoldID          string `json:"hold_id" validate:"required"`
	IdempotencyKeyV string `json:"-"`
}

func (c CompleteHoldCommand) Key() string            { return CompleteHoldKey }
func (c CompleteHoldCommand) AdminOnly() bool        { return true }
func (c CompleteHoldCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c CompleteHoldCommand) ResultPrototype() any   { return &dto.Hold{} }

// LedgerDeps is shared by the hold transition handlers.
type LedgerDeps struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (d LedgerDeps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// ConfirmHoldHandler reserves quota for every night of a pending hold and marks it
// confirmed. When any night is short the hold stays pending and nothing changes.
type ConfirmHoldHandler struct {
	LedgerDeps
}

func (h *ConfirmHoldHandler) Handle(ctx context.Context, cmd ConfirmHoldCommand) (dto.Hold, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hold{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	hold, err := unit.Holds().ByID(ctx, domainreservation.HoldID(cmd.HoldID))
	if err != nil {
		return dto.Hold{}, err
	}
	now := h.Clock.Now()
	if err := hold.Confirm(now); err != nil {
		return dto.Hold{}, err
	}
	if err := unit.Ledger().Reserve(ctx, hold.RoomID, hold.Range, hold.Units); err != nil {
		return dto.Hold{}, err
	}
	if err := unit.Holds().Save(ctx, hold); err != nil {
		return dto.Hold{}, err
	}
	reserved := domaininventory.QuotaReservedEvent(hold.RoomID, string(hold.ID), hold.Range, hold.Units, now)
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, hold); err != nil {
		return dto.Hold{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{reserved}); err != nil {
		return dto.Hold{}, err
	}
	if err := unit.Commit(); err != nil {
		return dto.Hold{}, err
	}
	h.logger().InfoContext(ctx, "hold confirmed", "hold_id", hold.ID, "room_id", hold.RoomID,
		"nights", hold.Range.Nights(), "units", hold.Units)
	return dto.MapHold(hold), nil
}

// CancelHoldHandler cancels a hold, releasing quota only if the hold was confirmed.
type CancelHoldHandler struct {
	LedgerDeps
}

func (h *CancelHoldHandler) Handle(ctx context.Context, cmd CancelHoldCommand) (dto.Hold, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hold{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	hold, err := unit.Holds().ByID(ctx, domainreservation.HoldID(cmd.HoldID))
	if err != nil {
		return dto.Hold{}, err
	}
	now := h.Clock.Now()
	release, err := hold.Cancel(cmd.Reason, now)
	if err != nil {
		return dto.Hold{}, err
	}
	var evs []events.DomainEvent
	if release {
		if err := unit.Ledger().Release(ctx, hold.RoomID, hold.Range, hold.Units); err != nil {
			return dto.Hold{}, err
		}
		evs = append(evs, domaininventory.QuotaReleasedEvent(hold.RoomID, string(hold.ID), hold.Range, hold.Units, now))
	}
	if err := unit.Holds().Save(ctx, hold); err != nil {
		return dto.Hold{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, hold); err != nil {
		return dto.Hold{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, evs); err != nil {
		return dto.Hold{}, err
	}
	if err := unit.Commit(); err != nil {
		return dto.Hold{}, err
	}
	h.logger().InfoContext(ctx, "hold cancelled", "hold_id", hold.ID, "room_id", hold.RoomID, "released", release)
	return dto.MapHold(hold), nil
}

// CompleteHoldHandler closes a confirmed stay; the consumed quota is kept.
type CompleteHoldHandler struct {
	LedgerDeps
}

func (h *CompleteHoldHandler) Handle(ctx context.Context, cmd CompleteHoldCommand) (dto.Hold, error) {
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hold{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	hold, err := unit.Holds().ByID(ctx, domainreservation.HoldID(cmd.HoldID))
	if err != nil {
		return dto.Hold{}, err
	}
	if err := hold.Complete(h.Clock.Now()); err != nil {
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
	h.logger().InfoContext(ctx, "hold completed", "hold_id", hold.ID, "room_id", hold.RoomID)
	return dto.MapHold(hold), nil
}

var (
	_ commands.Handler[ConfirmHoldCommand, dto.Hold]  = (*ConfirmHoldHandler)(nil)
	_ commands.Handler[CancelHoldCommand, dto.Hold]   = (*CancelHoldHandler)(nil)
	_ commands.Handler[CompleteHoldCommand, dto.Hold] = (*CompleteHoldHandler)(nil)
	_ middleware.IdempotentCommand                    = ConfirmHoldCommand{}
	_ middleware.IdempotentCommand                    = CancelHoldCommand{}
)
