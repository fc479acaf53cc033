package calendar

import (
	"context"
	"log/slog"
	"strings"
	"time"

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
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/events"
)

const ApplyRangeKey = "calendar.apply_range"

// DefaultMaxRangeDays bounds a single bulk edit.
const DefaultMaxRangeDays = 366

// ApplyRangeCommand upserts a price override and/or a quota for every day in
// [From, To], both ends included. Reversed bounds are swapped.
type ApplyRangeCommand struct {
	RoomID          string    `json:"room_id" validate:"required"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	Price           *string   `json:"price"`
	Quota           *int      `json:"quota"`
	IdempotencyKeyV string    `json:"-"`
}

func (c ApplyRangeCommand) Key() string            { return ApplyRangeKey }
func (c ApplyRangeCommand) AdminOnly() bool        { return true }
func (c ApplyRangeCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c ApplyRangeCommand) ResultPrototype() any   { return &dto.RangeApplied{} }

type ApplyRangeHandler struct {
	UoWFactory   uow.UoWFactory
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Clock        clock.Clock
	MaxRangeDays int
	Logger       *slog.Logger
}

func (h *ApplyRangeHandler) Handle(ctx context.Context, cmd ApplyRangeCommand) (dto.RangeApplied, error) {
	if cmd.Price == nil && cmd.Quota == nil {
		return dto.RangeApplied{}, apperr.Validation("price", "price or quota is required")
	}
	if cmd.From.IsZero() {
		return dto.RangeApplied{}, apperr.Validation("from", "is required")
	}
	if cmd.To.IsZero() {
		return dto.RangeApplied{}, apperr.Validation("to", "is required")
	}
	var price decimal.Decimal
	if cmd.Price != nil {
		p, err := decimal.NewFromString(strings.TrimSpace(*cmd.Price))
		if err != nil {
			return dto.RangeApplied{}, apperr.Validation("price", "must be a decimal number")
		}
		if err := domainpricing.ValidatePrice("price", p); err != nil {
			return dto.RangeApplied{}, err
		}
		price = p
	}
	if cmd.Quota != nil && *cmd.Quota < 0 {
		return dto.RangeApplied{}, apperr.Validation("quota", "must be non-negative")
	}
	dr, err := daterange.Inclusive(cmd.From, cmd.To)
	if err != nil {
		return dto.RangeApplied{}, apperr.Validation("to", err.Error())
	}
	if limit := h.maxDays(); dr.Nights() > limit {
		return dto.RangeApplied{}, apperr.Validation("to", "range exceeds the bulk edit limit")
	}

	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RangeApplied{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	roomID := domainrooms.RoomID(cmd.RoomID)
	if _, err := unit.Rooms().ByID(ctx, roomID); err != nil {
		return dto.RangeApplied{}, err
	}
	days := dr.Days()
	result := dto.RangeApplied{
		RoomID: cmd.RoomID,
		From:   daterange.Key(dr.CheckIn),
		To:     daterange.Key(dr.Last()),
		Days:   len(days),
	}
	if cmd.Price != nil {
		if err := unit.Pricing().UpsertDateOverrides(ctx, roomID, days, price); err != nil {
			return dto.RangeApplied{}, err
		}
		s := price.String()
		result.Price = &s
	}
	if cmd.Quota != nil {
		if err := unit.Ledger().SetQuota(ctx, roomID, days, *cmd.Quota); err != nil {
			return dto.RangeApplied{}, err
		}
		q := *cmd.Quota
		result.Quota = &q
	}

	ev := domaininventory.RangeApplied{RoomID: roomID, Range: dr, Price: result.Price, Quota: result.Quota, At: h.Clock.Now()}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{ev}); err != nil {
		return dto.RangeApplied{}, err
	}
	if err := unit.Commit(); err != nil {
		return dto.RangeApplied{}, err
	}
	h.logger().InfoContext(ctx, "calendar range applied", "room_id", roomID, "from", result.From, "to", result.To,
		"days", result.Days, "price_set", cmd.Price != nil, "quota_set", cmd.Quota != nil)
	return result, nil
}

func (h *ApplyRangeHandler) maxDays() int {
	if h.MaxRangeDays > 0 {
		return h.MaxRangeDays
	}
	return DefaultMaxRangeDays
}

func (h *ApplyRangeHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[ApplyRangeCommand, dto.RangeApplied] = (*ApplyRangeHandler)(nil)
var _ middleware.IdempotentCommand = ApplyRangeCommand{}
