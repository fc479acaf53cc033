package pricing

import (
	"context"
	"time"

	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/queries"
	"roomledger/internal/app/uow"
	domainpricing "roomledger/internal/domain/pricing"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/daterange"
)

const (
	ResolvePriceKey = "pricing.resolve"
	QuoteKey        = "pricing.quote"
)

type ResolvePriceQuery struct {
	RoomID string    `json:"room_id" validate:"required"`
	Date   time.Time `json:"date"`
}

func (q ResolvePriceQuery) Key() string { return ResolvePriceKey }

type ResolvePriceHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ResolvePriceHandler) Handle(ctx context.Context, q ResolvePriceQuery) (dto.NightlyPrice, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.NightlyPrice{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	resolver := domainpricing.Resolver{Profiles: unit.Pricing()}
	rate, err := resolver.Resolve(execCtx, domainrooms.RoomID(q.RoomID), q.Date)
	if err != nil {
		return dto.NightlyPrice{}, err
	}
	return dto.MapNightlyPrice(q.RoomID, rate), nil
}

type QuoteQuery struct {
	RoomID   string    `json:"room_id" validate:"required"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

func (q QuoteQuery) Key() string { return QuoteKey }

type QuoteHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QuoteHandler) Handle(ctx context.Context, q QuoteQuery) (dto.Quote, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	dr := daterange.DateRange{CheckIn: daterange.Day(q.CheckIn), CheckOut: daterange.Day(q.CheckOut)}
	calc := domainpricing.StayCalculator{Profiles: unit.Pricing()}
	quote, err := calc.Quote(execCtx, domainrooms.RoomID(q.RoomID), dr)
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.MapQuote(quote), nil
}

var (
	_ queries.Handler[ResolvePriceQuery, dto.NightlyPrice] = (*ResolvePriceHandler)(nil)
	_ queries.Handler[QuoteQuery, dto.Quote]               = (*QuoteHandler)(nil)
)
