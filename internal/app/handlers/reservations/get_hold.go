package reservations

import (
	"context"

	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/queries"
	"roomledger/internal/app/uow"
	domainreservation "roomledger/internal/domain/reservation"
)

const GetHoldKey = "reservations.get"

type GetHoldQuery struct {
	HoldID string `json:"hold_id" validate:"required"`
}

func (q GetHoldQuery) Key() string { return GetHoldKey }

type GetHoldHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetHoldHandler) Handle(ctx context.Context, q GetHoldQuery) (dto.Hold, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Hold{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	hold, err := unit.Holds().ByID(execCtx, domainreservation.HoldID(q.HoldID))
	if err != nil {
		return dto.Hold{}, err
	}
	return dto.MapHold(hold), nil
}

var _ queries.Handler[GetHoldQuery, dto.Hold] = (*GetHoldHandler)(nil)
