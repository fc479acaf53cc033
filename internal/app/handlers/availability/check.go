package availability

import (
	"context"
	"time"

	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/queries"
	"roomledger/internal/app/uow"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

const CheckKey = "availability.check"

// CheckQuery asks whether Units can be sold on every night of [CheckIn, CheckOut).
// Units defaults to 1.
type CheckQuery struct {
	RoomID   string    `json:"room_id" validate:"required"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Units    *int      `json:"units"` // nil means one unit
}

func (q CheckQuery) Key() string { return CheckKey }

type CheckHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckHandler) Handle(ctx context.Context, q CheckQuery) (dto.Availability, error) {
	units, err := handlersupport.UnitsOrDefault(q.Units)
	if err != nil {
		return dto.Availability{}, err
	}
	dr := daterange.DateRange{CheckIn: daterange.Day(q.CheckIn), CheckOut: daterange.Day(q.CheckOut)}
	if err := dr.Validate(); err != nil {
		return dto.Availability{}, apperr.Validation("check_out", "check-out must be after check-in")
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	cal, err := unit.Ledger().Calendar(execCtx, domainrooms.RoomID(q.RoomID), dr)
	if err != nil {
		return dto.Availability{}, err
	}
	out := dto.Availability{
		RoomID:    q.RoomID,
		CheckIn:   daterange.Key(dr.CheckIn),
		CheckOut:  daterange.Key(dr.CheckOut),
		Units:     units,
		Available: true,
	}
	if short := cal.Shortfall(dr, units); short != nil {
		out.Available = false
		out.FirstUnavailable = daterange.Key(short.Night)
	}
	return out, nil
}

var _ queries.Handler[CheckQuery, dto.Availability] = (*CheckHandler)(nil)
