package calendar

import (
	"context"
	"strings"
	"time"

	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/queries"
	"roomledger/internal/app/uow"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

const ViewKey = "calendar.view"

// ViewQuery lists every day in [From, To] with its resolved price and quota.
type ViewQuery struct {
	RoomID string    `json:"room_id" validate:"required"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

func (q ViewQuery) Key() string     { return ViewKey }
func (q ViewQuery) AdminOnly() bool { return true }

type ViewHandler struct {
	UoWFactory   uow.UoWFactory
	MaxRangeDays int
}

func (h *ViewHandler) Handle(ctx context.Context, q ViewQuery) (dto.CalendarView, error) {
	dr, err := window(q.From, q.To, h.MaxRangeDays)
	if err != nil {
		return dto.CalendarView{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CalendarView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return buildView(execCtx, unit, domainrooms.RoomID(q.RoomID), dr)
}

func window(from, to time.Time, maxDays int) (daterange.DateRange, error) {
	if from.IsZero() {
		return daterange.DateRange{}, apperr.Validation("from", "is required")
	}
	if to.IsZero() {
		return daterange.DateRange{}, apperr.Validation("to", "is required")
	}
	dr, err := daterange.Inclusive(from, to)
	if err != nil {
		return daterange.DateRange{}, apperr.Validation("to", err.Error())
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}
	if dr.Nights() > maxDays {
		return daterange.DateRange{}, apperr.Validation("to", "range exceeds the calendar window limit")
	}
	return dr, nil
}

func buildView(ctx context.Context, unit uow.UnitOfWork, roomID domainrooms.RoomID, dr daterange.DateRange) (dto.CalendarView, error) {
	profile, err := unit.Pricing().Profile(ctx, roomID)
	if err != nil {
		return dto.CalendarView{}, err
	}
	cal, err := unit.Ledger().Calendar(ctx, roomID, dr)
	if err != nil {
		return dto.CalendarView{}, err
	}
	days := dr.Days()
	view := dto.CalendarView{
		RoomID:           string(roomID),
		From:             daterange.Key(dr.CheckIn),
		To:               daterange.Key(dr.Last()),
		DefaultUnitCount: cal.DefaultUnitCount,
		Days:             make([]dto.CalendarDay, 0, len(days)),
	}
	for _, d := range days {
		rate := profile.Resolve(d)
		quota := cal.Quota(d)
		view.Days = append(view.Days, dto.CalendarDay{
			Date:     daterange.Key(d),
			Weekday:  strings.ToLower(d.Weekday().String()),
			Price:    dto.MapMoney(rate.Price),
			Source:   string(rate.Source),
			Quota:    quota,
			Explicit: cal.Explicit(d),
			StopSell: quota == 0 && cal.Explicit(d),
		})
	}
	return view, nil
}

var _ queries.Handler[ViewQuery, dto.CalendarView] = (*ViewHandler)(nil)
