package calendar

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/policies"
	"roomledger/internal/app/uow"
	"roomledger/internal/clock"
	domainrooms "roomledger/internal/domain/rooms"
)

const ExportKey = "calendar.export"

var ErrPublisherMissing = errors.New("calendar: rate sheet publisher not configured")

// ExportCommand renders the calendar view as a CSV rate sheet and publishes it.
type ExportCommand struct {
	RoomID string    `json:"room_id" validate:"required"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

func (c ExportCommand) Key() string     { return ExportKey }
func (c ExportCommand) AdminOnly() bool { return true }
func (c ExportCommand) ReadOnly() bool  { return true }

type ExportHandler struct {
	UoWFactory   uow.UoWFactory
	Publisher    policies.RateSheetPublisher
	Clock        clock.Clock
	MaxRangeDays int
	Logger       *slog.Logger
}

var rateSheetHeader = []string{"date", "weekday", "price", "currency", "source", "quota", "stop_sell"}

func (h *ExportHandler) Handle(ctx context.Context, cmd ExportCommand) (dto.RateSheetExport, error) {
	if h.Publisher == nil {
		return dto.RateSheetExport{}, ErrPublisherMissing
	}
	dr, err := window(cmd.From, cmd.To, h.MaxRangeDays)
	if err != nil {
		return dto.RateSheetExport{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RateSheetExport{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	view, err := buildView(execCtx, unit, domainrooms.RoomID(cmd.RoomID), dr)
	if err != nil {
		return dto.RateSheetExport{}, err
	}

	body, err := RenderRateSheet(view)
	if err != nil {
		return dto.RateSheetExport{}, err
	}
	key := fmt.Sprintf("rate-sheets/%s/%s_%s-%d.csv", view.RoomID, view.From, view.To, h.Clock.Now().Unix())
	location, err := h.Publisher.Publish(ctx, policies.RateSheet{
		Key:         key,
		ContentType: "text/csv",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return dto.RateSheetExport{}, fmt.Errorf("publish rate sheet: %w", err)
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "rate sheet exported", "room_id", view.RoomID, "location", location, "rows", len(view.Days))
	}
	return dto.RateSheetExport{RoomID: view.RoomID, Location: location, Rows: len(view.Days)}, nil
}

// RenderRateSheet writes one CSV row per day of view, preceded by a header row.
func RenderRateSheet(view dto.CalendarView) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rateSheetHeader); err != nil {
		return nil, err
	}
	for _, d := range view.Days {
		row := []string{
			d.Date,
			d.Weekday,
			d.Price.Amount,
			d.Price.Currency,
			d.Source,
			strconv.Itoa(d.Quota),
			strconv.FormatBool(d.StopSell),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ commands.Handler[ExportCommand, dto.RateSheetExport] = (*ExportHandler)(nil)
