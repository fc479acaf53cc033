package wiring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	availabilityapp "roomledger/internal/app/handlers/availability"
	calendarapp "roomledger/internal/app/handlers/calendar"
	pricingapp "roomledger/internal/app/handlers/pricing"
	reservationsapp "roomledger/internal/app/handlers/reservations"
	roomsapp "roomledger/internal/app/handlers/rooms"
	"roomledger/internal/app/middleware"
	"roomledger/internal/app/queries"
	"roomledger/internal/clock"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/infra/storage/memory"
)

type EngineSuite struct {
	suite.Suite
	store *memory.Store
	buses Buses
	admin context.Context
	ctx   context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.store = memory.NewStore()
	s.buses = Build(Deps{
		UoWFactory:      s.store,
		Outbox:          s.store.Outbox,
		Idempotency:     s.store.Idempotency,
		Clock:           clock.NewFixed(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		DefaultCurrency: "USD",
	})
	s.ctx = context.Background()
	s.admin = middleware.WithAdmin(s.ctx, "test-admin")
}

func day(raw string) time.Time { return daterange.MustParse(raw) }

func ptr[T any](v T) *T { return &v }

func (s *EngineSuite) createRoom(id string, units int, base string) {
	_, err := commands.Dispatch[roomsapp.CreateRoomCommand, dto.Room](s.admin, s.buses.Commands, roomsapp.CreateRoomCommand{
		RoomID: id, Name: "Deluxe", DefaultUnitCount: units, BaseNightlyPrice: base,
	})
	s.Require().NoError(err)
}

func (s *EngineSuite) hold(roomID, from, to string, units int) dto.Hold {
	h, err := commands.Dispatch[reservationsapp.CreateHoldCommand, dto.Hold](s.ctx, s.buses.Commands, reservationsapp.CreateHoldCommand{
		RoomID: roomID, CheckIn: day(from), CheckOut: day(to), Units: ptr(units),
	})
	s.Require().NoError(err)
	return h
}

func (s *EngineSuite) confirm(id string) (dto.Hold, error) {
	return commands.Dispatch[reservationsapp.ConfirmHoldCommand, dto.Hold](s.ctx, s.buses.Commands, reservationsapp.ConfirmHoldCommand{HoldID: id})
}

func (s *EngineSuite) available(roomID, from, to string, units int) bool {
	res, err := queries.Ask[availabilityapp.CheckQuery, dto.Availability](s.ctx, s.buses.Queries, availabilityapp.CheckQuery{
		RoomID: roomID, CheckIn: day(from), CheckOut: day(to), Units: ptr(units),
	})
	s.Require().NoError(err)
	return res.Available
}

func (s *EngineSuite) view(roomID, from, to string) dto.CalendarView {
	v, err := queries.Ask[calendarapp.ViewQuery, dto.CalendarView](s.admin, s.buses.Queries, calendarapp.ViewQuery{
		RoomID: roomID, From: day(from), To: day(to),
	})
	s.Require().NoError(err)
	return v
}

func (s *EngineSuite) TestScenarioLayeredPricing() {
	s.createRoom("room-a", 1, "1000")
	_, err := commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](s.admin, s.buses.Commands, calendarapp.ApplyRangeCommand{
		RoomID: "room-a", From: day("2025-07-04"), To: day("2025-07-04"), Price: ptr("1500"),
	})
	s.Require().NoError(err)
	_, err = commands.Dispatch[pricingapp.UpdateProfileCommand, dto.PricingProfile](s.admin, s.buses.Commands, pricingapp.UpdateProfileCommand{
		RoomID: "room-a", WeekdayPrices: map[string]*string{"friday": ptr("1200")},
	})
	s.Require().NoError(err)

	quote, err := queries.Ask[pricingapp.QuoteQuery, dto.Quote](s.ctx, s.buses.Queries, pricingapp.QuoteQuery{
		RoomID: "room-a", CheckIn: day("2025-07-03"), CheckOut: day("2025-07-05"),
	})
	s.Require().NoError(err)
	s.Equal("2500.00", quote.Total.Amount)
	s.Require().Len(quote.Nights, 2)
	s.Equal("date_override", quote.Nights[1].Source)

	price, err := queries.Ask[pricingapp.ResolvePriceQuery, dto.NightlyPrice](s.ctx, s.buses.Queries, pricingapp.ResolvePriceQuery{
		RoomID: "room-a", Date: day("2025-07-11"),
	})
	s.Require().NoError(err)
	s.Equal("1200.00", price.Price.Amount)
	s.Equal("weekday", price.Source)
}

func (s *EngineSuite) TestScenarioLastUnitIsNotOversold() {
	s.createRoom("room-b", 3, "100")
	holds := make([]dto.Hold, 4)
	for i := range holds {
		holds[i] = s.hold("room-b", "2025-07-10", "2025-07-12", 1)
	}
	for _, h := range holds[:3] {
		confirmed, err := s.confirm(h.ID)
		s.Require().NoError(err)
		s.Equal("confirmed", confirmed.Status)
	}
	_, err := s.confirm(holds[3].ID)
	var short *apperr.InsufficientAvailabilityError
	s.Require().ErrorAs(err, &short)
	s.Equal("2025-07-10", daterange.Key(short.Night))

	last, err := queries.Ask[reservationsapp.GetHoldQuery, dto.Hold](s.ctx, s.buses.Queries, reservationsapp.GetHoldQuery{HoldID: holds[3].ID})
	s.Require().NoError(err)
	s.Equal("pending", last.Status, "failed confirm leaves the hold pending")
}

func (s *EngineSuite) TestScenarioStopSell() {
	s.createRoom("room-c", 4, "250")
	_, err := commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](s.admin, s.buses.Commands, calendarapp.ApplyRangeCommand{
		RoomID: "room-c", From: day("2025-08-05"), To: day("2025-08-01"), Quota: ptr(0),
	})
	s.Require().NoError(err)

	for _, r := range [][2]string{{"2025-08-01", "2025-08-02"}, {"2025-08-03", "2025-08-06"}, {"2025-07-30", "2025-08-02"}} {
		s.False(s.available("room-c", r[0], r[1], 1), "%s..%s", r[0], r[1])
	}
	s.True(s.available("room-c", "2025-08-06", "2025-08-08", 4))

	v := s.view("room-c", "2025-08-01", "2025-08-05")
	s.Require().Len(v.Days, 5)
	for _, d := range v.Days {
		s.True(d.StopSell)
		s.True(decimal.RequireFromString(d.Price.Amount).IsPositive())
	}
}

func (s *EngineSuite) TestScenarioPendingCancelKeepsQuota() {
	s.createRoom("room-d", 2, "100")
	h := s.hold("room-d", "2025-09-01", "2025-09-03", 2)
	before := s.view("room-d", "2025-09-01", "2025-09-02")

	cancelled, err := commands.Dispatch[reservationsapp.CancelHoldCommand, dto.Hold](s.ctx, s.buses.Commands, reservationsapp.CancelHoldCommand{HoldID: h.ID})
	s.Require().NoError(err)
	s.Equal("cancelled", cancelled.Status)
	s.Equal(before, s.view("room-d", "2025-09-01", "2025-09-02"))
}

func (s *EngineSuite) TestConfirmedCancelReleasesQuota() {
	s.createRoom("room-e", 1, "100")
	h := s.hold("room-e", "2025-09-01", "2025-09-04", 1)
	_, err := s.confirm(h.ID)
	s.Require().NoError(err)
	s.False(s.available("room-e", "2025-09-02", "2025-09-03", 1))

	_, err = commands.Dispatch[reservationsapp.CancelHoldCommand, dto.Hold](s.ctx, s.buses.Commands, reservationsapp.CancelHoldCommand{HoldID: h.ID})
	s.Require().NoError(err)
	s.True(s.available("room-e", "2025-09-01", "2025-09-04", 1))
	for _, d := range s.view("room-e", "2025-09-01", "2025-09-03").Days {
		s.Equal(1, d.Quota)
	}
}

func (s *EngineSuite) TestCompleteRequiresConfirmedAndAdmin() {
	s.createRoom("room-f", 1, "100")
	h := s.hold("room-f", "2025-09-01", "2025-09-02", 1)

	_, err := commands.Dispatch[reservationsapp.CompleteHoldCommand, dto.Hold](s.admin, s.buses.Commands, reservationsapp.CompleteHoldCommand{HoldID: h.ID})
	s.ErrorIs(err, domainreservation.ErrInvalidTransition)

	_, err = s.confirm(h.ID)
	s.Require().NoError(err)
	_, err = commands.Dispatch[reservationsapp.CompleteHoldCommand, dto.Hold](s.ctx, s.buses.Commands, reservationsapp.CompleteHoldCommand{HoldID: h.ID})
	s.ErrorIs(err, middleware.ErrForbidden)

	done, err := commands.Dispatch[reservationsapp.CompleteHoldCommand, dto.Hold](s.admin, s.buses.Commands, reservationsapp.CompleteHoldCommand{HoldID: h.ID})
	s.Require().NoError(err)
	s.Equal("completed", done.Status)
	s.False(s.available("room-f", "2025-09-01", "2025-09-02", 1), "completed stays keep their units")
}

func (s *EngineSuite) TestBulkRangeIsIdempotent() {
	s.createRoom("room-g", 3, "100")
	cmd := calendarapp.ApplyRangeCommand{RoomID: "room-g", From: day("2025-10-01"), To: day("2025-10-03"), Price: ptr("180.50"), Quota: ptr(1)}
	_, err := commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](s.admin, s.buses.Commands, cmd)
	s.Require().NoError(err)
	first := s.view("room-g", "2025-09-30", "2025-10-04")
	_, err = commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](s.admin, s.buses.Commands, cmd)
	s.Require().NoError(err)
	s.Equal(first, s.view("room-g", "2025-09-30", "2025-10-04"))

	s.Equal(3, first.Days[0].Quota)
	s.Equal("180.50", first.Days[1].Price.Amount)
	s.Equal(1, first.Days[1].Quota)
}

func (s *EngineSuite) TestBulkRangeValidation() {
	s.createRoom("room-h", 1, "100")
	cases := []struct {
		name  string
		cmd   calendarapp.ApplyRangeCommand
		field string
	}{
		{"nothing to apply", calendarapp.ApplyRangeCommand{RoomID: "room-h", From: day("2025-10-01"), To: day("2025-10-02")}, "price"},
		{"sub-cent price", calendarapp.ApplyRangeCommand{RoomID: "room-h", From: day("2025-10-01"), To: day("2025-10-02"), Price: ptr("100.005")}, "price"},
		{"price too large", calendarapp.ApplyRangeCommand{RoomID: "room-h", From: day("2025-10-01"), To: day("2025-10-02"), Price: ptr("1000000000000")}, "price"},
		{"negative price", calendarapp.ApplyRangeCommand{RoomID: "room-h", From: day("2025-10-01"), To: day("2025-10-02"), Price: ptr("-1")}, "price"},
		{"negative quota", calendarapp.ApplyRangeCommand{RoomID: "room-h", From: day("2025-10-01"), To: day("2025-10-02"), Quota: ptr(-1)}, "quota"},
		{"too long", calendarapp.ApplyRangeCommand{RoomID: "room-h", From: day("2025-01-01"), To: day("2026-06-01"), Quota: ptr(1)}, "to"},
	}
	for _, tc := range cases {
		_, err := commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](s.admin, s.buses.Commands, tc.cmd)
		var verr *apperr.ValidationError
		s.Require().ErrorAs(err, &verr, tc.name)
		s.Equal(tc.field, verr.Field, tc.name)
	}
	_, err := commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](s.admin, s.buses.Commands, calendarapp.ApplyRangeCommand{
		RoomID: "missing", From: day("2025-10-01"), To: day("2025-10-02"), Quota: ptr(1),
	})
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *EngineSuite) TestConcurrentConfirmsForLastUnit() {
	s.createRoom("room-i", 1, "100")
	const racers = 8
	ids := make([]string, racers)
	for i := range ids {
		ids[i] = s.hold("room-i", "2025-11-01", "2025-11-03", 1).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.confirm(ids[i])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperr.ErrInsufficientAvailability):
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.False(s.available("room-i", "2025-11-01", "2025-11-03", 1))
}

func (s *EngineSuite) TestIdempotentConfirmReplaysResult() {
	s.createRoom("room-j", 2, "100")
	h := s.hold("room-j", "2025-11-01", "2025-11-02", 1)
	cmd := reservationsapp.ConfirmHoldCommand{HoldID: h.ID, IdempotencyKeyV: "confirm-" + h.ID}

	first, err := commands.Dispatch[reservationsapp.ConfirmHoldCommand, dto.Hold](s.ctx, s.buses.Commands, cmd)
	s.Require().NoError(err)
	second, err := commands.Dispatch[reservationsapp.ConfirmHoldCommand, dto.Hold](s.ctx, s.buses.Commands, cmd)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal("confirmed", second.Status)
	s.Equal(1, s.view("room-j", "2025-11-01", "2025-11-01").Days[0].Quota, "replay does not reserve twice")
}

func (s *EngineSuite) TestEventsRecordedOnlyOnCommit() {
	s.createRoom("room-k", 1, "100")
	h := s.hold("room-k", "2025-11-01", "2025-11-02", 1)
	_, err := s.confirm(h.ID)
	s.Require().NoError(err)
	before := len(s.store.Outbox.Records())

	other := s.hold("room-k", "2025-11-01", "2025-11-02", 1)
	after := len(s.store.Outbox.Records())
	s.Equal(before+1, after)
	_, err = s.confirm(other.ID)
	s.Require().Error(err)
	s.Len(s.store.Outbox.Records(), after, "failed confirm leaves no events")

	var names []string
	for _, r := range s.store.Outbox.Records() {
		names = append(names, r.Name)
	}
	s.Contains(names, "rooms.created")
	s.Contains(names, "reservation.confirmed")
	s.Contains(names, "inventory.quota_reserved")
}

func (s *EngineSuite) TestDuplicateRoomAndUnknownRoom() {
	s.createRoom("room-l", 1, "100")
	_, err := commands.Dispatch[roomsapp.CreateRoomCommand, dto.Room](s.admin, s.buses.Commands, roomsapp.CreateRoomCommand{
		RoomID: "room-l", DefaultUnitCount: 1, BaseNightlyPrice: "1",
	})
	s.ErrorIs(err, domainrooms.ErrRoomExists)

	_, err = queries.Ask[availabilityapp.CheckQuery, dto.Availability](s.ctx, s.buses.Queries, availabilityapp.CheckQuery{
		RoomID: "ghost", CheckIn: day("2025-07-01"), CheckOut: day("2025-07-02"),
	})
	s.ErrorIs(err, apperr.ErrNotFound)

	_, err = queries.Ask[availabilityapp.CheckQuery, dto.Availability](s.ctx, s.buses.Queries, availabilityapp.CheckQuery{
		RoomID: "room-l", CheckIn: day("2025-07-02"), CheckOut: day("2025-07-02"),
	})
	s.ErrorIs(err, apperr.ErrValidation)
}

func (s *EngineSuite) TestQuoteTotalEqualsSumOfRenderedNights() {
	s.createRoom("room-m", 1, "99.99")
	_, err := commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](s.admin, s.buses.Commands, calendarapp.ApplyRangeCommand{
		RoomID: "room-m", From: day("2025-08-01"), To: day("2025-08-02"), Price: ptr("100.10"),
	})
	s.Require().NoError(err)
	_, err = commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](s.admin, s.buses.Commands, calendarapp.ApplyRangeCommand{
		RoomID: "room-m", From: day("2025-08-01"), To: day("2025-08-03"), Price: ptr("100.005"),
	})
	s.Require().ErrorIs(err, apperr.ErrValidation)

	quote, err := queries.Ask[pricingapp.QuoteQuery, dto.Quote](s.ctx, s.buses.Queries, pricingapp.QuoteQuery{
		RoomID: "room-m", CheckIn: day("2025-08-01"), CheckOut: day("2025-08-04"),
	})
	s.Require().NoError(err)
	s.Require().Len(quote.Nights, 3)
	sum := decimal.Zero
	for _, n := range quote.Nights {
		sum = sum.Add(decimal.RequireFromString(n.Price.Amount))
	}
	s.Equal(sum.StringFixed(2), quote.Total.Amount)
	s.Equal("300.19", quote.Total.Amount)
}

func (s *EngineSuite) TestExplicitZeroUnitsIsRejected() {
	s.createRoom("room-n", 2, "100")
	s.True(s.available("room-n", "2025-08-01", "2025-08-02", 1))

	res, err := queries.Ask[availabilityapp.CheckQuery, dto.Availability](s.ctx, s.buses.Queries, availabilityapp.CheckQuery{
		RoomID: "room-n", CheckIn: day("2025-08-01"), CheckOut: day("2025-08-02"),
	})
	s.Require().NoError(err)
	s.Equal(1, res.Units, "absent units means one")

	_, err = queries.Ask[availabilityapp.CheckQuery, dto.Availability](s.ctx, s.buses.Queries, availabilityapp.CheckQuery{
		RoomID: "room-n", CheckIn: day("2025-08-01"), CheckOut: day("2025-08-02"), Units: ptr(0),
	})
	var verr *apperr.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("units", verr.Field)

	_, err = commands.Dispatch[reservationsapp.CreateHoldCommand, dto.Hold](s.ctx, s.buses.Commands, reservationsapp.CreateHoldCommand{
		RoomID: "room-n", CheckIn: day("2025-08-01"), CheckOut: day("2025-08-02"), Units: ptr(0),
	})
	s.Require().ErrorAs(err, &verr)
	s.Equal("units", verr.Field)
}
