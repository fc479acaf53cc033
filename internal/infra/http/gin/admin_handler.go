package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	calendarapp "roomledger/internal/app/handlers/calendar"
	pricingapp "roomledger/internal/app/handlers/pricing"
	reservationsapp "roomledger/internal/app/handlers/reservations"
	roomsapp "roomledger/internal/app/handlers/rooms"
	"roomledger/internal/app/queries"
)

// AdminHandler serves back-office routes. The admin gate has already put the
// principal on the request context; the buses enforce it again per message.
type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createRoomRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	DefaultUnitCount int    `json:"default_unit_count"`
	Currency         string `json:"currency"`
	BaseNightlyPrice string `json:"base_nightly_price"`
}

type updatePricingRequest struct {
	BaseNightlyPrice *string            `json:"base_nightly_price"`
	WeekdayPrices    map[string]*string `json:"weekday_prices"`
}

type applyRangeRequest struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Price *string `json:"price"`
	Quota *int    `json:"quota"`
}

type exportRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h AdminHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err.Error())
		return
	}
	cmd := roomsapp.CreateRoomCommand{
		RoomID:           req.ID,
		Name:             req.Name,
		DefaultUnitCount: req.DefaultUnitCount,
		Currency:         req.Currency,
		BaseNightlyPrice: req.BaseNightlyPrice,
		IdempotencyKeyV:  idempotencyKey(c),
	}
	result, err := commands.Dispatch[roomsapp.CreateRoomCommand, dto.Room](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AdminHandler) UpdatePricing(c *gin.Context) {
	var req updatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err.Error())
		return
	}
	cmd := pricingapp.UpdateProfileCommand{
		RoomID:           c.Param("id"),
		BaseNightlyPrice: req.BaseNightlyPrice,
		WeekdayPrices:    req.WeekdayPrices,
	}
	result, err := commands.Dispatch[pricingapp.UpdateProfileCommand, dto.PricingProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) ApplyRange(c *gin.Context) {
	var req applyRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err.Error())
		return
	}
	from, ok := parseDate(c, "from", req.From)
	if !ok {
		return
	}
	to, ok := parseDate(c, "to", req.To)
	if !ok {
		return
	}
	cmd := calendarapp.ApplyRangeCommand{
		RoomID:          c.Param("id"),
		From:            from,
		To:              to,
		Price:           req.Price,
		Quota:           req.Quota,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[calendarapp.ApplyRangeCommand, dto.RangeApplied](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) Calendar(c *gin.Context) {
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}
	query := calendarapp.ViewQuery{RoomID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[calendarapp.ViewQuery, dto.CalendarView](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err.Error())
		return
	}
	from, ok := parseDate(c, "from", req.From)
	if !ok {
		return
	}
	to, ok := parseDate(c, "to", req.To)
	if !ok {
		return
	}
	cmd := calendarapp.ExportCommand{RoomID: c.Param("id"), From: from, To: to}
	result, err := commands.Dispatch[calendarapp.ExportCommand, dto.RateSheetExport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) CompleteHold(c *gin.Context) {
	cmd := reservationsapp.CompleteHoldCommand{HoldID: c.Param("id"), IdempotencyKeyV: idempotencyKey(c)}
	result, err := commands.Dispatch[reservationsapp.CompleteHoldCommand, dto.Hold](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AdminHTTP = AdminHandler{}
