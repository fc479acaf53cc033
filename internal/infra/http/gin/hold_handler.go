package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	reservationsapp "roomledger/internal/app/handlers/reservations"
	"roomledger/internal/app/queries"
)

type HoldHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createHoldRequest struct {
	HoldID   string `json:"hold_id"`
	RoomID   string `json:"room_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Units    *int   `json:"units"`
	GuestRef string `json:"guest_ref"`
}

type cancelHoldRequest struct {
	Reason string `json:"reason"`
}

func (h HoldHandler) Create(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err.Error())
		return
	}
	checkIn, ok := parseDate(c, "check_in", req.CheckIn)
	if !ok {
		return
	}
	checkOut, ok := parseDate(c, "check_out", req.CheckOut)
	if !ok {
		return
	}
	cmd := reservationsapp.CreateHoldCommand{
		HoldID:          req.HoldID,
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Units:           req.Units,
		GuestRef:        req.GuestRef,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[reservationsapp.CreateHoldCommand, dto.Hold](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HoldHandler) Get(c *gin.Context) {
	result, err := queries.Ask[reservationsapp.GetHoldQuery, dto.Hold](c.Request.Context(), h.Queries, reservationsapp.GetHoldQuery{HoldID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HoldHandler) Confirm(c *gin.Context) {
	cmd := reservationsapp.ConfirmHoldCommand{HoldID: c.Param("id"), IdempotencyKeyV: idempotencyKey(c)}
	result, err := commands.Dispatch[reservationsapp.ConfirmHoldCommand, dto.Hold](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HoldHandler) Cancel(c *gin.Context) {
	var req cancelHoldRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "", err.Error())
			return
		}
	}
	cmd := reservationsapp.CancelHoldCommand{HoldID: c.Param("id"), Reason: req.Reason, IdempotencyKeyV: idempotencyKey(c)}
	result, err := commands.Dispatch[reservationsapp.CancelHoldCommand, dto.Hold](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HoldHTTP = HoldHandler{}
