package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomledger/internal/app/dto"
	availabilityapp "roomledger/internal/app/handlers/availability"
	pricingapp "roomledger/internal/app/handlers/pricing"
	roomsapp "roomledger/internal/app/handlers/rooms"
	"roomledger/internal/app/queries"
)

// AvailabilityHandler serves the public read side: room summary, prices and availability.
type AvailabilityHandler struct {
	Queries queries.Bus
}

func (h AvailabilityHandler) Room(c *gin.Context) {
	result, err := queries.Ask[roomsapp.GetRoomQuery, dto.Room](c.Request.Context(), h.Queries, roomsapp.GetRoomQuery{RoomID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Price(c *gin.Context) {
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}
	query := pricingapp.ResolvePriceQuery{RoomID: c.Param("id"), Date: date}
	result, err := queries.Ask[pricingapp.ResolvePriceQuery, dto.NightlyPrice](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Quote(c *gin.Context) {
	checkIn, ok := queryDate(c, "check_in")
	if !ok {
		return
	}
	checkOut, ok := queryDate(c, "check_out")
	if !ok {
		return
	}
	query := pricingapp.QuoteQuery{RoomID: c.Param("id"), CheckIn: checkIn, CheckOut: checkOut}
	result, err := queries.Ask[pricingapp.QuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	checkIn, ok := queryDate(c, "check_in")
	if !ok {
		return
	}
	checkOut, ok := queryDate(c, "check_out")
	if !ok {
		return
	}
	units, ok := optionalInt(c.Query("units"))
	if !ok {
		badRequest(c, "units", "must be an integer")
		return
	}
	query := availabilityapp.CheckQuery{RoomID: c.Param("id"), CheckIn: checkIn, CheckOut: checkOut, Units: units}
	result, err := queries.Ask[availabilityapp.CheckQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
