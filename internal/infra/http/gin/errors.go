package ginserver

import (
	"context"
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	calendarapp "roomledger/internal/app/handlers/calendar"
	"roomledger/internal/app/middleware"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
	Night string `json:"night,omitempty"`
}

// writeError maps application errors onto HTTP statuses. Unknown errors are
// reported as 500 without leaking their text.
func writeError(c *gin.Context, err error) {
	status, body := mapError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func mapError(err error) (int, errorBody) {
	var (
		verr  *apperr.ValidationError
		short *apperr.InsufficientAvailabilityError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: verr.Reason, Code: "validation", Field: verr.Field}
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Code: "validation"}
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "not_found"}
	case errors.As(err, &short):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "insufficient_availability", Night: daterange.Key(short.Night)}
	case errors.Is(err, apperr.ErrConcurrencyConflict):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "concurrency_conflict"}
	case errors.Is(err, domainreservation.ErrInvalidTransition):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "invalid_transition"}
	case errors.Is(err, domainrooms.ErrRoomExists):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "room_exists"}
	case errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: "idempotency_key_reused"}
	case errors.Is(err, middleware.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: "admin token required", Code: "forbidden"}
	case errors.Is(err, calendarapp.ErrPublisherMissing):
		return http.StatusServiceUnavailable, errorBody{Error: err.Error(), Code: "unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Error: "request timed out", Code: "timeout"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"}
	}
}

func badRequest(c *gin.Context, field, reason string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: reason, Code: "validation", Field: field})
}
