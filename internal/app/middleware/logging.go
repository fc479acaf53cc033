package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/queries"
	domainreservation "roomledger/internal/domain/reservation"
	"roomledger/internal/domain/shared/apperr"
)

// Logging records every command with its duration. Client-side failures log at
// Info, overbooking attempts at Warn and anything else at Error.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := next.Ask
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			if err != nil {
				logOutcome(ctx, logger, "query", q.Key(), time.Since(start), err)
			}
			return res, err
		})
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, took time.Duration, err error) {
	attrs := []any{kind, key, "duration_ms", took.Milliseconds()}
	var short *apperr.InsufficientAvailabilityError
	switch {
	case err == nil:
		logger.DebugContext(ctx, kind+" handled", attrs...)
	case errors.As(err, &short):
		attrs = append(attrs, "room_id", short.RoomID, "night", short.Night.Format("2006-01-02"),
			"requested", short.Requested, "available", short.Available)
		logger.WarnContext(ctx, "overbooking prevented", attrs...)
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrConcurrencyConflict), errors.Is(err, domainreservation.ErrInvalidTransition),
		errors.Is(err, context.Canceled):
		logger.InfoContext(ctx, kind+" rejected", append(attrs, "error", err)...)
	default:
		logger.ErrorContext(ctx, kind+" failed", append(attrs, "error", err)...)
	}
}
