package middleware

import (
	"context"
	"log/slog"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/outbox"
)

// OutboxFlush wakes the outbox worker once a writing command has committed.
// Flush errors are logged and swallowed; the worker's poll still finds the records.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil || commands.IsReadOnly(cmd) {
				return res, err
			}
			if ferr := box.Flush(ctx); ferr != nil {
				logger.WarnContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", ferr)
			}
			return res, nil
		})
	}
}
