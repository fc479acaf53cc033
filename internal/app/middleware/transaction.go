package middleware

import (
	"context"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// ReadOnlyCommands opens read-only units for commands marked commands.ReadOnly.
func ReadOnlyCommands(cmd commands.Command) uow.TxOptions {
	return uow.TxOptions{ReadOnly: commands.IsReadOnly(cmd)}
}

// Transaction gives every command its own unit of work, bound into ctx so the
// handler and the repositories it touches share one transaction. The unit
// commits only when the handler succeeded and ctx is still live.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if optsProvider == nil {
		optsProvider = ReadOnlyCommands
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			unit, err := factory.Begin(ctx, optsProvider(cmd))
			if err != nil {
				return nil, err
			}
			return runInUnit(ctx, unit, func(txCtx context.Context) (any, error) {
				return next.Dispatch(txCtx, cmd)
			})
		})
	}
}

func runInUnit(ctx context.Context, unit uow.UnitOfWork, fn func(context.Context) (any, error)) (res any, err error) {
	txCtx := uow.Bind(ctx, unit)
	defer func() {
		if err != nil {
			_ = unit.Rollback(txCtx)
		}
	}()
	if res, err = fn(txCtx); err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if err = unit.Commit(txCtx); err != nil {
		return nil, err
	}
	return res, nil
}
