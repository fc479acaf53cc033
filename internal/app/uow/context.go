package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// SessionBinder is implemented by units whose repositories find their
// transaction or session through ctx.
type SessionBinder interface {
	InjectContext(ctx context.Context) context.Context
}

type unitKey struct{}

// Bind returns a ctx carrying unit, plus its database session when the unit
// needs one. Handlers down the chain reuse it through FromContext.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if binder, ok := unit.(SessionBinder); ok {
		ctx = binder.InjectContext(ctx)
	}
	return context.WithValue(ctx, unitKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}
