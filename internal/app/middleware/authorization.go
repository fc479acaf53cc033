package middleware

import (
	"context"
	"errors"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/queries"
)

// ErrForbidden is returned when an admin-only message is dispatched without an admin principal.
var ErrForbidden = errors.New("middleware: admin principal required")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// AdminOnly marks commands and queries reserved for back-office callers.
type AdminOnly interface {
	AdminOnly() bool
}

type principalKey struct{}

// WithAdmin marks ctx as carrying an authenticated administrator.
func WithAdmin(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, principalKey{}, subject)
}

func AdminFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(principalKey{}).(string)
	return subject, ok
}

// AdminAuthorizer lets AdminOnly messages through only when ctx carries an admin.
type AdminAuthorizer struct{}

func (AdminAuthorizer) Authorize(ctx context.Context, message any) error {
	marked, ok := message.(AdminOnly)
	if !ok || !marked.AdminOnly() {
		return nil
	}
	if _, ok := AdminFromContext(ctx); !ok {
		return ErrForbidden
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := next.Ask
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
