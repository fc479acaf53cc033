package commands

import (
	"context"
	"errors"
	"fmt"
)

// Command is a write intent. Key routes it to exactly one handler.
type Command interface {
	Key() string
}

// ReadOnly is implemented by commands that only read the ledger (rate sheet
// exports). The transaction middleware opens a read-only unit for them.
type ReadOnly interface {
	ReadOnly() bool
}

// IsReadOnly reports whether cmd asked for a read-only unit of work.
func IsReadOnly(cmd Command) bool {
	ro, ok := cmd.(ReadOnly)
	return ok && ro.ReadOnly()
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("commands: handler not found")
	ErrInvalidCommand  = errors.New("commands: invalid command for handler")
	ErrResultType      = errors.New("commands: result type mismatch")
)

// Dispatch sends cmd through bus and asserts the handler result to R.
// A nil result yields the zero R.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var out R
	if bus == nil {
		return out, fmt.Errorf("commands: dispatch %s: nil bus", cmd.Key())
	}
	res, err := bus.Dispatch(ctx, cmd)
	if err != nil || res == nil {
		return out, err
	}
	typed, ok := res.(R)
	if !ok {
		return out, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, cmd.Key(), res, out)
	}
	return typed, nil
}
