// Package apperr holds the error taxonomy shared by the pricing, inventory and
// reservation packages. Callers match kinds with errors.Is against the sentinels
// and extract details with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrNotFound                 = errors.New("not found")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrConcurrencyConflict      = errors.New("concurrency conflict")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown aggregate identifier.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientAvailabilityError names the first night that cannot satisfy the request.
type InsufficientAvailabilityError struct {
	RoomID    string
	Night     time.Time
	Requested int
	Available int
}

func (e *InsufficientAvailabilityError) Error() string {
	return fmt.Sprintf("room %s has %d unit(s) left on %s, %d requested",
		e.RoomID, e.Available, e.Night.Format("2006-01-02"), e.Requested)
}

func (e *InsufficientAvailabilityError) Is(target error) bool {
	return target == ErrInsufficientAvailability
}

// ConcurrencyConflictError means the storage layer lost a race; the caller should
// restart the whole booking attempt rather than replay the same write.
type ConcurrencyConflictError struct {
	Op  string
	Err error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: concurrent update detected", e.Op)
	}
	return fmt.Sprintf("%s: concurrent update detected: %v", e.Op, e.Err)
}

func (e *ConcurrencyConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }

func (e *ConcurrencyConflictError) Unwrap() error { return e.Err }

func Conflict(op string, err error) error {
	return &ConcurrencyConflictError{Op: op, Err: err}
}
