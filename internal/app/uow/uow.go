// Package uow defines the transaction boundary handlers work in. One unit
// spans every repository a command touches, so a hold and the quota it
// consumes are committed together or not at all.
package uow

import (
	"context"

	domaininventory "roomledger/internal/domain/inventory"
	domainpricing "roomledger/internal/domain/pricing"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
)

type UnitOfWork interface {
	Rooms() domainrooms.Repository
	Pricing() domainpricing.ProfileStore
	Ledger() domaininventory.Ledger
	Holds() domainreservation.Repository

	// Commit may fail with apperr.ErrConcurrencyConflict when a concurrent unit wrote the
	// same room calendar (Mongo write conflicts). Retrying is the caller's call.
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory is implemented by the memory, Postgres and Mongo stores.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// ReadOnly units cannot write: Postgres opens a read-only transaction and the
// memory store skips its writer lock.
type TxOptions struct {
	ReadOnly bool
}
