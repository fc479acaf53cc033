package memory

import (
	"context"
	"errors"
	"sync"

	"roomledger/internal/app/uow"
	domaininventory "roomledger/internal/domain/inventory"
	domainpricing "roomledger/internal/domain/pricing"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
)

var ErrUnitClosed = errors.New("memory: unit of work already finished")

// Store bundles the in-memory repositories and hands out units of work over them.
// Write units are serialized by one mutex; read-only units see committed data and
// whatever a concurrent writer has applied so far.
type Store struct {
	Rooms       *RoomRepository
	Profiles    *ProfileStore
	Ledger      *Ledger
	Holds       *HoldRepository
	Outbox      *Outbox
	Idempotency *IdempotencyStore
	Inbox       *Inbox

	writeMu sync.Mutex
}

func NewStore() *Store {
	return &Store{
		Rooms:       NewRoomRepository(),
		Profiles:    NewProfileStore(),
		Ledger:      NewLedger(),
		Holds:       NewHoldRepository(),
		Outbox:      NewOutbox(nil),
		Idempotency: NewIdempotencyStore(0),
		Inbox:       NewInbox(),
	}
}

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u := &Unit{store: s, readOnly: opts.ReadOnly}
	if !opts.ReadOnly {
		s.writeMu.Lock()
	}
	return u, nil
}

// Unit applies writes immediately and keeps an undo log; Rollback replays it in reverse.
type Unit struct {
	store    *Store
	readOnly bool

	mu   sync.Mutex
	undo []func()
	done bool
}

type unitKey struct{}

// InjectContext lets repositories find the unit and enlist undo steps.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, unitKey{}, u)
}

func (u *Unit) Rooms() domainrooms.Repository       { return u.store.Rooms }
func (u *Unit) Pricing() domainpricing.ProfileStore { return u.store.Profiles }
func (u *Unit) Ledger() domaininventory.Ledger      { return u.store.Ledger }
func (u *Unit) Holds() domainreservation.Repository { return u.store.Holds }

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	defer u.release()
	if err := ctx.Err(); err != nil {
		u.rollbackLocked()
		return err
	}
	u.undo = nil
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	defer u.release()
	u.rollbackLocked()
	return nil
}

func (u *Unit) rollbackLocked() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

// release marks the unit finished and frees the write lock.
func (u *Unit) release() {
	u.done = true
	if !u.readOnly {
		u.store.writeMu.Unlock()
	}
}

func (u *Unit) enlist(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.done {
		u.undo = append(u.undo, fn)
	}
}

// enlist records an undo step on the unit carried by ctx, if any. Writes made
// outside a unit are final.
func enlist(ctx context.Context, fn func()) {
	if u, ok := ctx.Value(unitKey{}).(*Unit); ok && u != nil {
		u.enlist(fn)
	}
}

var _ uow.UoWFactory = (*Store)(nil)
var _ uow.UnitOfWork = (*Unit)(nil)
