package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomledger/internal/app/uow"
	domaininventory "roomledger/internal/domain/inventory"
	domainpricing "roomledger/internal/domain/pricing"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
	infraoutbox "roomledger/internal/infra/outbox"
)

var ErrUnitClosed = errors.New("postgres: unit of work already finished")

// Store bundles the Postgres repositories and opens one transaction per unit of work.
type Store struct {
	Pool        *pgxpool.Pool
	Rooms       *RoomRepository
	Profiles    *ProfileStore
	Ledger      *Ledger
	Holds       *HoldRepository
	Outbox      *Outbox
	Idempotency *IdempotencyStore
	Inbox       *Inbox
}

func NewStore(pool *pgxpool.Pool, notify infraoutbox.Notifier, consumer string) *Store {
	return &Store{
		Pool:        pool,
		Rooms:       &RoomRepository{pool: pool},
		Profiles:    &ProfileStore{pool: pool},
		Ledger:      &Ledger{pool: pool},
		Holds:       &HoldRepository{pool: pool},
		Outbox:      &Outbox{pool: pool, notify: notify},
		Idempotency: &IdempotencyStore{pool: pool},
		Inbox:       &Inbox{pool: pool, consumer: consumer},
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := s.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, mapError("begin", err)
	}
	return &Unit{store: s, tx: tx}, nil
}

type Unit struct {
	store *Store
	tx    pgx.Tx

	mu   sync.Mutex
	done bool
}

// InjectContext makes repositories run their statements on this unit's transaction.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return contextWithTx(ctx, u.tx)
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
	u.done = true
	return mapError("commit", u.tx.Commit(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

var (
	_ uow.UoWFactory = (*Store)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
