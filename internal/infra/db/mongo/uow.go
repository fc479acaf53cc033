package mongo

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"roomledger/internal/app/uow"
	domaininventory "roomledger/internal/domain/inventory"
	domainpricing "roomledger/internal/domain/pricing"
	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
	infraoutbox "roomledger/internal/infra/outbox"
)

var (
	ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")
	ErrUnitClosed              = errors.New("mongo: unit of work already finished")
)

// Store wires Mongo repositories and session transactions into the UnitOfWork interface.
// Transactions need a replica set.
type Store struct {
	DB          *mongo.Database
	Rooms       *RoomRepository
	Profiles    *ProfileStore
	Ledger      *Ledger
	Holds       *HoldRepository
	Outbox      *Outbox
	Idempotency *IdempotencyStore
	Inbox       *Inbox
}

type StoreOptions struct {
	Notify         infraoutbox.Notifier
	Consumer       string
	IdempotencyTTL time.Duration
}

// NewStore builds the repositories and makes sure their indexes exist.
func NewStore(ctx context.Context, db *mongo.Database, opts StoreOptions) (*Store, error) {
	if db == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	s := &Store{
		DB:          db,
		Rooms:       &RoomRepository{col: db.Collection("rooms")},
		Profiles:    &ProfileStore{profiles: db.Collection("pricing_profiles"), overrides: db.Collection("pricing_overrides")},
		Ledger:      &Ledger{db: db, calendars: db.Collection("room_calendars"), entries: db.Collection("quota_entries")},
		Holds:       &HoldRepository{col: db.Collection("holds")},
		Outbox:      &Outbox{col: db.Collection("app_outbox"), notify: opts.Notify},
		Idempotency: &IdempotencyStore{col: db.Collection("app_idempotency"), ttl: opts.IdempotencyTTL},
		Inbox:       &Inbox{col: db.Collection("app_inbox"), consumer: opts.Consumer},
	}
	for _, ensure := range []func(context.Context) error{
		s.Profiles.ensureIndexes,
		s.Ledger.ensureIndexes,
		s.Holds.ensureIndexes,
		s.Outbox.ensureIndexes,
		s.Idempotency.ensureIndexes,
		s.Inbox.ensureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Client().Ping(ctx, nil)
}

// Begin starts a MongoDB session/transaction.
func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	session, err := s.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot()).SetWriteConcern(writeconcern.Majority())
	if opts.ReadOnly {
		txnOpts = options.Transaction().SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{store: s, session: session}, nil
}

type Unit struct {
	store   *Store
	session mongo.Session

	mu   sync.Mutex
	done bool
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
	defer u.session.EndSession(context.WithoutCancel(ctx))
	return mapError("commit", u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	ctx = context.WithoutCancel(ctx)
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory = (*Store)(nil)
	_ uow.UnitOfWork = (*Unit)(nil)
)
