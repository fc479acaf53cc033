package main

import (
	"context"
	"fmt"
	"log/slog"

	"roomledger/internal/app/middleware"
	appoutbox "roomledger/internal/app/outbox"
	"roomledger/internal/app/uow"
	"roomledger/internal/infra/broker/kafka"
	"roomledger/internal/infra/config"
	"roomledger/internal/infra/db/mongo"
	"roomledger/internal/infra/db/postgres"
	"roomledger/internal/infra/db/postgres/migrations"
	infraoutbox "roomledger/internal/infra/outbox"
	"roomledger/internal/infra/storage/memory"
)

const consumerName = "frontdesk-checkout"

type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.ClaimStore
}

// storage is the driver-independent view main needs of a backend.
type storage struct {
	factory     uow.UoWFactory
	outbox      outboxStore
	idempotency middleware.IdempotencyStore
	inbox       kafka.Inbox
	ping        func(ctx context.Context) error
	purge       func(ctx context.Context) (int64, error) // nil when the backend expires keys itself
	close       func()
}

func openStorage(ctx context.Context, cfg config.Config, notify infraoutbox.Notifier, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		store.Outbox.SetNotifier(notify)
		store.Idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		logger.Warn("using in-memory storage; data is lost on restart")
		return storage{
			factory:     store,
			outbox:      store.Outbox,
			idempotency: store.Idempotency,
			inbox:       store.Inbox,
			ping:        func(context.Context) error { return nil },
			purge:       store.Idempotency.Purge,
			close:       func() {},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return storage{}, err
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("migrate: %w", err)
		}
		store := postgres.NewStore(pool, notify, consumerName)
		store.Idempotency.TTL = cfg.IdempotencyTTL
		logger.Info("postgres storage ready")
		return storage{
			factory:     store,
			outbox:      store.Outbox,
			idempotency: store.Idempotency,
			inbox:       store.Inbox,
			ping:        store.Ping,
			purge:       store.Idempotency.Purge,
			close:       pool.Close,
		}, nil

	case config.DriverMongo:
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, err
		}
		store, err := mongo.NewStore(ctx, client.DB, mongo.StoreOptions{
			Notify:         notify,
			Consumer:       consumerName,
			IdempotencyTTL: cfg.IdempotencyTTL,
		})
		if err != nil {
			_ = client.Close(context.Background())
			return storage{}, err
		}
		logger.Info("mongo storage ready", "database", cfg.MongoDB)
		return storage{
			factory:     store,
			outbox:      store.Outbox,
			idempotency: store.Idempotency,
			inbox:       store.Inbox,
			ping:        store.Ping,
			close:       func() { _ = client.Close(context.Background()) },
		}, nil
	}
	return storage{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
