package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"roomledger/internal/app/policies"
	"roomledger/internal/app/wiring"
	"roomledger/internal/clock"
	"roomledger/internal/infra/broker/kafka"
	"roomledger/internal/infra/config"
	ginserver "roomledger/internal/infra/http/gin"
	"roomledger/internal/infra/obs"
	infraoutbox "roomledger/internal/infra/outbox"
	"roomledger/internal/infra/security"
	"roomledger/internal/infra/storage/s3"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-token" {
		if err := hashToken(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := obs.NewLogger(getenv("APP_ENV", "dev"))
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger = obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("roomledger stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("roomledger stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	notify := infraoutbox.NewNotifier()
	store, err := openStorage(ctx, cfg, notify, logger)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}
	defer store.close()

	checks := map[string]obs.ReadinessCheck{"storage": store.ping}
	var rateSheets policies.RateSheetPublisher
	if cfg.S3Enabled() {
		publisher, err := s3.NewPublisher(s3.Options{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			UseSSL:         cfg.S3UseSSL,
		}, logger)
		if err != nil {
			return err
		}
		rateSheets = publisher
		checks["s3"] = publisher.Ping
	} else {
		logger.Warn("S3 not configured; rate sheet export disabled")
	}

	buses := wiring.Build(wiring.Deps{
		UoWFactory:      store.factory,
		Outbox:          store.outbox,
		Idempotency:     store.idempotency,
		RateSheets:      rateSheets,
		Clock:           clock.NewSystem(),
		Logger:          logger,
		DefaultCurrency: cfg.DefaultCurrency,
		MaxRangeDays:    cfg.MaxBulkRangeDays,
	})

	g, ctx := errgroup.WithContext(ctx)

	if store.purge != nil {
		g.Go(func() error { return ignoreCancel(purgeLoop(ctx, store.purge, time.Hour, logger)) })
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		worker := &infraoutbox.Worker{
			Store:       store.outbox,
			Producer:    producer,
			Wake:        notify,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger.With("component", "outbox"),
		}
		g.Go(func() error { return ignoreCancel(worker.Run(ctx)) })

		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, &kafka.CheckoutHandler{
			Commands: buses.Commands,
			Inbox:    store.inbox,
			Logger:   logger.With("component", "frontdesk"),
		}, cfg.RetryBackoff, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer consumer.Close()
		g.Go(func() error { return ignoreCancel(consumer.Run(ctx, []string{cfg.FrontDeskTopic})) })
		logger.Info("kafka enabled", "brokers", cfg.KafkaBrokers, "frontdesk_topic", cfg.FrontDeskTopic)
	} else {
		logger.Warn("KAFKA_BROKERS not set; outbox records stay unpublished")
	}

	if cfg.AdminTokenHash == "" {
		logger.Warn("ADMIN_TOKEN_HASH not set; admin routes reject every request")
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: checks, Timeout: 2 * time.Second}, ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Queries: buses.Queries},
		Holds:        ginserver.HoldHandler{Commands: buses.Commands, Queries: buses.Queries},
		Admin:        ginserver.AdminHandler{Commands: buses.Commands, Queries: buses.Queries},
		AdminAuth: ginserver.AdminGate{
			Verifier: security.AdminTokenVerifier{Hash: cfg.AdminTokenHash},
			Logger:   logger,
		}.Handle,
	})

	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func purgeLoop(ctx context.Context, purge func(context.Context) (int64, error), every time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		n, err := purge(ctx)
		if err != nil {
			logger.Warn("idempotency purge failed", "error", err)
			continue
		}
		if n > 0 {
			logger.Info("expired idempotency keys purged", "count", n)
		}
	}
}

func hashToken(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: roomledger hash-token <token>")
	}
	hash, err := security.BcryptHasher{}.Hash(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
