package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roomledger/internal/app/middleware"
)

// IdempotencyStore persists command results. Rows older than TTL are ignored on
// read and removed by Purge.
type IdempotencyStore struct {
	pool *pgxpool.Pool
	TTL  time.Duration
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	const query = `SELECT key, command, payload, occurred_at FROM idempotency_keys WHERE key = $1`
	var rec middleware.IdempotencyRecord
	err := s.pool.QueryRow(ctx, query, key).Scan(&rec.Key, &rec.Command, &rec.Payload, &rec.OccurredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, mapError("get idempotency key", err)
	}
	if s.TTL > 0 && time.Since(rec.OccurredAt) > s.TTL {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	const stmt = `
INSERT INTO idempotency_keys (key, command, payload, occurred_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET command = EXCLUDED.command, payload = EXCLUDED.payload, occurred_at = EXCLUDED.occurred_at`
	_, err := s.pool.Exec(ctx, stmt, rec.Key, rec.Command, rec.Payload, rec.OccurredAt)
	return mapError("save idempotency key", err)
}

// Purge deletes expired keys and returns how many were removed.
func (s *IdempotencyStore) Purge(ctx context.Context) (int64, error) {
	if s.TTL <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE occurred_at < $1`, time.Now().Add(-s.TTL))
	if err != nil {
		return 0, mapError("purge idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
