package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "roomledger/internal/app/outbox"
	infraoutbox "roomledger/internal/infra/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// claimLease is how long a claimed row stays invisible before another worker may retry it.
const claimLease = time.Minute

// Outbox writes records on the unit's transaction and serves them to the worker
// with FOR UPDATE SKIP LOCKED claims.
type Outbox struct {
	pool   *pgxpool.Pool
	notify infraoutbox.Notifier
}

func (o *Outbox) SetNotifier(n infraoutbox.Notifier) {
	o.notify = n
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	const stmt = `
INSERT INTO outbox (id, name, aggregate, payload, headers, occurred_at, state, attempts, next_attempt_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0, NOW())`
	_, err = conn(ctx, o.pool).Exec(ctx, stmt, record.ID, record.Name, record.Aggregate, record.Payload, headers, record.OccurredAt, stateNew)
	return mapError("insert outbox record", err)
}

func (o *Outbox) Flush(context.Context) error {
	o.notify.Notify()
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	const stmt = `
UPDATE outbox SET state = $1, claimed_by = $2, claimed_at = NOW()
WHERE id = (
	SELECT id FROM outbox
	WHERE (state IN ($3, $4) AND next_attempt_at <= NOW())
	   OR (state = $1 AND claimed_at < NOW() - make_interval(secs => $5))
	ORDER BY occurred_at
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
RETURNING id, name, aggregate, payload, headers, occurred_at, attempts`

	var (
		msg     infraoutbox.Message
		headers []byte
	)
	err := o.pool.QueryRow(ctx, stmt, stateClaimed, workerID, stateNew, stateFailed, claimLease.Seconds()).Scan(
		&msg.ID, &msg.Name, &msg.Aggregate, &msg.Payload, &headers, &msg.OccurredAt, &msg.Attempts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("claim outbox record", err)
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &msg.Headers); err != nil {
			return nil, err
		}
	}
	return &msg, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	_, err := o.pool.Exec(ctx, `UPDATE outbox SET state = $2, sent_at = NOW() WHERE id = $1`, id, stateSent)
	return mapError("mark outbox sent", err)
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	const stmt = `
UPDATE outbox SET state = $2, next_attempt_at = $3, last_error = $4, attempts = attempts + 1
WHERE id = $1`
	_, err := o.pool.Exec(ctx, stmt, id, stateFailed, next, errMsg)
	return mapError("mark outbox failed", err)
}

var (
	_ appoutbox.Outbox       = (*Outbox)(nil)
	_ infraoutbox.ClaimStore = (*Outbox)(nil)
)
