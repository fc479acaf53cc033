package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Inbox records consumed event ids per consumer; the primary key does the de-duplication.
type Inbox struct {
	pool     *pgxpool.Pool
	consumer string
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	const stmt = `
INSERT INTO inbox (event_id, consumer, received_at) VALUES ($1, $2, NOW())
ON CONFLICT (event_id, consumer) DO NOTHING`
	tag, err := i.pool.Exec(ctx, stmt, eventID, i.consumer)
	if err != nil {
		return false, mapError("record inbox event", err)
	}
	return tag.RowsAffected() == 0, nil
}

func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	_, err := i.pool.Exec(ctx, `DELETE FROM inbox WHERE event_id = $1 AND consumer = $2`, eventID, i.consumer)
	return mapError("forget inbox event", err)
}
