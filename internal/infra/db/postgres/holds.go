package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainreservation "roomledger/internal/domain/reservation"
	"roomledger/internal/domain/shared/apperr"
)

type HoldRepository struct {
	pool *pgxpool.Pool
}

func (r *HoldRepository) ByID(ctx context.Context, id domainreservation.HoldID) (*domainreservation.Hold, error) {
	const query = `
SELECT id, room_id, check_in, check_out, units, status, quoted_amount::text, quoted_currency,
       guest_ref, created_at, updated_at, version
FROM holds
WHERE id = $1`

	var (
		h      domainreservation.Hold
		status string
		amount string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, query, string(id)).Scan(
		&h.ID, &h.RoomID, &h.Range.CheckIn, &h.Range.CheckOut, &h.Units, &status, &amount, &h.QuotedTotal.Currency,
		&h.GuestRef, &h.CreatedAt, &h.UpdatedAt, &h.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("hold", string(id))
		}
		return nil, mapError("get hold", err)
	}
	h.Status = domainreservation.Status(status)
	if h.QuotedTotal.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HoldRepository) Save(ctx context.Context, h *domainreservation.Hold) error {
	q := conn(ctx, r.pool)
	if h.Version == 0 {
		const stmt = `
INSERT INTO holds (id, room_id, check_in, check_out, units, status, quoted_amount, quoted_currency,
                   guest_ref, created_at, updated_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8, $9, $10, $11, 1)`
		_, err := q.Exec(ctx, stmt,
			string(h.ID), string(h.RoomID), h.Range.CheckIn, h.Range.CheckOut, h.Units, string(h.Status),
			h.QuotedTotal.Amount.String(), h.QuotedTotal.Currency, h.GuestRef, h.CreatedAt, h.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("save hold", err)
			}
			if isForeignKeyViolation(err) {
				return apperr.NotFound("room", string(h.RoomID))
			}
			return mapError("insert hold", err)
		}
		h.Version = 1
		return nil
	}

	const stmt = `
UPDATE holds
SET status = $2, updated_at = $3, version = version + 1
WHERE id = $1 AND version = $4`
	tag, err := q.Exec(ctx, stmt, string(h.ID), string(h.Status), h.UpdatedAt, h.Version)
	if err != nil {
		return mapError("update hold", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("save hold", nil)
	}
	h.Version++
	return nil
}

var _ domainreservation.Repository = (*HoldRepository)(nil)
