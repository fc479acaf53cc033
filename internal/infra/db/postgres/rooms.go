package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
)

type RoomRepository struct {
	pool *pgxpool.Pool
}

func (r *RoomRepository) ByID(ctx context.Context, id domainrooms.RoomID) (*domainrooms.Room, error) {
	const query = `
SELECT id, name, default_unit_count, currency, created_at, updated_at, version
FROM rooms
WHERE id = $1`

	var room domainrooms.Room
	err := conn(ctx, r.pool).QueryRow(ctx, query, string(id)).Scan(
		&room.ID, &room.Name, &room.DefaultUnitCount, &room.Currency, &room.CreatedAt, &room.UpdatedAt, &room.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("room", string(id))
		}
		return nil, mapError("get room", err)
	}
	return &room, nil
}

func (r *RoomRepository) Save(ctx context.Context, room *domainrooms.Room) error {
	q := conn(ctx, r.pool)
	if room.Version == 0 {
		const stmt = `
INSERT INTO rooms (id, name, default_unit_count, currency, created_at, updated_at, version)
VALUES ($1, $2, $3, $4, $5, $6, 1)`
		_, err := q.Exec(ctx, stmt, string(room.ID), room.Name, room.DefaultUnitCount, room.Currency, room.CreatedAt, room.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domainrooms.ErrRoomExists
			}
			return mapError("insert room", err)
		}
		room.Version = 1
		return nil
	}

	const stmt = `
UPDATE rooms
SET name = $2, default_unit_count = $3, currency = $4, updated_at = $5, version = version + 1
WHERE id = $1 AND version = $6`
	tag, err := q.Exec(ctx, stmt, string(room.ID), room.Name, room.DefaultUnitCount, room.Currency, room.UpdatedAt, room.Version)
	if err != nil {
		return mapError("update room", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("save room", nil)
	}
	room.Version++
	return nil
}

var _ domainrooms.Repository = (*RoomRepository)(nil)
