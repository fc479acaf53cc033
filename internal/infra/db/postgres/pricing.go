package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainpricing "roomledger/internal/domain/pricing"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

// ProfileStore keeps one pricing_profiles row per room and sparse pricing_overrides rows.
// Numeric columns travel as text so decimals round-trip exactly.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func (s *ProfileStore) Profile(ctx context.Context, roomID domainrooms.RoomID) (*domainpricing.RoomPricingProfile, error) {
	const profileQuery = `
SELECT currency, base_nightly::text, weekday_prices::text[], updated_at, version
FROM pricing_profiles
WHERE room_id = $1`

	q := conn(ctx, s.pool)
	var (
		base    string
		weekday []*string
	)
	p := &domainpricing.RoomPricingProfile{RoomID: roomID, DateOverrides: make(map[string]decimal.Decimal)}
	err := q.QueryRow(ctx, profileQuery, string(roomID)).Scan(&p.Currency, &base, &weekday, &p.UpdatedAt, &p.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("pricing profile", string(roomID))
		}
		return nil, mapError("get pricing profile", err)
	}
	if p.BaseNightly, err = decimal.NewFromString(base); err != nil {
		return nil, err
	}
	for i, raw := range weekday {
		if i >= len(p.Weekday) || raw == nil {
			continue
		}
		v, err := decimal.NewFromString(*raw)
		if err != nil {
			return nil, err
		}
		p.Weekday[i] = &v
	}

	const overridesQuery = `SELECT day, price::text FROM pricing_overrides WHERE room_id = $1`
	rows, err := q.Query(ctx, overridesQuery, string(roomID))
	if err != nil {
		return nil, mapError("list pricing overrides", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			day   time.Time
			price string
		)
		if err := rows.Scan(&day, &price); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		p.DateOverrides[daterange.Key(day)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list pricing overrides", err)
	}
	return p, nil
}

func (s *ProfileStore) SaveProfile(ctx context.Context, profile *domainpricing.RoomPricingProfile) error {
	weekday := make([]*string, len(profile.Weekday))
	for i, v := range profile.Weekday {
		if v != nil {
			str := v.String()
			weekday[i] = &str
		}
	}
	q := conn(ctx, s.pool)
	if profile.Version == 0 {
		const stmt = `
INSERT INTO pricing_profiles (room_id, currency, base_nightly, weekday_prices, updated_at, version)
VALUES ($1, $2, $3::text::numeric, $4::text[]::numeric[], $5, 1)`
		_, err := q.Exec(ctx, stmt, string(profile.RoomID), profile.Currency, profile.BaseNightly.String(), weekday, profile.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("save pricing profile", err)
			}
			if isForeignKeyViolation(err) {
				return apperr.NotFound("room", string(profile.RoomID))
			}
			return mapError("insert pricing profile", err)
		}
		profile.Version = 1
		return nil
	}

	const stmt = `
UPDATE pricing_profiles
SET currency = $2, base_nightly = $3::text::numeric, weekday_prices = $4::text[]::numeric[], updated_at = $5, version = version + 1
WHERE room_id = $1 AND version = $6`
	tag, err := q.Exec(ctx, stmt, string(profile.RoomID), profile.Currency, profile.BaseNightly.String(), weekday, profile.UpdatedAt, profile.Version)
	if err != nil {
		return mapError("update pricing profile", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("save pricing profile", nil)
	}
	profile.Version++
	return nil
}

func (s *ProfileStore) UpsertDateOverrides(ctx context.Context, roomID domainrooms.RoomID, days []time.Time, price decimal.Decimal) error {
	if err := domainpricing.ValidatePrice("price", price); err != nil {
		return err
	}
	if len(days) == 0 {
		return nil
	}
	const stmt = `
INSERT INTO pricing_overrides (room_id, day, price)
SELECT $1, d, $3::text::numeric FROM unnest($2::date[]) AS d
ON CONFLICT (room_id, day) DO UPDATE SET price = EXCLUDED.price`
	_, err := conn(ctx, s.pool).Exec(ctx, stmt, string(roomID), days, price.String())
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.NotFound("pricing profile", string(roomID))
		}
		return mapError("upsert pricing overrides", err)
	}
	return nil
}

var _ domainpricing.ProfileStore = (*ProfileStore)(nil)
