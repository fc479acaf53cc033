package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaininventory "roomledger/internal/domain/inventory"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

// Ledger stores room_calendars (default units, version) and sparse quota_entries.
// Every mutation locks the room's calendar row with FOR UPDATE, so concurrent
// reservations for one room queue behind each other until commit.
type Ledger struct {
	pool *pgxpool.Pool
}

func (l *Ledger) Create(ctx context.Context, calendar *domaininventory.QuotaCalendar) error {
	return withTx(ctx, l.pool, func(ctx context.Context) error {
		q := conn(ctx, l.pool)
		const stmt = `INSERT INTO room_calendars (room_id, default_unit_count, version) VALUES ($1, $2, 1)`
		if _, err := q.Exec(ctx, stmt, string(calendar.RoomID), calendar.DefaultUnitCount); err != nil {
			if isUniqueViolation(err) {
				return domainrooms.ErrRoomExists
			}
			if isForeignKeyViolation(err) {
				return apperr.NotFound("room", string(calendar.RoomID))
			}
			return mapError("create calendar", err)
		}
		calendar.Version = 1
		if len(calendar.PerDate) == 0 {
			return nil
		}
		days := make([]time.Time, 0, len(calendar.PerDate))
		units := make([]int32, 0, len(calendar.PerDate))
		for _, key := range calendar.Keys() {
			day, err := daterange.Parse(key)
			if err != nil {
				return err
			}
			days = append(days, day)
			units = append(units, int32(calendar.PerDate[key]))
		}
		return upsertEntries(ctx, q, calendar.RoomID, days, units)
	})
}

func (l *Ledger) Calendar(ctx context.Context, roomID domainrooms.RoomID, window daterange.DateRange) (*domaininventory.QuotaCalendar, error) {
	return l.load(ctx, conn(ctx, l.pool), roomID, window, false)
}

func (l *Ledger) Reserve(ctx context.Context, roomID domainrooms.RoomID, dr daterange.DateRange, units int) error {
	return l.mutate(ctx, roomID, dr, dr.Days(), func(cal *domaininventory.QuotaCalendar) error {
		return cal.Reserve(dr, units)
	})
}

func (l *Ledger) Release(ctx context.Context, roomID domainrooms.RoomID, dr daterange.DateRange, units int) error {
	return l.mutate(ctx, roomID, dr, dr.Days(), func(cal *domaininventory.QuotaCalendar) error {
		return cal.Release(dr, units)
	})
}

func (l *Ledger) SetQuota(ctx context.Context, roomID domainrooms.RoomID, days []time.Time, quota int) error {
	if quota < 0 {
		return apperr.Validation("quota", "must be non-negative")
	}
	if len(days) == 0 {
		return nil
	}
	window := spanOf(days)
	return l.mutate(ctx, roomID, window, days, func(cal *domaininventory.QuotaCalendar) error {
		return cal.SetQuota(days, quota)
	})
}

// mutate locks the calendar row, applies fn to the entries inside window and
// writes back the values of days.
func (l *Ledger) mutate(ctx context.Context, roomID domainrooms.RoomID, window daterange.DateRange, days []time.Time, fn func(*domaininventory.QuotaCalendar) error) error {
	return withTx(ctx, l.pool, func(ctx context.Context) error {
		q := conn(ctx, l.pool)
		cal, err := l.load(ctx, q, roomID, window, true)
		if err != nil {
			return err
		}
		if err := fn(cal); err != nil {
			return err
		}
		units := make([]int32, len(days))
		for i, d := range days {
			units[i] = int32(cal.Quota(d))
		}
		if err := upsertEntries(ctx, q, roomID, days, units); err != nil {
			return err
		}
		const bump = `UPDATE room_calendars SET version = version + 1 WHERE room_id = $1`
		if _, err := q.Exec(ctx, bump, string(roomID)); err != nil {
			return mapError("bump calendar version", err)
		}
		return nil
	})
}

func (l *Ledger) load(ctx context.Context, q querier, roomID domainrooms.RoomID, window daterange.DateRange, forUpdate bool) (*domaininventory.QuotaCalendar, error) {
	query := `SELECT default_unit_count, version FROM room_calendars WHERE room_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	cal := &domaininventory.QuotaCalendar{RoomID: roomID, PerDate: make(map[string]int)}
	if err := q.QueryRow(ctx, query, string(roomID)).Scan(&cal.DefaultUnitCount, &cal.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("room calendar", string(roomID))
		}
		return nil, mapError("load calendar", err)
	}

	const entries = `
SELECT day, units FROM quota_entries
WHERE room_id = $1 AND day >= $2 AND day < $3`
	rows, err := q.Query(ctx, entries, string(roomID), window.CheckIn, window.CheckOut)
	if err != nil {
		return nil, mapError("load quota entries", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			day   time.Time
			units int
		)
		if err := rows.Scan(&day, &units); err != nil {
			return nil, err
		}
		cal.PerDate[daterange.Key(day)] = units
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("load quota entries", err)
	}
	return cal, nil
}

func upsertEntries(ctx context.Context, q querier, roomID domainrooms.RoomID, days []time.Time, units []int32) error {
	const stmt = `
INSERT INTO quota_entries (room_id, day, units)
SELECT $1, e.day, e.units FROM unnest($2::date[], $3::int[]) AS e(day, units)
ON CONFLICT (room_id, day) DO UPDATE SET units = EXCLUDED.units`
	if _, err := q.Exec(ctx, stmt, string(roomID), days, units); err != nil {
		return mapError("upsert quota entries", err)
	}
	return nil
}

// spanOf returns the smallest range covering days.
func spanOf(days []time.Time) daterange.DateRange {
	first, last := daterange.Day(days[0]), daterange.Day(days[0])
	for _, d := range days[1:] {
		d = daterange.Day(d)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return daterange.DateRange{CheckIn: first, CheckOut: last.AddDate(0, 0, 1)}
}

var _ domaininventory.Ledger = (*Ledger)(nil)
