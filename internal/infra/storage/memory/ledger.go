package memory

import (
	"context"
	"sync"
	"time"

	domaininventory "roomledger/internal/domain/inventory"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

type roomQuota struct {
	mu  sync.Mutex
	cal *domaininventory.QuotaCalendar
}

// Ledger is the in-memory quota ledger. Each room has its own mutex, so writers on
// one room never wait for another room.
type Ledger struct {
	mu    sync.RWMutex
	rooms map[domainrooms.RoomID]*roomQuota
}

func NewLedger() *Ledger {
	return &Ledger{rooms: make(map[domainrooms.RoomID]*roomQuota)}
}

func (l *Ledger) room(roomID domainrooms.RoomID) (*roomQuota, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rq, ok := l.rooms[roomID]
	if !ok {
		return nil, apperr.NotFound("quota calendar", string(roomID))
	}
	return rq, nil
}

func (l *Ledger) Create(ctx context.Context, calendar *domaininventory.QuotaCalendar) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.rooms[calendar.RoomID]; exists {
		return domainrooms.ErrRoomExists
	}
	l.rooms[calendar.RoomID] = &roomQuota{cal: calendar.Clone()}
	enlist(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.rooms, calendar.RoomID)
	})
	return nil
}

// Calendar returns a copy holding only the entries inside window.
func (l *Ledger) Calendar(ctx context.Context, roomID domainrooms.RoomID, window daterange.DateRange) (*domaininventory.QuotaCalendar, error) {
	rq, err := l.room(roomID)
	if err != nil {
		return nil, err
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return &domaininventory.QuotaCalendar{
		RoomID:           roomID,
		DefaultUnitCount: rq.cal.DefaultUnitCount,
		PerDate:          rq.cal.Entries(window),
		Version:          rq.cal.Version,
	}, nil
}

func (l *Ledger) Reserve(ctx context.Context, roomID domainrooms.RoomID, dr daterange.DateRange, units int) error {
	return l.mutate(ctx, roomID, dr.Days(), func(cal *domaininventory.QuotaCalendar) error {
		return cal.Reserve(dr, units)
	})
}

func (l *Ledger) Release(ctx context.Context, roomID domainrooms.RoomID, dr daterange.DateRange, units int) error {
	return l.mutate(ctx, roomID, dr.Days(), func(cal *domaininventory.QuotaCalendar) error {
		return cal.Release(dr, units)
	})
}

func (l *Ledger) SetQuota(ctx context.Context, roomID domainrooms.RoomID, days []time.Time, quota int) error {
	return l.mutate(ctx, roomID, days, func(cal *domaininventory.QuotaCalendar) error {
		return cal.SetQuota(days, quota)
	})
}

// mutate applies fn under the room lock and enlists an undo restoring days.
func (l *Ledger) mutate(ctx context.Context, roomID domainrooms.RoomID, days []time.Time, fn func(*domaininventory.QuotaCalendar) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rq, err := l.room(roomID)
	if err != nil {
		return err
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()
	snapshot := make(map[string]*int, len(days))
	for _, d := range days {
		key := daterange.Key(d)
		if v, ok := rq.cal.PerDate[key]; ok {
			snapshot[key] = &v
		} else {
			snapshot[key] = nil
		}
	}
	if err := fn(rq.cal); err != nil {
		return err
	}
	rq.cal.Version++
	enlist(ctx, func() {
		rq.mu.Lock()
		defer rq.mu.Unlock()
		for key, v := range snapshot {
			if v == nil {
				delete(rq.cal.PerDate, key)
			} else {
				rq.cal.PerDate[key] = *v
			}
		}
		rq.cal.Version++
	})
	return nil
}

var _ domaininventory.Ledger = (*Ledger)(nil)
