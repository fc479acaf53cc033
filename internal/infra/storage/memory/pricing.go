package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainpricing "roomledger/internal/domain/pricing"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

type profileRecord struct {
	currency  string
	base      decimal.Decimal
	weekday   [7]*decimal.Decimal
	updatedAt time.Time
	version   int64
}

// ProfileStore keeps one profile record per room and sparse override rows keyed
// by ISO date, mirroring the relational layout.
type ProfileStore struct {
	mu        sync.RWMutex
	profiles  map[domainrooms.RoomID]profileRecord
	overrides map[domainrooms.RoomID]map[string]decimal.Decimal
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles:  make(map[domainrooms.RoomID]profileRecord),
		overrides: make(map[domainrooms.RoomID]map[string]decimal.Decimal),
	}
}

func (s *ProfileStore) Profile(ctx context.Context, roomID domainrooms.RoomID) (*domainpricing.RoomPricingProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.profiles[roomID]
	if !ok {
		return nil, apperr.NotFound("pricing profile", string(roomID))
	}
	p := &domainpricing.RoomPricingProfile{
		RoomID:        roomID,
		Currency:      rec.currency,
		BaseNightly:   rec.base,
		DateOverrides: make(map[string]decimal.Decimal, len(s.overrides[roomID])),
		UpdatedAt:     rec.updatedAt,
		Version:       rec.version,
	}
	for i, v := range rec.weekday {
		if v != nil {
			w := *v
			p.Weekday[i] = &w
		}
	}
	for k, v := range s.overrides[roomID] {
		p.DateOverrides[k] = v
	}
	return p, nil
}

func (s *ProfileStore) SaveProfile(ctx context.Context, profile *domainpricing.RoomPricingProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, exists := s.profiles[profile.RoomID]
	if exists != (profile.Version != 0) || (exists && prev.version != profile.Version) {
		return apperr.Conflict("save pricing profile", nil)
	}
	profile.Version++
	rec := profileRecord{
		currency:  profile.Currency,
		base:      profile.BaseNightly,
		updatedAt: profile.UpdatedAt,
		version:   profile.Version,
	}
	for i, v := range profile.Weekday {
		if v != nil {
			w := *v
			rec.weekday[i] = &w
		}
	}
	s.profiles[profile.RoomID] = rec
	enlist(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if exists {
			s.profiles[profile.RoomID] = prev
		} else {
			delete(s.profiles, profile.RoomID)
		}
	})
	return nil
}

func (s *ProfileStore) UpsertDateOverrides(ctx context.Context, roomID domainrooms.RoomID, days []time.Time, price decimal.Decimal) error {
	if err := domainpricing.ValidatePrice("price", price); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[roomID]; !ok {
		return apperr.NotFound("pricing profile", string(roomID))
	}
	rows := s.overrides[roomID]
	if rows == nil {
		rows = make(map[string]decimal.Decimal)
		s.overrides[roomID] = rows
	}
	type prior struct {
		value decimal.Decimal
		had   bool
	}
	before := make(map[string]prior, len(days))
	for _, d := range days {
		key := daterange.Key(d)
		if _, seen := before[key]; !seen {
			v, had := rows[key]
			before[key] = prior{value: v, had: had}
		}
		rows[key] = price
	}
	enlist(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rows := s.overrides[roomID]
		for key, p := range before {
			if p.had {
				rows[key] = p.value
			} else {
				delete(rows, key)
			}
		}
	})
	return nil
}

var _ domainpricing.ProfileStore = (*ProfileStore)(nil)
