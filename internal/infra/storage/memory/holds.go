package memory

import (
	"context"
	"sync"

	domainreservation "roomledger/internal/domain/reservation"
	"roomledger/internal/domain/shared/apperr"
)

type HoldRepository struct {
	mu    sync.RWMutex
	items map[domainreservation.HoldID]*domainreservation.Hold
}

func NewHoldRepository() *HoldRepository {
	return &HoldRepository{items: make(map[domainreservation.HoldID]*domainreservation.Hold)}
}

func (r *HoldRepository) ByID(ctx context.Context, id domainreservation.HoldID) (*domainreservation.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("hold", string(id))
	}
	return h.Clone(), nil
}

// Save applies optimistic versioning: Version 0 inserts, otherwise the stored
// version must match.
func (r *HoldRepository) Save(ctx context.Context, hold *domainreservation.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, exists := r.items[hold.ID]
	switch {
	case hold.Version == 0 && exists:
		return apperr.Conflict("save hold", nil)
	case hold.Version != 0 && (!exists || prev.Version != hold.Version):
		return apperr.Conflict("save hold", nil)
	}
	hold.Version++
	r.items[hold.ID] = hold.Clone()
	enlist(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if exists {
			r.items[hold.ID] = prev
		} else {
			delete(r.items, hold.ID)
		}
	})
	return nil
}

var _ domainreservation.Repository = (*HoldRepository)(nil)
