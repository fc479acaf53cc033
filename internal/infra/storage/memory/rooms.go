package memory

import (
	"context"
	"sync"

	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/events"
)

// RoomRepository keeps rooms in memory, handing out copies.
type RoomRepository struct {
	mu    sync.RWMutex
	items map[domainrooms.RoomID]domainrooms.Room
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{items: make(map[domainrooms.RoomID]domainrooms.Room)}
}

func (r *RoomRepository) ByID(ctx context.Context, id domainrooms.RoomID) (*domainrooms.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("room", string(id))
	}
	return &room, nil
}

// Save inserts when room.Version is 0 and otherwise requires the stored version to match.
func (r *RoomRepository) Save(ctx context.Context, room *domainrooms.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, exists := r.items[room.ID]
	switch {
	case room.Version == 0 && exists:
		return domainrooms.ErrRoomExists
	case room.Version != 0 && (!exists || prev.Version != room.Version):
		return apperr.Conflict("save room", nil)
	}
	room.Version++
	stored := *room
	stored.EventRecorder = events.EventRecorder{}
	r.items[room.ID] = stored
	enlist(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if exists {
			r.items[room.ID] = prev
		} else {
			delete(r.items, room.ID)
		}
	})
	return nil
}

var _ domainrooms.Repository = (*RoomRepository)(nil)
