package rooms

import (
	"context"

	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/queries"
	"roomledger/internal/app/uow"
	domainrooms "roomledger/internal/domain/rooms"
)

const GetRoomKey = "rooms.get"

type GetRoomQuery struct {
	RoomID string `json:"room_id" validate:"required"`
}

func (q GetRoomQuery) Key() string { return GetRoomKey }

type GetRoomHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetRoomHandler) Handle(ctx context.Context, q GetRoomQuery) (dto.Room, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Room{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	room, err := unit.Rooms().ByID(execCtx, domainrooms.RoomID(q.RoomID))
	if err != nil {
		return dto.Room{}, err
	}
	return dto.MapRoom(room), nil
}

var _ queries.Handler[GetRoomQuery, dto.Room] = (*GetRoomHandler)(nil)
