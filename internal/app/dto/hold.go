package dto

import (
	"time"

	domainreservation "roomledger/internal/domain/reservation"
	"roomledger/internal/domain/shared/daterange"
)

type Hold struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	Nights      int       `json:"nights"`
	Units       int       `json:"units"`
	Status      string    `json:"status"`
	QuotedTotal MoneyDTO  `json:"quoted_total"`
	GuestRef    string    `json:"guest_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func MapHold(h *domainreservation.Hold) Hold {
	if h == nil {
		return Hold{}
	}
	return Hold{
		ID:          string(h.ID),
		RoomID:      string(h.RoomID),
		CheckIn:     daterange.Key(h.Range.CheckIn),
		CheckOut:    daterange.Key(h.Range.CheckOut),
		Nights:      h.Range.Nights(),
		Units:       h.Units,
		Status:      string(h.Status),
		QuotedTotal: MapMoney(h.QuotedTotal),
		GuestRef:    h.GuestRef,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}
