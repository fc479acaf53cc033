package dto

import (
	"time"

	domainpricing "roomledger/internal/domain/pricing"
	domainrooms "roomledger/internal/domain/rooms"
)

type Room struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	DefaultUnitCount int       `json:"default_unit_count"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
}

func MapRoom(r *domainrooms.Room) Room {
	if r == nil {
		return Room{}
	}
	return Room{
		ID:               string(r.ID),
		Name:             r.Name,
		DefaultUnitCount: r.DefaultUnitCount,
		Currency:         r.Currency,
		CreatedAt:        r.CreatedAt,
	}
}

type PricingProfile struct {
	RoomID        string            `json:"room_id"`
	Currency      string            `json:"currency"`
	BaseNightly   string            `json:"base_nightly_price"`
	WeekdayPrices map[string]string `json:"weekday_prices"`
	OverrideCount int               `json:"date_override_count"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func MapProfile(p *domainpricing.RoomPricingProfile) PricingProfile {
	if p == nil {
		return PricingProfile{}
	}
	out := PricingProfile{
		RoomID:        string(p.RoomID),
		Currency:      p.Currency,
		BaseNightly:   p.BaseNightly.StringFixed(2),
		WeekdayPrices: make(map[string]string),
		OverrideCount: len(p.DateOverrides),
		UpdatedAt:     p.UpdatedAt,
	}
	for i, v := range p.Weekday {
		if v != nil {
			out.WeekdayPrices[weekdayName(i)] = v.StringFixed(2)
		}
	}
	return out
}

var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func weekdayName(i int) string { return weekdayNames[i] }

// ParseWeekday accepts lower-case English day names or the digits 0 (Sunday) to 6.
func ParseWeekday(raw string) (int, bool) {
	for i, name := range weekdayNames {
		if raw == name {
			return i, true
		}
	}
	if len(raw) == 1 && raw[0] >= '0' && raw[0] <= '6' {
		return int(raw[0] - '0'), true
	}
	return 0, false
}
