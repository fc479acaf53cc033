package dto

import (
	domainpricing "roomledger/internal/domain/pricing"
	"roomledger/internal/domain/shared/daterange"
)

type NightlyPrice struct {
	RoomID string   `json:"room_id"`
	Date   string   `json:"date"`
	Price  MoneyDTO `json:"price"`
	Source string   `json:"source"`
}

type QuoteNight struct {
	Date   string   `json:"date"`
	Price  MoneyDTO `json:"price"`
	Source string   `json:"source"`
}

type Quote struct {
	RoomID   string       `json:"room_id"`
	CheckIn  string       `json:"check_in"`
	CheckOut string       `json:"check_out"`
	Nights   []QuoteNight `json:"nights"`
	Total    MoneyDTO     `json:"total"`
}

func MapNightlyPrice(roomID string, rate domainpricing.NightlyRate) NightlyPrice {
	return NightlyPrice{
		RoomID: roomID,
		Date:   daterange.Key(rate.Night),
		Price:  MapMoney(rate.Price),
		Source: string(rate.Source),
	}
}

func MapQuote(q domainpricing.Quote) Quote {
	out := Quote{
		RoomID:   string(q.RoomID),
		CheckIn:  daterange.Key(q.Range.CheckIn),
		CheckOut: daterange.Key(q.Range.CheckOut),
		Nights:   make([]QuoteNight, 0, len(q.Nights)),
		Total:    MapMoney(q.Total),
	}
	for _, n := range q.Nights {
		out.Nights = append(out.Nights, QuoteNight{Date: daterange.Key(n.Night), Price: MapMoney(n.Price), Source: string(n.Source)})
	}
	return out
}
