package pricing

import (
	"context"
	"time"

	"roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/money"
)

// Resolver answers the nightly price for one (room, date).
type Resolver struct {
	Profiles ProfileReader
}

func (r Resolver) Resolve(ctx context.Context, roomID rooms.RoomID, day time.Time) (NightlyRate, error) {
	if day.IsZero() {
		return NightlyRate{}, apperr.Validation("date", "date is required")
	}
	profile, err := r.Profiles.Profile(ctx, roomID)
	if err != nil {
		return NightlyRate{}, err
	}
	return profile.Resolve(day), nil
}

// Quote is a stay total with one line per night.
type Quote struct {
	RoomID rooms.RoomID
	Range  daterange.DateRange
	Nights []NightlyRate
	Total  money.Money
}

// StayCalculator sums resolved nightly prices over [CheckIn, CheckOut).
type StayCalculator struct {
	Profiles ProfileReader
}

func (c StayCalculator) Quote(ctx context.Context, roomID rooms.RoomID, dr daterange.DateRange) (Quote, error) {
	if err := dr.Validate(); err != nil {
		return Quote{}, apperr.Validation("check_out", "check-out must be after check-in")
	}
	profile, err := c.Profiles.Profile(ctx, roomID)
	if err != nil {
		return Quote{}, err
	}
	return QuoteFromProfile(profile, dr)
}

// QuoteFromProfile computes the stay total against an already loaded profile.
func QuoteFromProfile(profile *RoomPricingProfile, dr daterange.DateRange) (Quote, error) {
	days := dr.Days()
	q := Quote{
		RoomID: profile.RoomID,
		Range:  dr,
		Nights: make([]NightlyRate, 0, len(days)),
		Total:  money.Zero(profile.Currency),
	}
	for _, d := range days {
		rate := profile.Resolve(d)
		total, err := q.Total.Add(rate.Price)
		if err != nil {
			return Quote{}, err
		}
		q.Total = total
		q.Nights = append(q.Nights, rate)
	}
	return q, nil
}
