package pricing

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/events"
	"roomledger/internal/domain/shared/money"
)

type PriceSource string

const (
	SourceDateOverride PriceSource = "date_override"
	SourceWeekday      PriceSource = "weekday"
	SourceBase         PriceSource = "base"
)

// RoomPricingProfile layers nightly prices for one room. Date overrides are kept
// indefinitely once set; nothing prunes past dates.
type RoomPricingProfile struct {
	RoomID        rooms.RoomID
	Currency      string
	BaseNightly   decimal.Decimal
	Weekday       [7]*decimal.Decimal
	DateOverrides map[string]decimal.Decimal
	UpdatedAt     time.Time
	Version       int64
	events.EventRecorder
}

// ProfileReader is the read side used by the resolver and calculator.
type ProfileReader interface {
	Profile(ctx context.Context, roomID rooms.RoomID) (*RoomPricingProfile, error)
}

// ProfileStore persists one profile record per room plus sparse (room, date) override rows.
// SaveProfile writes the profile record only (currency, base, weekday layer) and
// never touches override rows; those change through UpsertDateOverrides.
type ProfileStore interface {
	ProfileReader
	SaveProfile(ctx context.Context, profile *RoomPricingProfile) error
	UpsertDateOverrides(ctx context.Context, roomID rooms.RoomID, days []time.Time, price decimal.Decimal) error
}

func NewProfile(roomID rooms.RoomID, currency string, base decimal.Decimal, now time.Time) (*RoomPricingProfile, error) {
	code, err := money.NormalizeCurrency(currency)
	if err != nil {
		return nil, apperr.Validation("currency", err.Error())
	}
	if err := ValidatePrice("base_nightly_price", base); err != nil {
		return nil, err
	}
	return &RoomPricingProfile{
		RoomID:        roomID,
		Currency:      code,
		BaseNightly:   base,
		DateOverrides: make(map[string]decimal.Decimal),
		UpdatedAt:     now.UTC(),
	}, nil
}

// PriceScale is the number of decimal places a nightly price may carry.
const PriceScale = 2

// MaxPrice is the first nightly price that is too large to store.
var MaxPrice = decimal.New(1, 12)

// ValidatePrice accepts non-negative prices in whole cents below MaxPrice.
func ValidatePrice(field string, price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return apperr.Validation(field, "price must be non-negative")
	case !price.Equal(price.Truncate(PriceScale)):
		return apperr.Validation(field, "price must have at most 2 decimal places")
	case price.GreaterThanOrEqual(MaxPrice):
		return apperr.Validation(field, "price must be below 1000000000000")
	}
	return nil
}

func (p *RoomPricingProfile) SetBase(price decimal.Decimal, now time.Time) error {
	if err := ValidatePrice("base_nightly_price", price); err != nil {
		return err
	}
	p.BaseNightly = price
	p.touch(now)
	return nil
}

// SetWeekdayPrice sets or, with a nil price, clears the override for a weekday.
func (p *RoomPricingProfile) SetWeekdayPrice(day time.Weekday, price *decimal.Decimal, now time.Time) error {
	if day < time.Sunday || day > time.Saturday {
		return apperr.Validation("weekday", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	if price == nil {
		p.Weekday[day] = nil
		p.touch(now)
		return nil
	}
	if err := ValidatePrice("weekday_prices", *price); err != nil {
		return err
	}
	v := *price
	p.Weekday[day] = &v
	p.touch(now)
	return nil
}

func (p *RoomPricingProfile) SetDateOverride(day time.Time, price decimal.Decimal) error {
	if err := ValidatePrice("price", price); err != nil {
		return err
	}
	if p.DateOverrides == nil {
		p.DateOverrides = make(map[string]decimal.Decimal)
	}
	p.DateOverrides[daterange.Key(day)] = price
	return nil
}

func (p *RoomPricingProfile) Override(day time.Time) (decimal.Decimal, bool) {
	v, ok := p.DateOverrides[daterange.Key(day)]
	return v, ok
}

// Resolve applies date override, then weekday price, then base price. An explicit
// date override is returned as-is and never adjusted further.
func (p *RoomPricingProfile) Resolve(day time.Time) NightlyRate {
	day = daterange.Day(day)
	if v, ok := p.Override(day); ok {
		return NightlyRate{Night: day, Price: money.Money{Amount: v, Currency: p.Currency}, Source: SourceDateOverride}
	}
	if v := p.Weekday[day.Weekday()]; v != nil {
		return NightlyRate{Night: day, Price: money.Money{Amount: *v, Currency: p.Currency}, Source: SourceWeekday}
	}
	return NightlyRate{Night: day, Price: money.Money{Amount: p.BaseNightly, Currency: p.Currency}, Source: SourceBase}
}

// OverrideKeys lists override dates in ascending order.
func (p *RoomPricingProfile) OverrideKeys() []string {
	keys := make([]string, 0, len(p.DateOverrides))
	for k := range p.DateOverrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy safe to hand out of a store.
func (p *RoomPricingProfile) Clone() *RoomPricingProfile {
	c := &RoomPricingProfile{
		RoomID:        p.RoomID,
		Currency:      p.Currency,
		BaseNightly:   p.BaseNightly,
		DateOverrides: make(map[string]decimal.Decimal, len(p.DateOverrides)),
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	}
	for i, v := range p.Weekday {
		if v != nil {
			w := *v
			c.Weekday[i] = &w
		}
	}
	for k, v := range p.DateOverrides {
		c.DateOverrides[k] = v
	}
	return c
}

func (p *RoomPricingProfile) touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}

// MarkUpdated records a profile change event for the outbox.
func (p *RoomPricingProfile) MarkUpdated(now time.Time) {
	p.Record(ProfileUpdated{RoomID: p.RoomID, Base: p.BaseNightly.String(), Currency: p.Currency, At: now.UTC()})
}

type NightlyRate struct {
	Night  time.Time
	Price  money.Money
	Source PriceSource
}

type ProfileUpdated struct {
	RoomID   rooms.RoomID
	Base     string
	Currency string
	At       time.Time
}

func (e ProfileUpdated) EventName() string     { return "pricing.profile_updated" }
func (e ProfileUpdated) AggregateID() string   { return string(e.RoomID) }
func (e ProfileUpdated) OccurredAt() time.Time { return e.At }
