package inventory

import (
	"context"
	"sort"
	"time"

	"roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

// QuotaCalendar tracks remaining bookable units per night for one room.
// A missing entry means DefaultUnitCount; an entry of 0 is an explicit stop-sell.
type QuotaCalendar struct {
	RoomID           rooms.RoomID
	DefaultUnitCount int
	PerDate          map[string]int
	Version          int64
}

// Ledger is the persistence-backed quota ledger. Reserve and SetQuota on the same
// room are serialized by every implementation; Reserve is all-or-nothing.
type Ledger interface {
	// Calendar loads the room's default and the sparse entries that fall inside window.
	Calendar(ctx context.Context, roomID rooms.RoomID, window daterange.DateRange) (*QuotaCalendar, error)
	Create(ctx context.Context, calendar *QuotaCalendar) error
	Reserve(ctx context.Context, roomID rooms.RoomID, dr daterange.DateRange, units int) error
	Release(ctx context.Context, roomID rooms.RoomID, dr daterange.DateRange, units int) error
	SetQuota(ctx context.Context, roomID rooms.RoomID, days []time.Time, quota int) error
}

func NewCalendar(roomID rooms.RoomID, defaultUnits int) (*QuotaCalendar, error) {
	if defaultUnits < 1 {
		return nil, apperr.Validation("default_unit_count", "must be at least 1")
	}
	return &QuotaCalendar{RoomID: roomID, DefaultUnitCount: defaultUnits, PerDate: make(map[string]int)}, nil
}

// Quota returns the units left on day.
func (c *QuotaCalendar) Quota(day time.Time) int {
	if v, ok := c.PerDate[daterange.Key(day)]; ok {
		return v
	}
	return c.DefaultUnitCount
}

// Explicit reports whether day has its own entry.
func (c *QuotaCalendar) Explicit(day time.Time) bool {
	_, ok := c.PerDate[daterange.Key(day)]
	return ok
}

// Shortfall returns the first night of dr that cannot supply units, or nil.
func (c *QuotaCalendar) Shortfall(dr daterange.DateRange, units int) *apperr.InsufficientAvailabilityError {
	for _, d := range dr.Days() {
		if left := c.Quota(d); left < units {
			return &apperr.InsufficientAvailabilityError{
				RoomID:    string(c.RoomID),
				Night:     d,
				Requested: units,
				Available: left,
			}
		}
	}
	return nil
}

func (c *QuotaCalendar) Available(dr daterange.DateRange, units int) bool {
	return c.Shortfall(dr, units) == nil
}

// Reserve decrements every night of dr by units, or changes nothing.
func (c *QuotaCalendar) Reserve(dr daterange.DateRange, units int) error {
	if err := checkRequest(dr, units); err != nil {
		return err
	}
	if short := c.Shortfall(dr, units); short != nil {
		return short
	}
	c.ensureMap()
	for _, d := range dr.Days() {
		c.PerDate[daterange.Key(d)] = c.Quota(d) - units
	}
	return nil
}

// Release adds units back to every night of dr.
func (c *QuotaCalendar) Release(dr daterange.DateRange, units int) error {
	if err := checkRequest(dr, units); err != nil {
		return err
	}
	c.ensureMap()
	for _, d := range dr.Days() {
		c.PerDate[daterange.Key(d)] = c.Quota(d) + units
	}
	return nil
}

// SetQuota upserts an absolute value for each day; 0 stops sales.
func (c *QuotaCalendar) SetQuota(days []time.Time, quota int) error {
	if quota < 0 {
		return apperr.Validation("quota", "must be non-negative")
	}
	c.ensureMap()
	for _, d := range days {
		c.PerDate[daterange.Key(d)] = quota
	}
	return nil
}

// Entries returns the explicit entries within dr keyed by ISO date.
func (c *QuotaCalendar) Entries(dr daterange.DateRange) map[string]int {
	out := make(map[string]int)
	for _, d := range dr.Days() {
		k := daterange.Key(d)
		if v, ok := c.PerDate[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (c *QuotaCalendar) Keys() []string {
	keys := make([]string, 0, len(c.PerDate))
	for k := range c.PerDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *QuotaCalendar) Clone() *QuotaCalendar {
	out := &QuotaCalendar{
		RoomID:           c.RoomID,
		DefaultUnitCount: c.DefaultUnitCount,
		PerDate:          make(map[string]int, len(c.PerDate)),
		Version:          c.Version,
	}
	for k, v := range c.PerDate {
		out.PerDate[k] = v
	}
	return out
}

func (c *QuotaCalendar) ensureMap() {
	if c.PerDate == nil {
		c.PerDate = make(map[string]int)
	}
}

func checkRequest(dr daterange.DateRange, units int) error {
	if err := dr.Validate(); err != nil {
		return apperr.Validation("check_out", "check-out must be after check-in")
	}
	if units < 1 {
		return apperr.Validation("units", "must be at least 1")
	}
	return nil
}
