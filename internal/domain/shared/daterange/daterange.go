package daterange

import (
	"errors"
	"time"
)

// Layout is the calendar date format used for persisted keys and the HTTP API.
const Layout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
	ErrInvalidDate  = errors.New("daterange: date must be formatted as YYYY-MM-DD")
)

// DateRange represents a half-open interval of nights [CheckIn, CheckOut).
// Both bounds are calendar days at UTC midnight.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Inclusive builds the range covering every day from a to b, both included.
// Reversed input is normalized so the earlier day becomes the start.
func Inclusive(a, b time.Time) (DateRange, error) {
	if a.IsZero() || b.IsZero() {
		return DateRange{}, ErrInvalidRange
	}
	from, to := Day(a), Day(b)
	if to.Before(from) {
		from, to = to, from
	}
	return DateRange{CheckIn: from, CheckOut: to.AddDate(0, 0, 1)}, nil
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts calendar days, so DST-free UTC arithmetic is exact.
func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn).Hours() / 24)
}

// Days lists every night of the range in ascending order.
func (dr DateRange) Days() []time.Time {
	n := dr.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for d := dr.CheckIn; d.Before(dr.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Last returns the final night of the range.
func (dr DateRange) Last() time.Time {
	return dr.CheckOut.AddDate(0, 0, -1)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.CheckIn.Before(dr.CheckIn) && !other.CheckOut.After(dr.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Day(t)
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}

func (dr DateRange) String() string {
	return Key(dr.CheckIn) + ".." + Key(dr.CheckOut)
}

// Day truncates t to the calendar day it falls on, expressed at UTC midnight.
// The wall-clock date of t is kept, so 2025-07-04T23:30+03:00 stays 2025-07-04.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Key renders the ISO calendar date used to key sparse per-date rows.
func Key(t time.Time) string {
	return Day(t).Format(Layout)
}

// Parse reads a YYYY-MM-DD calendar date.
func Parse(raw string) (time.Time, error) {
	t, err := time.Parse(Layout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// MustParse is Parse for fixtures and tests.
func MustParse(raw string) time.Time {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}
