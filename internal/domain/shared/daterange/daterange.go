package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: departure must be after arrival")
)

// DateRange represents a half-open interval of calendar days [CheckIn, CheckOut).
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

// ForNights builds the stay starting on arrival and lasting the given number of nights.
func ForNights(arrival time.Time, nights int) (DateRange, error) {
	start := Day(arrival)
	return New(start, start.AddDate(0, 0, nights))
}

// Day truncates t to its calendar day at UTC midnight, keeping the wall-clock date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
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

func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn).Hours() / 24)
}

// Days lists every night of the stay in order, arrival first.
func (dr DateRange) Days() []time.Time {
	n := dr.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for i := range n {
		out = append(out, dr.CheckIn.AddDate(0, 0, i))
	}
	return out
}

// DateKey formats a day the way the rate card stores it (YYYY-MM-DD).
func DateKey(t time.Time) string {
	return Day(t).Format(time.DateOnly)
}

// ParseDateKey parses a YYYY-MM-DD key, also accepting a full RFC3339 timestamp.
func ParseDateKey(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
