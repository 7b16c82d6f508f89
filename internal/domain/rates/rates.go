package rates

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/shared/daterange"
)

var (
	ErrUnknownBaseSource = errors.New("rates: unknown base source")
	ErrInvalidRate       = errors.New("rates: rate must be a finite non-negative number")
)

// BaseSource names one of the two daily base-rate series.
type BaseSource string

const (
	SourceOTA    BaseSource = "ota_rate"
	SourceTravco BaseSource = "travco_rate"
)

func ParseBaseSource(raw string) (BaseSource, error) {
	switch src := BaseSource(strings.TrimSpace(raw)); src {
	case SourceOTA, SourceTravco:
		return src, nil
	default:
		return "", ErrUnknownBaseSource
	}
}

// DailyBaseRate holds the rate card for one calendar day. Either series may be absent.
type DailyBaseRate struct {
	Date   time.Time
	OTA    decimal.NullDecimal
	Travco decimal.NullDecimal
}

// Value returns the rate of the requested series and whether it is present.
func (d DailyBaseRate) Value(src BaseSource) (decimal.Decimal, bool) {
	var v decimal.NullDecimal
	switch src {
	case SourceOTA:
		v = d.OTA
	case SourceTravco:
		v = d.Travco
	}
	if !v.Valid {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

// ParseRate validates a stored rate. Nil means "no rate" and is not an error.
func ParseRate(raw *float64) (decimal.NullDecimal, error) {
	if raw == nil {
		return decimal.NullDecimal{}, nil
	}
	v := *raw
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.NullDecimal{}, ErrInvalidRate
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(v)), nil
}

// Resolver returns the base rate for a day. ok is false when the day or the series has no rate.
type Resolver interface {
	DailyRate(ctx context.Context, date time.Time, src BaseSource) (rate decimal.Decimal, ok bool, err error)
}

// Series is an in-memory rate card keyed by day.
type Series map[string]DailyBaseRate

func (s Series) Put(rate DailyBaseRate) {
	s[daterange.DateKey(rate.Date)] = rate
}

func (s Series) Get(date time.Time) (DailyBaseRate, bool) {
	rate, ok := s[daterange.DateKey(date)]
	return rate, ok
}

func (s Series) DailyRate(_ context.Context, date time.Time, src BaseSource) (decimal.Decimal, bool, error) {
	day, ok := s.Get(date)
	if !ok {
		return decimal.Zero, false, nil
	}
	v, ok := day.Value(src)
	return v, ok, nil
}

var _ Resolver = Series(nil)
