package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/catalog"
	"ratedesk/internal/domain/rates"
)

const (
	MinNights   = 1
	MaxNights   = 30
	MinDiscount = 0
	MaxDiscount = 100

	// Nightly rates are rounded half away from zero to this many decimals.
	RatePrecision = 2
)

var (
	ErrInvalidInput        = errors.New("pricing: invalid calculation input")
	ErrMissingPlanRule     = errors.New("pricing: plan rule is missing")
	ErrMissingCategoryRule = errors.New("pricing: category rule is missing")
)

var hundred = decimal.NewFromInt(100)

// Input is a stay to price. SelectedAdjustments is applied in the given order.
type Input struct {
	ArrivalDate         time.Time
	Nights              int
	PartnerID           catalog.PartnerID
	PlanID              catalog.PlanID
	CategoryID          catalog.CategoryID
	Discount            decimal.Decimal
	SelectedAdjustments []catalog.AdjustmentID
}

func (in Input) Validate() error {
	if in.ArrivalDate.IsZero() {
		return fmt.Errorf("%w: arrival date is required", ErrInvalidInput)
	}
	if in.Nights < MinNights || in.Nights > MaxNights {
		return fmt.Errorf("%w: nights must be between %d and %d", ErrInvalidInput, MinNights, MaxNights)
	}
	if strings.TrimSpace(string(in.PartnerID)) == "" {
		return fmt.Errorf("%w: partner is required", ErrInvalidInput)
	}
	if strings.TrimSpace(string(in.PlanID)) == "" {
		return fmt.Errorf("%w: plan is required", ErrInvalidInput)
	}
	if strings.TrimSpace(string(in.CategoryID)) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if in.Discount.LessThan(decimal.NewFromInt(MinDiscount)) || in.Discount.GreaterThan(decimal.NewFromInt(MaxDiscount)) {
		return fmt.Errorf("%w: discount must be between %d and %d", ErrInvalidInput, MinDiscount, MaxDiscount)
	}
	return nil
}

// NightRate is one row of the daily breakdown.
type NightRate struct {
	Date           time.Time
	BaseRate       decimal.Decimal
	BaseSource     rates.BaseSource
	CalculatedRate decimal.Decimal
	// Missing is set when the rate card had no value for the day and 0 was used.
	Missing bool
}

// AppliedAdjustment itemizes one partner adjustment; Amount is signed.
type AppliedAdjustment struct {
	ID          catalog.AdjustmentID
	Description string
	Kind        catalog.AdjustmentKind
	Value       decimal.Decimal
	Amount      decimal.Decimal
}

type WarningCode string

const (
	WarningMissingBaseRate         WarningCode = "missing_base_rate"
	WarningUnknownAdjustment       WarningCode = "unknown_adjustment"
	WarningAdjustmentNotApplicable WarningCode = "adjustment_not_applicable"
	WarningInvalidAdjustmentValue  WarningCode = "invalid_adjustment_value"
	WarningDuplicateAdjustment     WarningCode = "duplicate_adjustment"
)

// Warning flags a degraded part of a result that was still produced.
type Warning struct {
	Code         WarningCode
	Date         time.Time
	AdjustmentID catalog.AdjustmentID
	Message      string
}

type Result struct {
	FinalRate         decimal.Decimal
	Subtotal          decimal.Decimal
	AdjustmentsAmount decimal.Decimal
	DiscountAmount    decimal.Decimal
	AdjustedRate      decimal.Decimal
	DailyBreakdown    []NightRate
	Adjustments       []AppliedAdjustment
	ArrivalDate       time.Time
	DepartureDate     time.Time
	Nights            int
	PartnerID         catalog.PartnerID
	PlanID            catalog.PlanID
	CategoryID        catalog.CategoryID
	Discount          decimal.Decimal
	PartnerName       string
	PlanName          string
	CategoryName      string
	Warnings          []Warning
}

// MissingNights counts nights priced from a zero base rate.
func (r Result) MissingNights() int {
	n := 0
	for _, night := range r.DailyBreakdown {
		if night.Missing {
			n++
		}
	}
	return n
}

type Calculator interface {
	Calculate(ctx context.Context, input Input) (Result, error)
}
