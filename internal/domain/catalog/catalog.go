package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	PartnerID    string
	PlanID       string
	CategoryID   string
	AdjustmentID string
)

var (
	ErrUnknownAdjustmentKind = errors.New("catalog: unknown adjustment type")
)

// Partner is a distribution channel selling rooms (OTA, tour operator ...).
type Partner struct {
	ID   PartnerID
	Name string
}

// Plan is a rate plan. Code is what users see and what plan filters match against.
type Plan struct {
	ID          PlanID
	Code        string
	Description string
}

type Category struct {
	ID   CategoryID
	Name string
}

type PartnerPlan struct {
	PartnerID PartnerID
	PlanID    PlanID
}

type AdjustmentKind string

const (
	AdjustmentPercentageCommission AdjustmentKind = "percentage_commission"
	AdjustmentFixedReduction       AdjustmentKind = "fixed_reduction"
	AdjustmentFixedFee             AdjustmentKind = "fixed_fee"
)

func ParseAdjustmentKind(raw string) (AdjustmentKind, error) {
	switch kind := AdjustmentKind(strings.TrimSpace(raw)); kind {
	case AdjustmentPercentageCommission, AdjustmentFixedReduction, AdjustmentFixedFee:
		return kind, nil
	default:
		return "", ErrUnknownAdjustmentKind
	}
}

const UIControlCheckbox = "checkbox"

// Adjustment is a partner-specific price modifier the user toggles per booking.
type Adjustment struct {
	ID             AdjustmentID
	PartnerID      PartnerID
	Description    string
	UIControl      string
	Kind           AdjustmentKind
	Value          decimal.Decimal
	HasValue       bool
	DefaultChecked bool
	PlanFilter     PlanFilter
}

// Selectable reports whether the adjustment is rendered as a toggle users can pick.
func (a Adjustment) Selectable() bool {
	return a.UIControl == UIControlCheckbox
}

// AppliesTo reports whether the adjustment can be used with the given partner and plan code.
func (a Adjustment) AppliesTo(partner PartnerID, planCode string) bool {
	return a.PartnerID == partner && a.PlanFilter.Matches(planCode)
}

// PlanFilter restricts an adjustment to plans by exact code, or by prefix when it ends in "*".
// The zero value matches every plan.
type PlanFilter string

func NewPlanFilter(raw string) PlanFilter {
	return PlanFilter(strings.TrimSpace(raw))
}

func (f PlanFilter) Matches(planCode string) bool {
	value := strings.TrimSpace(string(f))
	if value == "" {
		return true
	}
	if prefix, ok := strings.CutSuffix(value, "*"); ok {
		return strings.HasPrefix(planCode, prefix)
	}
	return planCode == value
}
