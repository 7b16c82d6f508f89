package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/catalog"
	"ratedesk/internal/domain/rules"
	"ratedesk/internal/domain/rates"
	"ratedesk/internal/domain/shared/daterange"
)

// Directory resolves reference entities the engine needs besides rules and rates.
type Directory interface {
	Adjustment(id catalog.AdjustmentID) (catalog.Adjustment, bool)
	PartnerName(id catalog.PartnerID) string
	PlanCode(id catalog.PlanID) string
	CategoryName(id catalog.CategoryID) string
}

// Engine composes base rates, category and plan rules, partner adjustments and the discount.
// It holds no state between calls.
type Engine struct {
	Rules     rules.Resolver
	Rates     rates.Resolver
	Directory Directory
}

var ErrEngineNotConfigured = errors.New("pricing: engine missing dependencies")

func (e Engine) Calculate(ctx context.Context, in Input) (Result, error) {
	var zero Result
	if e.Rules == nil || e.Rates == nil || e.Directory == nil {
		return zero, ErrEngineNotConfigured
	}
	if err := in.Validate(); err != nil {
		return zero, err
	}
	stay, err := daterange.ForNights(in.ArrivalDate, in.Nights)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	planRule, err := e.Rules.PlanRule(ctx, in.PlanID)
	if err != nil {
		if errors.Is(err, rules.ErrPlanRuleNotFound) {
			return zero, fmt.Errorf("%w: plan %s: %w", ErrMissingPlanRule, in.PlanID, err)
		}
		return zero, err
	}
	categoryRule, err := e.Rules.CategoryRule(ctx, in.CategoryID)
	if err != nil {
		if errors.Is(err, rules.ErrCategoryRuleNotFound) {
			return zero, fmt.Errorf("%w: category %s: %w", ErrMissingCategoryRule, in.CategoryID, err)
		}
		return zero, err
	}

	res := Result{
		ArrivalDate:    stay.CheckIn,
		DepartureDate:  stay.CheckOut,
		Nights:         in.Nights,
		PartnerID:      in.PartnerID,
		PlanID:         in.PlanID,
		CategoryID:     in.CategoryID,
		Discount:       in.Discount,
		PartnerName:    e.Directory.PartnerName(in.PartnerID),
		PlanName:       e.Directory.PlanCode(in.PlanID),
		CategoryName:   e.Directory.CategoryName(in.CategoryID),
		DailyBreakdown: make([]NightRate, 0, in.Nights),
	}

	subtotal := decimal.Zero
	for _, day := range stay.Days() {
		night, err := e.priceNight(ctx, day, planRule, categoryRule)
		if err != nil {
			return zero, err
		}
		if night.Missing {
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarningMissingBaseRate,
				Date:    day,
				Message: fmt.Sprintf("no %s for %s, priced from 0", planRule.BaseSource, daterange.DateKey(day)),
			})
		}
		res.DailyBreakdown = append(res.DailyBreakdown, night)
		subtotal = subtotal.Add(night.CalculatedRate)
	}
	res.Subtotal = subtotal

	adjusted, amount := subtotal, decimal.Zero
	seen := make(map[catalog.AdjustmentID]struct{}, len(in.SelectedAdjustments))
	for _, id := range in.SelectedAdjustments {
		if _, dup := seen[id]; dup {
			res.Warnings = append(res.Warnings, Warning{Code: WarningDuplicateAdjustment, AdjustmentID: id, Message: "adjustment selected more than once"})
			continue
		}
		seen[id] = struct{}{}

		adj, ok := e.Directory.Adjustment(id)
		if !ok {
			res.Warnings = append(res.Warnings, Warning{Code: WarningUnknownAdjustment, AdjustmentID: id, Message: "adjustment not found"})
			continue
		}
		if !adj.Selectable() || !adj.AppliesTo(in.PartnerID, res.PlanName) {
			res.Warnings = append(res.Warnings, Warning{Code: WarningAdjustmentNotApplicable, AdjustmentID: id, Message: "adjustment does not apply to the selected partner and plan"})
			continue
		}
		if !adj.HasValue {
			res.Warnings = append(res.Warnings, Warning{Code: WarningInvalidAdjustmentValue, AdjustmentID: id, Message: "adjustment has no numeric value"})
			continue
		}
		delta := adjustmentDelta(adj, adjusted)
		adjusted = adjusted.Add(delta)
		amount = amount.Add(delta)
		res.Adjustments = append(res.Adjustments, AppliedAdjustment{
			ID:          adj.ID,
			Description: adj.Description,
			Kind:        adj.Kind,
			Value:       adj.Value,
			Amount:      delta,
		})
	}
	res.AdjustedRate = adjusted
	res.AdjustmentsAmount = amount

	res.DiscountAmount = adjusted.Mul(in.Discount).Div(hundred)
	res.FinalRate = adjusted.Sub(res.DiscountAmount)
	return res, nil
}

// priceNight applies the category formula, then the plan steps, then rounds.
func (e Engine) priceNight(ctx context.Context, day time.Time, plan rules.PlanRule, category rules.CategoryRule) (NightRate, error) {
	base, ok, err := e.Rates.DailyRate(ctx, day, plan.BaseSource)
	if err != nil {
		return NightRate{}, fmt.Errorf("pricing: base rate for %s: %w", daterange.DateKey(day), err)
	}
	if !ok {
		base = decimal.Zero
	}
	rate := category.Apply(base)
	rate = plan.Apply(rate)
	return NightRate{
		Date:           day,
		BaseRate:       base,
		BaseSource:     plan.BaseSource,
		CalculatedRate: rate.Round(RatePrecision),
		Missing:        !ok,
	}, nil
}

// adjustmentDelta returns the signed change an adjustment makes to the running total.
func adjustmentDelta(adj catalog.Adjustment, running decimal.Decimal) decimal.Decimal {
	switch adj.Kind {
	case catalog.AdjustmentPercentageCommission:
		return running.Mul(adj.Value).Div(hundred).Neg()
	case catalog.AdjustmentFixedReduction:
		return adj.Value.Neg()
	case catalog.AdjustmentFixedFee:
		return adj.Value
	default:
		return decimal.Zero
	}
}
