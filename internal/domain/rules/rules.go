package rules

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/catalog"
	"ratedesk/internal/domain/rates"
)

var (
	ErrPlanRuleNotFound     = errors.New("rules: plan rule not found")
	ErrCategoryRuleNotFound = errors.New("rules: category rule not found")
)

type RuleID string

type FormulaKind string

const (
	FormulaMultiplier  FormulaKind = "multiplier"
	FormulaPassthrough FormulaKind = "passthrough"
)

// ParseFormulaKind maps the stored formula_type; anything but "multiplier" leaves the base untouched.
func ParseFormulaKind(raw string) FormulaKind {
	if strings.TrimSpace(raw) == string(FormulaMultiplier) {
		return FormulaMultiplier
	}
	return FormulaPassthrough
}

// CategoryRule is the per-room-category linear transform: multiply (optionally), then offset.
type CategoryRule struct {
	ID         RuleID
	CategoryID catalog.CategoryID
	BaseSource rates.BaseSource
	Formula    FormulaKind
	Multiplier decimal.Decimal
	Offset     decimal.Decimal
}

func (r CategoryRule) Apply(base decimal.Decimal) decimal.Decimal {
	if r.Formula == FormulaMultiplier {
		return base.Mul(r.Multiplier).Add(r.Offset)
	}
	// any other formula keeps the base and only offsets it
	return base.Add(r.Offset)
}

// PlanRule is the per-plan ordered step pipeline applied after the category rule.
type PlanRule struct {
	ID         RuleID
	PlanID     catalog.PlanID
	BaseSource rates.BaseSource
	Steps      []Step
}

func (r PlanRule) Apply(rate decimal.Decimal) decimal.Decimal {
	for _, step := range r.Steps {
		rate = step.Apply(rate)
	}
	return rate
}

// Resolver returns the single rule attached to a plan or a category.
type Resolver interface {
	PlanRule(ctx context.Context, id catalog.PlanID) (PlanRule, error)
	CategoryRule(ctx context.Context, id catalog.CategoryID) (CategoryRule, error)
}
