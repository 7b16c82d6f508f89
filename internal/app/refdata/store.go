package refdata

import (
	"context"
	"encoding/json"
	"time"
)

// Rows as the reference store returns them. Field names follow the stored columns.
type (
	PartnerRow struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	PlanRow struct {
		ID          string  `json:"id"`
		Code        string  `json:"code"`
		Description *string `json:"description"`
	}

	CategoryRow struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	PartnerPlanRow struct {
		PartnerID string `json:"partner_id"`
		PlanID    string `json:"plan_id"`
	}

	DailyBaseRateRow struct {
		Date       string   `json:"date"`
		OTARate    *float64 `json:"ota_rate"`
		TravcoRate *float64 `json:"travco_rate"`
	}

	CategoryRuleRow struct {
		ID                string   `json:"id"`
		CategoryID        string   `json:"category_id"`
		BaseSource        string   `json:"base_source"`
		FormulaType       string   `json:"formula_type"`
		FormulaMultiplier *float64 `json:"formula_multiplier"`
		FormulaOffset     *float64 `json:"formula_offset"`
	}

	PlanRuleRow struct {
		ID         string          `json:"id"`
		PlanID     string          `json:"plan_id"`
		BaseSource string          `json:"base_source"`
		Steps      json.RawMessage `json:"steps"`
	}

	PartnerAdjustmentRow struct {
		ID                   string  `json:"id"`
		PartnerID            string  `json:"partner_id"`
		Description          string  `json:"description"`
		UIControl            string  `json:"ui_control"`
		AdjustmentType       string  `json:"adjustment_type"`
		AdjustmentValue      *string `json:"adjustment_value"`
		DefaultChecked       bool    `json:"default_checked"`
		AssociatedPlanFilter *string `json:"associated_plan_filter"`
	}
)

// Tables is one full read of the reference store.
type Tables struct {
	Partners           []PartnerRow           `json:"partners"`
	Plans              []PlanRow              `json:"plans"`
	Categories         []CategoryRow          `json:"categories"`
	PartnerPlans       []PartnerPlanRow       `json:"partner_plans"`
	DailyBaseRates     []DailyBaseRateRow     `json:"daily_base_rates"`
	CategoryRules      []CategoryRuleRow      `json:"category_rules"`
	PlanRules          []PlanRuleRow          `json:"plan_rules"`
	PartnerAdjustments []PartnerAdjustmentRow `json:"partner_adjustments"`
}

// Store is the read surface of the reference data store.
type Store interface {
	Partners(ctx context.Context) ([]PartnerRow, error)
	Plans(ctx context.Context) ([]PlanRow, error)
	Categories(ctx context.Context) ([]CategoryRow, error)
	PartnerPlans(ctx context.Context) ([]PartnerPlanRow, error)
	DailyBaseRates(ctx context.Context) ([]DailyBaseRateRow, error)
	CategoryRules(ctx context.Context) ([]CategoryRuleRow, error)
	PlanRules(ctx context.Context) ([]PlanRuleRow, error)
	PartnerAdjustments(ctx context.Context) ([]PartnerAdjustmentRow, error)

	// DailyBaseRate is the point query for one day; found is false when no row exists.
	DailyBaseRate(ctx context.Context, date time.Time) (row DailyBaseRateRow, found bool, err error)
}
