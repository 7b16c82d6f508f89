package refdata

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/catalog"
	"ratedesk/internal/domain/rates"
	"ratedesk/internal/domain/rules"
	"ratedesk/internal/domain/shared/daterange"
)

// Report counts rows dropped while building a snapshot, keyed by table name.
type Report struct {
	Skipped map[string]int `json:"skipped"`
	// MissingPlanLinks counts partner_plans rows pointing at an unknown partner or plan.
	MissingPlanLinks int `json:"missing_plan_links"`
	// DroppedSteps counts plan steps removed because of an unknown type or a non-numeric value.
	DroppedSteps int `json:"dropped_steps"`
}

func (r *Report) skip(table string) {
	if r.Skipped == nil {
		r.Skipped = map[string]int{}
	}
	r.Skipped[table]++
}

// Clean reports whether every row made it into the snapshot.
func (r Report) Clean() bool {
	return len(r.Skipped) == 0 && r.MissingPlanLinks == 0 && r.DroppedSteps == 0
}

// Build validates raw rows and derives the lookup structures. Invalid rows are logged and dropped.
func Build(t Tables, logger *slog.Logger) (*Snapshot, Report) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Snapshot{
		partners:           make(map[catalog.PartnerID]catalog.Partner, len(t.Partners)),
		plans:              make(map[catalog.PlanID]catalog.Plan, len(t.Plans)),
		categories:         make(map[catalog.CategoryID]catalog.Category, len(t.Categories)),
		partnerByName:      make(map[string]catalog.PartnerID, len(t.Partners)),
		planByCode:         make(map[string]catalog.PlanID, len(t.Plans)),
		categoryByName:     make(map[string]catalog.CategoryID, len(t.Categories)),
		partnerPlans:       map[catalog.PartnerID]map[catalog.PlanID]struct{}{},
		planCategories:     map[catalog.PlanID]map[catalog.CategoryID]struct{}{},
		categoryRules:      make(map[catalog.CategoryID]rules.CategoryRule, len(t.CategoryRules)),
		planRules:          make(map[catalog.PlanID]rules.PlanRule, len(t.PlanRules)),
		adjustments:        make(map[catalog.AdjustmentID]catalog.Adjustment, len(t.PartnerAdjustments)),
		partnerAdjustments: map[catalog.PartnerID][]catalog.AdjustmentID{},
		series:             make(rates.Series, len(t.DailyBaseRates)),
		loadedAt:           time.Now().UTC(),
		logger:             logger,
	}
	var report Report

	for _, row := range t.DailyBaseRates {
		day, ok := ingestDailyRate(row, logger)
		if !ok {
			report.skip("daily_base_rates")
			continue
		}
		s.series.Put(day)
	}

	for _, row := range t.Partners {
		id, name := catalog.PartnerID(strings.TrimSpace(row.ID)), strings.TrimSpace(row.Name)
		if id == "" || name == "" {
			logger.Warn("skipping invalid partner", "id", row.ID, "name", row.Name)
			report.skip("partners")
			continue
		}
		if _, dup := s.partners[id]; dup {
			logger.Warn("skipping duplicate partner", "id", id)
			report.skip("partners")
			continue
		}
		s.partners[id] = catalog.Partner{ID: id, Name: name}
		if first, clash := s.partnerByName[name]; clash {
			logger.Warn("partner name shared by several ids", "name", name, "id", id, "first_id", first)
		} else {
			s.partnerByName[name] = id
		}
	}

	for _, row := range t.Categories {
		id, name := catalog.CategoryID(strings.TrimSpace(row.ID)), strings.TrimSpace(row.Name)
		if id == "" || name == "" {
			logger.Warn("skipping invalid category", "id", row.ID, "name", row.Name)
			report.skip("categories")
			continue
		}
		if _, dup := s.categories[id]; dup {
			logger.Warn("skipping duplicate category", "id", id)
			report.skip("categories")
			continue
		}
		s.categories[id] = catalog.Category{ID: id, Name: name}
		if first, clash := s.categoryByName[name]; clash {
			logger.Warn("category name shared by several ids", "name", name, "id", id, "first_id", first)
		} else {
			s.categoryByName[name] = id
		}
	}

	for _, row := range t.Plans {
		id, code := catalog.PlanID(strings.TrimSpace(row.ID)), strings.TrimSpace(row.Code)
		if id == "" || code == "" {
			logger.Warn("skipping invalid plan", "id", row.ID, "code", row.Code)
			report.skip("plans")
			continue
		}
		if _, dup := s.plans[id]; dup {
			logger.Warn("skipping duplicate plan", "id", id)
			report.skip("plans")
			continue
		}
		plan := catalog.Plan{ID: id, Code: code}
		if row.Description != nil {
			plan.Description = *row.Description
		}
		s.plans[id] = plan
		if first, clash := s.planByCode[code]; clash {
			logger.Warn("plan code shared by several ids", "code", code, "id", id, "first_id", first)
		} else {
			s.planByCode[code] = id
		}
	}

	for _, row := range t.PartnerPlans {
		partnerID := catalog.PartnerID(strings.TrimSpace(row.PartnerID))
		planID := catalog.PlanID(strings.TrimSpace(row.PlanID))
		if partnerID == "" || planID == "" {
			logger.Warn("skipping invalid partner_plan", "partner_id", row.PartnerID, "plan_id", row.PlanID)
			report.skip("partner_plans")
			continue
		}
		_, partnerOK := s.partners[partnerID]
		_, planOK := s.plans[planID]
		if !partnerOK || !planOK {
			logger.Warn("skipping partner_plan with unknown ids", "partner_id", partnerID, "plan_id", planID)
			report.MissingPlanLinks++
			continue
		}
		set, ok := s.partnerPlans[partnerID]
		if !ok {
			set = map[catalog.PlanID]struct{}{}
			s.partnerPlans[partnerID] = set
		}
		set[planID] = struct{}{}
	}

	// Placeholder association: every category is offered with every plan.
	for planID := range s.plans {
		set := make(map[catalog.CategoryID]struct{}, len(s.categories))
		for catID := range s.categories {
			set[catID] = struct{}{}
		}
		s.planCategories[planID] = set
	}

	for _, row := range t.CategoryRules {
		rule, ok := ingestCategoryRule(row, logger)
		if !ok {
			report.skip("category_rules")
			continue
		}
		if _, dup := s.categoryRules[rule.CategoryID]; dup {
			logger.Warn("skipping duplicate category rule", "id", row.ID, "category_id", rule.CategoryID)
			report.skip("category_rules")
			continue
		}
		s.categoryRules[rule.CategoryID] = rule
	}

	for _, row := range t.PlanRules {
		rule, dropped, ok := ingestPlanRule(row, logger)
		report.DroppedSteps += dropped
		if !ok {
			report.skip("plan_rules")
			continue
		}
		if _, dup := s.planRules[rule.PlanID]; dup {
			logger.Warn("skipping duplicate plan rule", "id", row.ID, "plan_id", rule.PlanID)
			report.skip("plan_rules")
			continue
		}
		s.planRules[rule.PlanID] = rule
	}

	for _, row := range t.PartnerAdjustments {
		adj, ok := ingestAdjustment(row, logger)
		if !ok {
			report.skip("partner_adjustments")
			continue
		}
		if _, dup := s.adjustments[adj.ID]; dup {
			logger.Warn("skipping duplicate partner adjustment", "id", adj.ID)
			report.skip("partner_adjustments")
			continue
		}
		s.adjustments[adj.ID] = adj
		s.partnerAdjustments[adj.PartnerID] = append(s.partnerAdjustments[adj.PartnerID], adj.ID)
	}

	return s, report
}

// IngestDailyRate validates one rate-card row. Invalid series values are dropped individually;
// the row itself is dropped only when its date is unusable.
func IngestDailyRate(row DailyBaseRateRow, logger *slog.Logger) (rates.DailyBaseRate, bool) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return ingestDailyRate(row, logger)
}

func ingestDailyRate(row DailyBaseRateRow, logger *slog.Logger) (rates.DailyBaseRate, bool) {
	raw := strings.TrimSpace(row.Date)
	if raw == "" {
		logger.Warn("skipping daily_base_rate without date")
		return rates.DailyBaseRate{}, false
	}
	date, err := daterange.ParseDateKey(raw)
	if err != nil {
		logger.Warn("skipping daily_base_rate with invalid date", "date", row.Date, "error", err)
		return rates.DailyBaseRate{}, false
	}
	day := rates.DailyBaseRate{Date: date}
	if day.OTA, err = rates.ParseRate(row.OTARate); err != nil {
		logger.Warn("dropping invalid ota_rate", "date", raw, "value", *row.OTARate)
	}
	if day.Travco, err = rates.ParseRate(row.TravcoRate); err != nil {
		logger.Warn("dropping invalid travco_rate", "date", raw, "value", *row.TravcoRate)
	}
	return day, true
}

func ingestCategoryRule(row CategoryRuleRow, logger *slog.Logger) (rules.CategoryRule, bool) {
	categoryID := catalog.CategoryID(strings.TrimSpace(row.CategoryID))
	if categoryID == "" {
		logger.Warn("skipping category rule without category_id", "id", row.ID)
		return rules.CategoryRule{}, false
	}
	src, err := rates.ParseBaseSource(row.BaseSource)
	if err != nil {
		logger.Warn("skipping category rule with unknown base_source", "id", row.ID, "base_source", row.BaseSource)
		return rules.CategoryRule{}, false
	}
	if row.FormulaMultiplier == nil || row.FormulaOffset == nil {
		logger.Warn("skipping category rule with missing formula fields", "id", row.ID)
		return rules.CategoryRule{}, false
	}
	multiplier, err := finite(*row.FormulaMultiplier)
	if err != nil {
		logger.Warn("skipping category rule with invalid multiplier", "id", row.ID)
		return rules.CategoryRule{}, false
	}
	offset, err := finite(*row.FormulaOffset)
	if err != nil {
		logger.Warn("skipping category rule with invalid offset", "id", row.ID)
		return rules.CategoryRule{}, false
	}
	return rules.CategoryRule{
		ID:         rules.RuleID(row.ID),
		CategoryID: categoryID,
		BaseSource: src,
		Formula:    rules.ParseFormulaKind(row.FormulaType),
		Multiplier: multiplier,
		Offset:     offset,
	}, true
}

func ingestPlanRule(row PlanRuleRow, logger *slog.Logger) (rules.PlanRule, int, bool) {
	planID := catalog.PlanID(strings.TrimSpace(row.PlanID))
	if planID == "" {
		logger.Warn("skipping plan rule without plan_id", "id", row.ID)
		return rules.PlanRule{}, 0, false
	}
	src, err := rates.ParseBaseSource(row.BaseSource)
	if err != nil {
		logger.Warn("skipping plan rule with unknown base_source", "id", row.ID, "base_source", row.BaseSource)
		return rules.PlanRule{}, 0, false
	}
	steps, issues, err := rules.ParseSteps(row.Steps)
	if err != nil {
		logger.Warn("skipping plan rule with malformed steps", "id", row.ID, "error", err)
		return rules.PlanRule{}, 0, false
	}
	for _, issue := range issues {
		logger.Warn("dropping plan step", "id", row.ID, "plan_id", planID, "issue", issue.Error())
	}
	return rules.PlanRule{
		ID:         rules.RuleID(row.ID),
		PlanID:     planID,
		BaseSource: src,
		Steps:      steps,
	}, len(issues), true
}

func ingestAdjustment(row PartnerAdjustmentRow, logger *slog.Logger) (catalog.Adjustment, bool) {
	id := catalog.AdjustmentID(strings.TrimSpace(row.ID))
	partnerID := catalog.PartnerID(strings.TrimSpace(row.PartnerID))
	if id == "" || partnerID == "" {
		logger.Warn("skipping partner adjustment without id or partner_id", "id", row.ID, "partner_id", row.PartnerID)
		return catalog.Adjustment{}, false
	}
	kind, err := catalog.ParseAdjustmentKind(row.AdjustmentType)
	if err != nil {
		logger.Warn("skipping partner adjustment with unknown type", "id", id, "adjustment_type", row.AdjustmentType)
		return catalog.Adjustment{}, false
	}
	adj := catalog.Adjustment{
		ID:             id,
		PartnerID:      partnerID,
		Description:    row.Description,
		UIControl:      strings.TrimSpace(row.UIControl),
		Kind:           kind,
		DefaultChecked: row.DefaultChecked,
	}
	if row.AssociatedPlanFilter != nil {
		adj.PlanFilter = catalog.NewPlanFilter(*row.AssociatedPlanFilter)
	}
	if row.AdjustmentValue != nil {
		if v, err := decimal.NewFromString(strings.TrimSpace(*row.AdjustmentValue)); err == nil {
			adj.Value, adj.HasValue = v, true
		} else {
			logger.Warn("partner adjustment value is not numeric, it will be ignored", "id", id, "value", *row.AdjustmentValue)
		}
	}
	return adj, true
}

func finite(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, rates.ErrInvalidRate
	}
	return decimal.NewFromFloat(v), nil
}
