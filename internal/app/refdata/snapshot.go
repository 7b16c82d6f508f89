package refdata

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/catalog"
	"ratedesk/internal/domain/pricing"
	"ratedesk/internal/domain/rates"
	"ratedesk/internal/domain/rules"
)

var (
	ErrUnknownPartner     = errors.New("refdata: unknown partner")
	ErrUnknownPlan        = errors.New("refdata: unknown plan")
	ErrUnknownCategory    = errors.New("refdata: unknown category")
	ErrPlanNotOffered     = errors.New("refdata: plan is not offered by partner")
	ErrCategoryNotOffered = errors.New("refdata: category is not available for plan")
)

// Snapshot is an immutable view of the reference data loaded at one point in time.
// It is safe for concurrent use; nothing mutates it after Build returns.
type Snapshot struct {
	partners   map[catalog.PartnerID]catalog.Partner
	plans      map[catalog.PlanID]catalog.Plan
	categories map[catalog.CategoryID]catalog.Category

	// first id seen for each display name or code
	partnerByName  map[string]catalog.PartnerID
	planByCode     map[string]catalog.PlanID
	categoryByName map[string]catalog.CategoryID

	partnerPlans   map[catalog.PartnerID]map[catalog.PlanID]struct{}
	planCategories map[catalog.PlanID]map[catalog.CategoryID]struct{}

	categoryRules map[catalog.CategoryID]rules.CategoryRule
	planRules     map[catalog.PlanID]rules.PlanRule

	adjustments        map[catalog.AdjustmentID]catalog.Adjustment
	partnerAdjustments map[catalog.PartnerID][]catalog.AdjustmentID

	series rates.Series

	loadedAt time.Time
	logger   *slog.Logger
}

// Stats summarizes snapshot contents for health and reload responses.
type Stats struct {
	Partners       int       `json:"partners"`
	Plans          int       `json:"plans"`
	Categories     int       `json:"categories"`
	PartnerPlans   int       `json:"partner_plans"`
	DailyBaseRates int       `json:"daily_base_rates"`
	CategoryRules  int       `json:"category_rules"`
	PlanRules      int       `json:"plan_rules"`
	Adjustments    int       `json:"partner_adjustments"`
	LoadedAt       time.Time `json:"loaded_at"`
}

func (s *Snapshot) Stats() Stats {
	links := 0
	for _, set := range s.partnerPlans {
		links += len(set)
	}
	return Stats{
		Partners:       len(s.partners),
		Plans:          len(s.plans),
		Categories:     len(s.categories),
		PartnerPlans:   links,
		DailyBaseRates: len(s.series),
		CategoryRules:  len(s.categoryRules),
		PlanRules:      len(s.planRules),
		Adjustments:    len(s.adjustments),
		LoadedAt:       s.loadedAt,
	}
}

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

func (s *Snapshot) Partners() []catalog.Partner {
	out := make([]catalog.Partner, 0, len(s.partners))
	for _, p := range s.partners {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Snapshot) Plans() []catalog.Plan {
	out := make([]catalog.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sortPlans(out)
	return out
}

func (s *Snapshot) Categories() []catalog.Category {
	out := make([]catalog.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sortCategories(out)
	return out
}

func (s *Snapshot) Partner(id catalog.PartnerID) (catalog.Partner, bool) {
	p, ok := s.partners[id]
	return p, ok
}

func (s *Snapshot) Plan(id catalog.PlanID) (catalog.Plan, bool) {
	p, ok := s.plans[id]
	return p, ok
}

func (s *Snapshot) Category(id catalog.CategoryID) (catalog.Category, bool) {
	c, ok := s.categories[id]
	return c, ok
}

func (s *Snapshot) PartnerName(id catalog.PartnerID) string   { return s.partners[id].Name }
func (s *Snapshot) PlanCode(id catalog.PlanID) string          { return s.plans[id].Code }
func (s *Snapshot) CategoryName(id catalog.CategoryID) string { return s.categories[id].Name }

// PartnerPlans lists the plans a partner may sell, sorted by code.
func (s *Snapshot) PartnerPlans(id catalog.PartnerID) []catalog.Plan {
	set := s.partnerPlans[id]
	out := make([]catalog.Plan, 0, len(set))
	for planID := range set {
		out = append(out, s.plans[planID])
	}
	sortPlans(out)
	return out
}

// PlanCategories lists the categories offered with a plan, sorted by name.
// Until a real plan/category association exists every category is offered with every plan.
func (s *Snapshot) PlanCategories(id catalog.PlanID) []catalog.Category {
	set := s.planCategories[id]
	out := make([]catalog.Category, 0, len(set))
	for catID := range set {
		out = append(out, s.categories[catID])
	}
	sortCategories(out)
	return out
}

// PartnerAdjustments lists a partner's adjustments in stored order. With a known planID
// only adjustments whose plan filter matches the plan code are kept; an unknown planID
// leaves the list unfiltered.
func (s *Snapshot) PartnerAdjustments(partnerID catalog.PartnerID, planID catalog.PlanID) []catalog.Adjustment {
	ids := s.partnerAdjustments[partnerID]
	if len(ids) == 0 {
		return nil
	}
	filter := planID != ""
	var code string
	if filter {
		plan, ok := s.plans[planID]
		if !ok {
			s.log().Warn("adjustment filter plan not found, returning unfiltered list", "plan_id", planID, "partner_id", partnerID)
			filter = false
		}
		code = plan.Code
	}
	out := make([]catalog.Adjustment, 0, len(ids))
	for _, id := range ids {
		adj := s.adjustments[id]
		if filter && !adj.PlanFilter.Matches(code) {
			continue
		}
		out = append(out, adj)
	}
	return out
}

func (s *Snapshot) Adjustment(id catalog.AdjustmentID) (catalog.Adjustment, bool) {
	adj, ok := s.adjustments[id]
	return adj, ok
}

// ValidateSelection checks the partner → plan → category chain a calculation may use.
func (s *Snapshot) ValidateSelection(partnerID catalog.PartnerID, planID catalog.PlanID, categoryID catalog.CategoryID) error {
	if _, ok := s.partners[partnerID]; !ok {
		return ErrUnknownPartner
	}
	if _, ok := s.plans[planID]; !ok {
		return ErrUnknownPlan
	}
	if _, ok := s.categories[categoryID]; !ok {
		return ErrUnknownCategory
	}
	if _, ok := s.partnerPlans[partnerID][planID]; !ok {
		return ErrPlanNotOffered
	}
	if _, ok := s.planCategories[planID][categoryID]; !ok {
		return ErrCategoryNotOffered
	}
	return nil
}

func (s *Snapshot) PlanRule(_ context.Context, id catalog.PlanID) (rules.PlanRule, error) {
	rule, ok := s.planRules[id]
	if !ok {
		return rules.PlanRule{}, rules.ErrPlanRuleNotFound
	}
	return rule, nil
}

func (s *Snapshot) CategoryRule(_ context.Context, id catalog.CategoryID) (rules.CategoryRule, error) {
	rule, ok := s.categoryRules[id]
	if !ok {
		return rules.CategoryRule{}, rules.ErrCategoryRuleNotFound
	}
	return rule, nil
}

func (s *Snapshot) DailyRate(ctx context.Context, date time.Time, src rates.BaseSource) (decimal.Decimal, bool, error) {
	return s.series.DailyRate(ctx, date, src)
}

// Engine returns a calculation engine reading rules, names and rates from this snapshot.
// A non-nil rateResolver replaces the snapshot's own rate series.
func (s *Snapshot) Engine(rateResolver rates.Resolver) pricing.Engine {
	var resolver rates.Resolver = s
	if rateResolver != nil {
		resolver = rateResolver
	}
	return pricing.Engine{Rules: s, Rates: resolver, Directory: s}
}

func (s *Snapshot) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

func sortPlans(list []catalog.Plan) {
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
}

func sortCategories(list []catalog.Category) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

var (
	_ rules.Resolver    = (*Snapshot)(nil)
	_ rates.Resolver    = (*Snapshot)(nil)
	_ pricing.Directory = (*Snapshot)(nil)
)
