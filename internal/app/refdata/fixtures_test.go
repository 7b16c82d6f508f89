package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"ratedesk/internal/domain/shared/daterange"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string    { return &v }

func sampleTables() Tables {
	return Tables{
		Partners: []PartnerRow{
			{ID: "booking", Name: "Booking.com"},
			{ID: "travco", Name: "Travco"},
		},
		Plans: []PlanRow{
			{ID: "ota-flex", Code: "OTA-FLEX", Description: str("Flexible")},
			{ID: "travco-std", Code: "TRAVCO-STD"},
		},
		Categories: []CategoryRow{
			{ID: "std", Name: "Standard"},
			{ID: "suite", Name: "Suite"},
		},
		PartnerPlans: []PartnerPlanRow{
			{PartnerID: "booking", PlanID: "ota-flex"},
			{PartnerID: "travco", PlanID: "travco-std"},
		},
		DailyBaseRates: []DailyBaseRateRow{
			{Date: "2026-11-02", OTARate: f64(100), TravcoRate: f64(80)},
			{Date: "2026-11-03", OTARate: f64(100), TravcoRate: f64(80)},
		},
		CategoryRules: []CategoryRuleRow{
			{ID: "cr-std", CategoryID: "std", BaseSource: "ota_rate", FormulaType: "multiplier", FormulaMultiplier: f64(1), FormulaOffset: f64(10)},
			{ID: "cr-suite", CategoryID: "suite", BaseSource: "ota_rate", FormulaType: "multiplier", FormulaMultiplier: f64(1.5), FormulaOffset: f64(0)},
		},
		PlanRules: []PlanRuleRow{
			{ID: "pr-ota", PlanID: "ota-flex", BaseSource: "ota_rate", Steps: json.RawMessage(`[{"type":"multiplier","value":"1.1"}]`)},
			{ID: "pr-travco", PlanID: "travco-std", BaseSource: "travco_rate", Steps: json.RawMessage(`[]`)},
		},
		PartnerAdjustments: []PartnerAdjustmentRow{
			{ID: "comm", PartnerID: "booking", Description: "Commission", UIControl: "checkbox", AdjustmentType: "percentage_commission", AdjustmentValue: str("10"), AssociatedPlanFilter: str("OTA-*")},
			{ID: "fee", PartnerID: "booking", Description: "Breakfast", UIControl: "checkbox", AdjustmentType: "fixed_fee", AdjustmentValue: str("25")},
			{ID: "promo", PartnerID: "travco", Description: "Promo", UIControl: "checkbox", AdjustmentType: "fixed_reduction", AdjustmentValue: str("20"), AssociatedPlanFilter: str("TRAVCO-*")},
		},
	}
}

// fakeStore serves Tables and can be told to fail.
type fakeStore struct {
	tables    Tables
	err       error
	rowErr    error
	refreshed atomic.Int32
}

func (s *fakeStore) Partners(context.Context) ([]PartnerRow, error) {
	return s.tables.Partners, s.err
}
func (s *fakeStore) Plans(context.Context) ([]PlanRow, error) { return s.tables.Plans, s.err }
func (s *fakeStore) Categories(context.Context) ([]CategoryRow, error) {
	return s.tables.Categories, s.err
}
func (s *fakeStore) PartnerPlans(context.Context) ([]PartnerPlanRow, error) {
	return s.tables.PartnerPlans, s.err
}
func (s *fakeStore) DailyBaseRates(context.Context) ([]DailyBaseRateRow, error) {
	return s.tables.DailyBaseRates, s.err
}
func (s *fakeStore) CategoryRules(context.Context) ([]CategoryRuleRow, error) {
	return s.tables.CategoryRules, s.err
}
func (s *fakeStore) PlanRules(context.Context) ([]PlanRuleRow, error) {
	return s.tables.PlanRules, s.err
}
func (s *fakeStore) PartnerAdjustments(context.Context) ([]PartnerAdjustmentRow, error) {
	return s.tables.PartnerAdjustments, s.err
}

func (s *fakeStore) DailyBaseRate(_ context.Context, date time.Time) (DailyBaseRateRow, bool, error) {
	if s.rowErr != nil {
		return DailyBaseRateRow{}, false, s.rowErr
	}
	key := daterange.DateKey(date)
	for _, row := range s.tables.DailyBaseRates {
		if row.Date == key {
			return row, true, nil
		}
	}
	return DailyBaseRateRow{}, false, nil
}

func (s *fakeStore) Refresh(context.Context) error {
	s.refreshed.Add(1)
	return nil
}

var errStoreDown = errors.New("store down")
