// Package refdatatest provides a small reference data set for tests in other packages.
package refdatatest

import (
	"encoding/json"
	"time"

	"ratedesk/internal/app/refdata"
)

// Arrival is the first night covered by Tables' rate card.
var Arrival = time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }
func str(v string) *string    { return &v }

// Tables returns two partners with one plan each, two categories, ten nights of rates from
// Arrival and three adjustments. Booking.com / OTA-FLEX / Standard prices 121.00 a night.
func Tables() refdata.Tables {
	t := refdata.Tables{
		Partners: []refdata.PartnerRow{
			{ID: "booking", Name: "Booking.com"},
			{ID: "travco", Name: "Travco"},
		},
		Plans: []refdata.PlanRow{
			{ID: "ota-flex", Code: "OTA-FLEX", Description: str("Flexible OTA rate")},
			{ID: "travco-std", Code: "TRAVCO-STD"},
		},
		Categories: []refdata.CategoryRow{
			{ID: "std", Name: "Standard"},
			{ID: "suite", Name: "Suite"},
		},
		PartnerPlans: []refdata.PartnerPlanRow{
			{PartnerID: "booking", PlanID: "ota-flex"},
			{PartnerID: "travco", PlanID: "travco-std"},
		},
		CategoryRules: []refdata.CategoryRuleRow{
			{ID: "cr-std", CategoryID: "std", BaseSource: "ota_rate", FormulaType: "multiplier", FormulaMultiplier: f64(1), FormulaOffset: f64(10)},
			{ID: "cr-suite", CategoryID: "suite", BaseSource: "ota_rate", FormulaType: "multiplier", FormulaMultiplier: f64(1.5), FormulaOffset: f64(0)},
		},
		PlanRules: []refdata.PlanRuleRow{
			{ID: "pr-ota", PlanID: "ota-flex", BaseSource: "ota_rate", Steps: json.RawMessage(`[{"type":"multiplier","value":"1.1"}]`)},
			{ID: "pr-travco", PlanID: "travco-std", BaseSource: "travco_rate", Steps: json.RawMessage(`[]`)},
		},
		PartnerAdjustments: []refdata.PartnerAdjustmentRow{
			{ID: "comm", PartnerID: "booking", Description: "Commission", UIControl: "checkbox", AdjustmentType: "percentage_commission", AdjustmentValue: str("10"), DefaultChecked: true, AssociatedPlanFilter: str("OTA-*")},
			{ID: "fee", PartnerID: "booking", Description: "Breakfast", UIControl: "checkbox", AdjustmentType: "fixed_fee", AdjustmentValue: str("25")},
			{ID: "promo", PartnerID: "travco", Description: "Promo", UIControl: "checkbox", AdjustmentType: "fixed_reduction", AdjustmentValue: str("20"), AssociatedPlanFilter: str("TRAVCO-*")},
		},
	}
	for i := range 10 {
		t.DailyBaseRates = append(t.DailyBaseRates, refdata.DailyBaseRateRow{
			Date:       Arrival.AddDate(0, 0, i).Format(time.DateOnly),
			OTARate:    f64(100),
			TravcoRate: f64(80),
		})
	}
	return t
}

// Snapshot builds Tables.
func Snapshot() *refdata.Snapshot {
	s, _ := refdata.Build(Tables(), nil)
	return s
}

// Holder returns a holder already publishing Snapshot.
func Holder() *refdata.Holder {
	h := refdata.NewHolder(nil, nil)
	h.Set(Snapshot())
	return h
}
