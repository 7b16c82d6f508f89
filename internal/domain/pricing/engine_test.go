package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratedesk/internal/domain/catalog"
	"ratedesk/internal/domain/rates"
	"ratedesk/internal/domain/rules"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

type fixture struct {
	planRules     map[catalog.PlanID]rules.PlanRule
	categoryRules map[catalog.CategoryID]rules.CategoryRule
	plans         map[catalog.PlanID]string
	adjustments   map[catalog.AdjustmentID]catalog.Adjustment
	series        rates.Series
	rateErr       error
}

func (f *fixture) PlanRule(_ context.Context, id catalog.PlanID) (rules.PlanRule, error) {
	r, ok := f.planRules[id]
	if !ok {
		return rules.PlanRule{}, rules.ErrPlanRuleNotFound
	}
	return r, nil
}

func (f *fixture) CategoryRule(_ context.Context, id catalog.CategoryID) (rules.CategoryRule, error) {
	r, ok := f.categoryRules[id]
	if !ok {
		return rules.CategoryRule{}, rules.ErrCategoryRuleNotFound
	}
	return r, nil
}

func (f *fixture) DailyRate(ctx context.Context, date time.Time, src rates.BaseSource) (decimal.Decimal, bool, error) {
	if f.rateErr != nil {
		return decimal.Zero, false, f.rateErr
	}
	return f.series.DailyRate(ctx, date, src)
}

func (f *fixture) Adjustment(id catalog.AdjustmentID) (catalog.Adjustment, bool) {
	a, ok := f.adjustments[id]
	return a, ok
}

func (f *fixture) PartnerName(id catalog.PartnerID) string   { return "Partner " + string(id) }
func (f *fixture) PlanCode(id catalog.PlanID) string          { return f.plans[id] }
func (f *fixture) CategoryName(id catalog.CategoryID) string { return "Category " + string(id) }

func (f *fixture) engine() Engine {
	return Engine{Rules: f, Rates: f, Directory: f}
}

var arrival = time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

// newFixture prices every night of November 2026 at ota_rate=100 with the
// category formula x*1.0+10 and a plan multiplier of 1.1.
func newFixture() *fixture {
	f := &fixture{
		planRules: map[catalog.PlanID]rules.PlanRule{
			"ota-flex": {ID: "pr1", PlanID: "ota-flex", BaseSource: rates.SourceOTA, Steps: []rules.Step{rules.Multiplier(dec("1.1"))}},
			"travco":   {ID: "pr2", PlanID: "travco", BaseSource: rates.SourceTravco},
		},
		categoryRules: map[catalog.CategoryID]rules.CategoryRule{
			"std": {ID: "cr1", CategoryID: "std", BaseSource: rates.SourceTravco, Formula: rules.FormulaMultiplier, Multiplier: dec("1.0"), Offset: dec("10")},
		},
		plans: map[catalog.PlanID]string{"ota-flex": "OTA-FLEX", "travco": "TRAVCO-STD"},
		adjustments: map[catalog.AdjustmentID]catalog.Adjustment{
			"comm10": {ID: "comm10", PartnerID: "booking", Description: "Commission", UIControl: catalog.UIControlCheckbox,
				Kind: catalog.AdjustmentPercentageCommission, Value: dec("10"), HasValue: true, PlanFilter: catalog.NewPlanFilter("OTA-*")},
			"comm20": {ID: "comm20", PartnerID: "booking", UIControl: catalog.UIControlCheckbox,
				Kind: catalog.AdjustmentPercentageCommission, Value: dec("20"), HasValue: true},
			"fee": {ID: "fee", PartnerID: "booking", UIControl: catalog.UIControlCheckbox,
				Kind: catalog.AdjustmentFixedFee, Value: dec("15"), HasValue: true},
			"reduce": {ID: "reduce", PartnerID: "booking", UIControl: catalog.UIControlCheckbox,
				Kind: catalog.AdjustmentFixedReduction, Value: dec("30"), HasValue: true},
			"novalue": {ID: "novalue", PartnerID: "booking", UIControl: catalog.UIControlCheckbox,
				Kind: catalog.AdjustmentFixedFee},
			"label": {ID: "label", PartnerID: "booking", UIControl: "label",
				Kind: catalog.AdjustmentFixedFee, Value: dec("5"), HasValue: true},
			"other": {ID: "other", PartnerID: "expedia", UIControl: catalog.UIControlCheckbox,
				Kind: catalog.AdjustmentFixedFee, Value: dec("5"), HasValue: true},
		},
		series: rates.Series{},
	}
	for d := 1; d <= 30; d++ {
		f.series.Put(rates.DailyBaseRate{
			Date:   time.Date(2026, 11, d, 0, 0, 0, 0, time.UTC),
			OTA:    decimal.NewNullDecimal(dec("100")),
			Travco: decimal.NewNullDecimal(dec("80")),
		})
	}
	return f
}

func baseInput() Input {
	return Input{
		ArrivalDate: arrival,
		Nights:      2,
		PartnerID:   "booking",
		PlanID:      "ota-flex",
		CategoryID:  "std",
		Discount:    decimal.Zero,
	}
}

func TestCategoryThenPlanSteps(t *testing.T) {
	res, err := newFixture().engine().Calculate(context.Background(), baseInput())
	require.NoError(t, err)

	require.Len(t, res.DailyBreakdown, 2)
	for _, night := range res.DailyBreakdown {
		assertDec(t, "100", night.BaseRate)
		assertDec(t, "121.00", night.CalculatedRate)
		assert.Equal(t, rates.SourceOTA, night.BaseSource)
		assert.False(t, night.Missing)
	}
	assertDec(t, "242.00", res.Subtotal)
	assertDec(t, "242.00", res.AdjustedRate)
	assertDec(t, "0", res.AdjustmentsAmount)
	assertDec(t, "0", res.DiscountAmount)
	assertDec(t, "242.00", res.FinalRate)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "OTA-FLEX", res.PlanName)
	assert.Equal(t, arrival.AddDate(0, 0, 2), res.DepartureDate)
}

func TestCommissionOffSubtotal(t *testing.T) {
	in := baseInput()
	in.SelectedAdjustments = []catalog.AdjustmentID{"comm10"}

	res, err := newFixture().engine().Calculate(context.Background(), in)
	require.NoError(t, err)

	assertDec(t, "217.80", res.AdjustedRate)
	assertDec(t, "-24.20", res.AdjustmentsAmount)
	assertDec(t, "217.80", res.FinalRate)
	require.Len(t, res.Adjustments, 1)
	assert.Equal(t, catalog.AdjustmentID("comm10"), res.Adjustments[0].ID)
	assertDec(t, "-24.20", res.Adjustments[0].Amount)
}

func TestDiscountAfterCommission(t *testing.T) {
	in := baseInput()
	in.SelectedAdjustments = []catalog.AdjustmentID{"comm10"}
	in.Discount = dec("50")

	res, err := newFixture().engine().Calculate(context.Background(), in)
	require.NoError(t, err)

	assertDec(t, "217.80", res.AdjustedRate)
	assertDec(t, "108.90", res.DiscountAmount)
	assertDec(t, "108.90", res.FinalRate)
}

func TestMissingBaseRatePricesFromZero(t *testing.T) {
	f := newFixture()
	delete(f.series, "2026-11-02")

	res, err := f.engine().Calculate(context.Background(), baseInput())
	require.NoError(t, err)

	require.Len(t, res.DailyBreakdown, 2)
	first := res.DailyBreakdown[0]
	assert.True(t, first.Missing)
	assertDec(t, "0", first.BaseRate)
	// (0*1.0+10)*1.1
	assertDec(t, "11.00", first.CalculatedRate)
	assertDec(t, "121.00", res.DailyBreakdown[1].CalculatedRate)
	assertDec(t, "132.00", res.Subtotal)
	assert.Equal(t, 1, res.MissingNights())

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningMissingBaseRate, res.Warnings[0].Code)
	assert.Equal(t, arrival, res.Warnings[0].Date)
}

func TestAdjustmentPlanFilter(t *testing.T) {
	f := newFixture()
	in := baseInput()
	in.PlanID = "travco"
	in.SelectedAdjustments = []catalog.AdjustmentID{"comm10"}

	res, err := f.engine().Calculate(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, res.Adjustments)
	assert.True(t, res.Subtotal.Equal(res.FinalRate))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningAdjustmentNotApplicable, res.Warnings[0].Code)

	in.PlanID = "ota-flex"
	res, err = f.engine().Calculate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Adjustments, 1)
	assert.Empty(t, res.Warnings)
}

func TestPlanBaseSourceDrivesFetch(t *testing.T) {
	in := baseInput()
	in.PlanID = "travco"

	res, err := newFixture().engine().Calculate(context.Background(), in)
	require.NoError(t, err)

	for _, night := range res.DailyBreakdown {
		assert.Equal(t, rates.SourceTravco, night.BaseSource)
		assertDec(t, "80", night.BaseRate)
		assertDec(t, "90.00", night.CalculatedRate)
	}
}

func TestCommissionsCompoundInSelectionOrder(t *testing.T) {
	in := baseInput()
	in.SelectedAdjustments = []catalog.AdjustmentID{"comm10", "comm20"}

	res, err := newFixture().engine().Calculate(context.Background(), in)
	require.NoError(t, err)

	// 242 -> 217.80 -> 174.24
	assertDec(t, "174.24", res.AdjustedRate)
	assertDec(t, "-67.76", res.AdjustmentsAmount)
	require.Len(t, res.Adjustments, 2)
	assertDec(t, "-24.20", res.Adjustments[0].Amount)
	assertDec(t, "-43.56", res.Adjustments[1].Amount)
}

func TestFixedAdjustments(t *testing.T) {
	in := baseInput()
	in.SelectedAdjustments = []catalog.AdjustmentID{"fee", "reduce"}

	res, err := newFixture().engine().Calculate(context.Background(), in)
	require.NoError(t, err)

	assertDec(t, "227.00", res.AdjustedRate)
	assertDec(t, "-15", res.AdjustmentsAmount)
}

func TestSkippedAdjustmentsWarn(t *testing.T) {
	in := baseInput()
	in.SelectedAdjustments = []catalog.AdjustmentID{"missing", "novalue", "label", "other", "fee", "fee"}

	res, err := newFixture().engine().Calculate(context.Background(), in)
	require.NoError(t, err)

	codes := make([]WarningCode, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []WarningCode{
		WarningUnknownAdjustment,
		WarningInvalidAdjustmentValue,
		WarningAdjustmentNotApplicable,
		WarningAdjustmentNotApplicable,
		WarningDuplicateAdjustment,
	}, codes)
	require.Len(t, res.Adjustments, 1)
	assertDec(t, "257.00", res.FinalRate)
}

func TestDiscountBounds(t *testing.T) {
	in := baseInput()
	in.Discount = dec("100")
	res, err := newFixture().engine().Calculate(context.Background(), in)
	require.NoError(t, err)
	assertDec(t, "0", res.FinalRate)
	assertDec(t, "242.00", res.DiscountAmount)

	for _, bad := range []string{"-0.01", "100.5"} {
		in.Discount = dec(bad)
		_, err := newFixture().engine().Calculate(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{name: "no arrival", mutate: func(in *Input) { in.ArrivalDate = time.Time{} }},
		{name: "zero nights", mutate: func(in *Input) { in.Nights = 0 }},
		{name: "too many nights", mutate: func(in *Input) { in.Nights = 31 }},
		{name: "no partner", mutate: func(in *Input) { in.PartnerID = " " }},
		{name: "no plan", mutate: func(in *Input) { in.PlanID = "" }},
		{name: "no category", mutate: func(in *Input) { in.CategoryID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.mutate(&in)
			_, err := newFixture().engine().Calculate(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestMissingRules(t *testing.T) {
	in := baseInput()
	in.PlanID = "nope"
	_, err := newFixture().engine().Calculate(context.Background(), in)
	assert.ErrorIs(t, err, ErrMissingPlanRule)

	in = baseInput()
	in.CategoryID = "nope"
	_, err = newFixture().engine().Calculate(context.Background(), in)
	assert.ErrorIs(t, err, ErrMissingCategoryRule)
}

func TestRateLookupFailureAborts(t *testing.T) {
	f := newFixture()
	f.rateErr = errors.New("store down")
	_, err := f.engine().Calculate(context.Background(), baseInput())
	assert.ErrorContains(t, err, "store down")
}

func TestNotConfigured(t *testing.T) {
	_, err := Engine{}.Calculate(context.Background(), baseInput())
	assert.ErrorIs(t, err, ErrEngineNotConfigured)
}

func TestResultProperties(t *testing.T) {
	f := newFixture()
	f.series.Put(rates.DailyBaseRate{Date: time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC), OTA: decimal.NewNullDecimal(dec("133.337"))})
	engine := f.engine()

	for nights := 1; nights <= 10; nights++ {
		in := baseInput()
		in.Nights = nights
		in.Discount = dec("12.5")
		in.SelectedAdjustments = []catalog.AdjustmentID{"comm10", "fee"}

		first, err := engine.Calculate(context.Background(), in)
		require.NoError(t, err)
		second, err := engine.Calculate(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, first.FinalRate.Equal(second.FinalRate), "deterministic")
		assert.Equal(t, len(first.Warnings), len(second.Warnings))

		require.Len(t, first.DailyBreakdown, nights)
		assert.Equal(t, in.ArrivalDate.AddDate(0, 0, nights), first.DepartureDate)

		sum := decimal.Zero
		for i, night := range first.DailyBreakdown {
			assert.Equal(t, in.ArrivalDate.AddDate(0, 0, i), night.Date)
			assert.True(t, night.CalculatedRate.Equal(night.CalculatedRate.Round(RatePrecision)))
			sum = sum.Add(night.CalculatedRate)
		}
		assert.True(t, sum.Equal(first.Subtotal), "subtotal is the sum of nights")
		assert.True(t, first.Subtotal.Add(first.AdjustmentsAmount).Equal(first.AdjustedRate))
		assert.True(t, first.AdjustedRate.Sub(first.DiscountAmount).Equal(first.FinalRate))
	}
}
