package xlsx

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ratedesk/internal/app/dto"
)

func sampleResult() dto.CalculationResult {
	return dto.CalculationResult{
		QuoteID:           "q-1",
		PartnerName:       "Booking.com",
		PlanName:          "OTA-FLEX",
		CategoryName:      "Standard",
		ArrivalDate:       "2026-11-02",
		DepartureDate:     "2026-11-04",
		Nights:            2,
		Subtotal:          decimal.RequireFromString("221"),
		AdjustedRate:      decimal.RequireFromString("198.9"),
		FinalRate:         decimal.RequireFromString("198.9"),
		AdjustmentsAmount: decimal.RequireFromString("-22.1"),
		DailyBreakdown: []dto.NightRate{
			{Date: "2026-11-02", BaseSource: "ota_rate", BaseRate: decimal.NewFromInt(100), CalculatedRate: decimal.NewFromInt(121)},
			{Date: "2026-11-03", BaseSource: "ota_rate", CalculatedRate: decimal.NewFromInt(100), Missing: true},
		},
		Adjustments: []dto.AppliedAdjustment{
			{ID: "comm", Description: "Commission", Type: "percentage_commission", Amount: decimal.RequireFromString("-22.1")},
		},
		Warnings: []dto.Warning{{Code: "missing_base_rate", Date: "2026-11-03", Message: "no base rate"}},
	}
}

func TestBreakdown(t *testing.T) {
	b, err := Breakdown(sampleResult())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetBreakdown, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetBreakdown)
	require.NoError(t, err)
	require.Len(t, rows, 4, "header, two nights and the subtotal")
	assert.Equal(t, []string{"date", "base_source", "base_rate", "calculated_rate", "missing"}, rows[0])
	assert.Equal(t, "2026-11-02", rows[1][0])
	assert.Equal(t, "121", rows[1][3])
	assert.Equal(t, "TRUE", rows[2][4])
	assert.Equal(t, "subtotal", rows[3][0])
	assert.Equal(t, "221", rows[3][3])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	labels := make([]string, 0, len(summary))
	for _, r := range summary {
		labels = append(labels, r[0])
	}
	assert.Contains(t, labels, "final_rate")
	assert.Contains(t, labels, "adjustment")
	assert.Contains(t, labels, "warning")
	assert.Equal(t, []string{"partner", "Booking.com"}, summary[0])
}

func TestBreakdownEmptyResult(t *testing.T) {
	b, err := Breakdown(dto.CalculationResult{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetBreakdown)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
