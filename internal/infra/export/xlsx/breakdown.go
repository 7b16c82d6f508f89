package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"ratedesk/internal/app/dto"
)

const (
	SheetBreakdown = "Breakdown"
	SheetSummary   = "Summary"
	ContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var breakdownHeader = []any{"date", "base_source", "base_rate", "calculated_rate", "missing"}

// Breakdown renders a calculation as a workbook: one row per night on the first sheet,
// totals, adjustments and warnings on the second.
func Breakdown(res dto.CalculationResult) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetBreakdown); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if err := writeNights(f, res); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, fmt.Errorf("xlsx: new sheet: %w", err)
	}
	if err := writeSummary(f, res); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("xlsx: write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeNights(f *excelize.File, res dto.CalculationResult) error {
	header := breakdownHeader
	if err := f.SetSheetRow(SheetBreakdown, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}
	row := 2
	for _, n := range res.DailyBreakdown {
		base, _ := n.BaseRate.Float64()
		rate, _ := n.CalculatedRate.Float64()
		values := []any{n.Date, n.BaseSource, base, rate, n.Missing}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("xlsx: cell: %w", err)
		}
		if err := f.SetSheetRow(SheetBreakdown, cell, &values); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", row, err)
		}
		row++
	}
	total := []any{"subtotal", "", "", res.Subtotal.InexactFloat64(), ""}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx: cell: %w", err)
	}
	return f.SetSheetRow(SheetBreakdown, cell, &total)
}

func writeSummary(f *excelize.File, res dto.CalculationResult) error {
	rows := [][]any{
		{"partner", res.PartnerName},
		{"plan", res.PlanName},
		{"category", res.CategoryName},
		{"arrival_date", res.ArrivalDate},
		{"departure_date", res.DepartureDate},
		{"nights", res.Nights},
		{"subtotal", res.Subtotal.InexactFloat64()},
		{"adjustments_amount", res.AdjustmentsAmount.InexactFloat64()},
		{"adjusted_rate", res.AdjustedRate.InexactFloat64()},
		{"discount_percent", res.Discount.InexactFloat64()},
		{"discount_amount", res.DiscountAmount.InexactFloat64()},
		{"final_rate", res.FinalRate.InexactFloat64()},
	}
	for _, a := range res.Adjustments {
		rows = append(rows, []any{"adjustment", a.Description, a.Type, a.Amount.InexactFloat64()})
	}
	for _, w := range res.Warnings {
		rows = append(rows, []any{"warning", w.Code, w.Date, w.Message})
	}
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("xlsx: cell: %w", err)
		}
		v := values
		if err := f.SetSheetRow(SheetSummary, cell, &v); err != nil {
			return fmt.Errorf("xlsx: summary row %d: %w", i+1, err)
		}
	}
	return nil
}
