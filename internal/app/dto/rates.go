package dto

import (
	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/pricing"
	"ratedesk/internal/domain/shared/daterange"
)

// Decimals are encoded as JSON strings; dates as YYYY-MM-DD.

type NightRate struct {
	Date           string          `json:"date"`
	BaseRate       decimal.Decimal `json:"baseRate"`
	BaseSource     string          `json:"baseSource"`
	CalculatedRate decimal.Decimal `json:"calculatedRate"`
	Missing        bool            `json:"missing,omitempty"`
}

type AppliedAdjustment struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Amount      decimal.Decimal `json:"amount"`
}

type Warning struct {
	Code         string `json:"code"`
	Date         string `json:"date,omitempty"`
	AdjustmentID string `json:"adjustmentId,omitempty"`
	Message      string `json:"message"`
}

type CalculationResult struct {
	QuoteID           string              `json:"quoteId,omitempty"`
	FinalRate         decimal.Decimal     `json:"finalRate"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	AdjustmentsAmount decimal.Decimal     `json:"adjustmentsAmount"`
	DiscountAmount    decimal.Decimal     `json:"discountAmount"`
	AdjustedRate      decimal.Decimal     `json:"adjustedRate"`
	DailyBreakdown    []NightRate         `json:"dailyBreakdown"`
	Adjustments       []AppliedAdjustment `json:"adjustments"`
	ArrivalDate       string              `json:"arrivalDate"`
	DepartureDate     string              `json:"departureDate"`
	Nights            int                 `json:"nights"`
	PartnerID         string              `json:"partnerId"`
	PlanID            string              `json:"planId"`
	CategoryID        string              `json:"categoryId"`
	Discount          decimal.Decimal     `json:"discount"`
	PartnerName       string              `json:"partnerName"`
	PlanName          string              `json:"planName"`
	CategoryName      string              `json:"categoryName"`
	Warnings          []Warning           `json:"warnings"`
}

func MapCalculation(quoteID string, res pricing.Result) CalculationResult {
	out := CalculationResult{
		QuoteID:           quoteID,
		FinalRate:         res.FinalRate,
		Subtotal:          res.Subtotal,
		AdjustmentsAmount: res.AdjustmentsAmount,
		DiscountAmount:    res.DiscountAmount,
		AdjustedRate:      res.AdjustedRate,
		DailyBreakdown:    make([]NightRate, 0, len(res.DailyBreakdown)),
		Adjustments:       make([]AppliedAdjustment, 0, len(res.Adjustments)),
		ArrivalDate:       daterange.DateKey(res.ArrivalDate),
		DepartureDate:     daterange.DateKey(res.DepartureDate),
		Nights:            res.Nights,
		PartnerID:         string(res.PartnerID),
		PlanID:            string(res.PlanID),
		CategoryID:        string(res.CategoryID),
		Discount:          res.Discount,
		PartnerName:       res.PartnerName,
		PlanName:          res.PlanName,
		CategoryName:      res.CategoryName,
		Warnings:          make([]Warning, 0, len(res.Warnings)),
	}
	for _, n := range res.DailyBreakdown {
		out.DailyBreakdown = append(out.DailyBreakdown, NightRate{
			Date:           daterange.DateKey(n.Date),
			BaseRate:       n.BaseRate,
			BaseSource:     string(n.BaseSource),
			CalculatedRate: n.CalculatedRate,
			Missing:        n.Missing,
		})
	}
	for _, a := range res.Adjustments {
		out.Adjustments = append(out.Adjustments, AppliedAdjustment{
			ID:          string(a.ID),
			Description: a.Description,
			Type:        string(a.Kind),
			Value:       a.Value,
			Amount:      a.Amount,
		})
	}
	for _, w := range res.Warnings {
		mapped := Warning{Code: string(w.Code), AdjustmentID: string(w.AdjustmentID), Message: w.Message}
		if !w.Date.IsZero() {
			mapped.Date = daterange.DateKey(w.Date)
		}
		out.Warnings = append(out.Warnings, mapped)
	}
	return out
}
