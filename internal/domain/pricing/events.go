package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"ratedesk/internal/domain/shared/daterange"
	"ratedesk/internal/domain/shared/events"
)

const EventRateQuoted = "rates.quoted"

// RateQuoted is emitted for every successful calculation. The aggregate is the partner.
type RateQuoted struct {
	events.BaseEvent `json:"-"`

	QuoteID             string          `json:"quote_id"`
	PartnerID           string          `json:"partner_id"`
	PlanID              string          `json:"plan_id"`
	CategoryID          string          `json:"category_id"`
	ArrivalDate         string          `json:"arrival_date"`
	Nights              int             `json:"nights"`
	Discount            decimal.Decimal `json:"discount"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	AdjustedRate        decimal.Decimal `json:"adjusted_rate"`
	FinalRate           decimal.Decimal `json:"final_rate"`
	SelectedAdjustments []string        `json:"selected_adjustments,omitempty"`
	Warnings            int             `json:"warnings"`
}

func NewRateQuoted(quoteID string, res Result, at time.Time) RateQuoted {
	applied := make([]string, 0, len(res.Adjustments))
	for _, adj := range res.Adjustments {
		applied = append(applied, string(adj.ID))
	}
	return RateQuoted{
		BaseEvent:           events.NewBase(EventRateQuoted, string(res.PartnerID), at),
		QuoteID:             quoteID,
		PartnerID:           string(res.PartnerID),
		PlanID:              string(res.PlanID),
		CategoryID:          string(res.CategoryID),
		ArrivalDate:         daterange.DateKey(res.ArrivalDate),
		Nights:              res.Nights,
		Discount:            res.Discount,
		Subtotal:            res.Subtotal,
		AdjustedRate:        res.AdjustedRate,
		FinalRate:           res.FinalRate,
		SelectedAdjustments: applied,
		Warnings:            len(res.Warnings),
	}
}
