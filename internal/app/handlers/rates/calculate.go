package rates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ratedesk/internal/app/dto"
	"ratedesk/internal/app/outbox"
	"ratedesk/internal/app/queries"
	"ratedesk/internal/app/refdata"
	"ratedesk/internal/domain/catalog"
	"ratedesk/internal/domain/pricing"
	domainrates "ratedesk/internal/domain/rates"
)

const calculateKey = "rates.calculate"

type CalculateRateQuery struct {
	ArrivalDate         time.Time       `validate:"required"`
	Nights              int             `validate:"min=1,max=30"`
	PartnerID           string          `validate:"required"`
	PlanID              string          `validate:"required"`
	CategoryID          string          `validate:"required"`
	Discount            decimal.Decimal `validate:"min=0,max=100"`
	SelectedAdjustments []string        `validate:"dive,required"`
	// ClientSession groups requests from one client for latest-wins ordering.
	ClientSession string
}

func (q CalculateRateQuery) Key() string { return calculateKey }

func (q CalculateRateQuery) SequenceKey() string { return q.ClientSession }

func (q CalculateRateQuery) input() pricing.Input {
	selected := make([]catalog.AdjustmentID, 0, len(q.SelectedAdjustments))
	for _, id := range q.SelectedAdjustments {
		selected = append(selected, catalog.AdjustmentID(id))
	}
	return pricing.Input{
		ArrivalDate:         q.ArrivalDate,
		Nights:              q.Nights,
		PartnerID:           catalog.PartnerID(q.PartnerID),
		PlanID:              catalog.PlanID(q.PlanID),
		CategoryID:          catalog.CategoryID(q.CategoryID),
		Discount:            q.Discount,
		SelectedAdjustments: selected,
	}
}

// WarningCounter counts degraded results by warning code.
type WarningCounter interface {
	CountWarning(code string)
}

type CalculateRateHandler struct {
	Reference refdata.Source
	// Rates overrides the snapshot's rate series when set (store point lookups).
	Rates    domainrates.Resolver
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Warnings WarningCounter
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *CalculateRateHandler) Handle(ctx context.Context, q CalculateRateQuery) (dto.CalculationResult, error) {
	snap, err := refdata.Require(h.Reference)
	if err != nil {
		return dto.CalculationResult{}, err
	}
	in := q.input()
	if err := snap.ValidateSelection(in.PartnerID, in.PlanID, in.CategoryID); err != nil {
		return dto.CalculationResult{}, fmt.Errorf("rates: selection %s/%s/%s: %w", in.PartnerID, in.PlanID, in.CategoryID, err)
	}

	res, err := snap.Engine(h.Rates).Calculate(ctx, in)
	if err != nil {
		return dto.CalculationResult{}, err
	}

	quoteID := uuid.NewString()
	for _, w := range res.Warnings {
		if h.Warnings != nil {
			h.Warnings.CountWarning(string(w.Code))
		}
		if h.Logger != nil {
			h.Logger.WarnContext(ctx, "rate calculation degraded",
				"quote_id", quoteID,
				"code", w.Code,
				"date", w.Date,
				"adjustment_id", w.AdjustmentID,
				"message", w.Message,
			)
		}
	}

	ev := pricing.NewRateQuoted(quoteID, res, h.now())
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, ev); err != nil && h.Logger != nil {
		// the quote stands even when the event cannot be queued
		h.Logger.ErrorContext(ctx, "record quote event failed", "quote_id", quoteID, "error", err)
	}
	return dto.MapCalculation(quoteID, res), nil
}

func (h *CalculateRateHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

var _ queries.Handler[CalculateRateQuery, dto.CalculationResult] = (*CalculateRateHandler)(nil)
