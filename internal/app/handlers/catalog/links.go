package catalog

import (
	"context"

	"ratedesk/internal/app/dto"
	"ratedesk/internal/app/refdata"
	domaincatalog "ratedesk/internal/domain/catalog"
)

const (
	partnerPlansKey       = "catalog.partner_plans"
	planCategoriesKey     = "catalog.plan_categories"
	partnerAdjustmentsKey = "catalog.partner_adjustments"
)

type PartnerPlansQuery struct {
	PartnerID string `validate:"required"`
}

func (PartnerPlansQuery) Key() string { return partnerPlansKey }

type PlanCategoriesQuery struct {
	PlanID string `validate:"required"`
}

func (PlanCategoriesQuery) Key() string { return planCategoriesKey }

// PartnerAdjustmentsQuery lists a partner's adjustments, narrowed to PlanID when it is set.
type PartnerAdjustmentsQuery struct {
	PartnerID string `validate:"required"`
	PlanID    string
}

func (PartnerAdjustmentsQuery) Key() string { return partnerAdjustmentsKey }

// LinkHandler answers the dependent selections: partner → plans → categories, and adjustments.
type LinkHandler struct {
	Reference refdata.Source
}

func (h LinkHandler) PartnerPlans(ctx context.Context, q PartnerPlansQuery) (dto.PlanList, error) {
	snap, err := refdata.Require(h.Reference)
	if err != nil {
		return dto.PlanList{}, err
	}
	id := domaincatalog.PartnerID(q.PartnerID)
	if _, ok := snap.Partner(id); !ok {
		return dto.PlanList{}, refdata.ErrUnknownPartner
	}
	return dto.MapPlans(snap.PartnerPlans(id)), nil
}

func (h LinkHandler) PlanCategories(ctx context.Context, q PlanCategoriesQuery) (dto.CategoryList, error) {
	snap, err := refdata.Require(h.Reference)
	if err != nil {
		return dto.CategoryList{}, err
	}
	id := domaincatalog.PlanID(q.PlanID)
	if _, ok := snap.Plan(id); !ok {
		return dto.CategoryList{}, refdata.ErrUnknownPlan
	}
	return dto.MapCategories(snap.PlanCategories(id)), nil
}

func (h LinkHandler) PartnerAdjustments(ctx context.Context, q PartnerAdjustmentsQuery) (dto.AdjustmentList, error) {
	snap, err := refdata.Require(h.Reference)
	if err != nil {
		return dto.AdjustmentList{}, err
	}
	id := domaincatalog.PartnerID(q.PartnerID)
	if _, ok := snap.Partner(id); !ok {
		return dto.AdjustmentList{}, refdata.ErrUnknownPartner
	}
	return dto.MapAdjustments(snap.PartnerAdjustments(id, domaincatalog.PlanID(q.PlanID))), nil
}
