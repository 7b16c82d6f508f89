package catalog

import (
	"context"

	"ratedesk/internal/app/dto"
	"ratedesk/internal/app/queries"
	"ratedesk/internal/app/refdata"
)

const (
	listPartnersKey   = "catalog.partners"
	listPlansKey      = "catalog.plans"
	listCategoriesKey = "catalog.categories"
)

type ListPartnersQuery struct{}

func (ListPartnersQuery) Key() string { return listPartnersKey }

type ListPlansQuery struct{}

func (ListPlansQuery) Key() string { return listPlansKey }

type ListCategoriesQuery struct{}

func (ListCategoriesQuery) Key() string { return listCategoriesKey }

// ListHandler serves the flat reference lists.
type ListHandler struct {
	Reference refdata.Source
}

func (h ListHandler) Partners(ctx context.Context, _ ListPartnersQuery) (dto.PartnerList, error) {
	snap, err := refdata.Require(h.Reference)
	if err != nil {
		return dto.PartnerList{}, err
	}
	return dto.MapPartners(snap.Partners()), nil
}

func (h ListHandler) Plans(ctx context.Context, _ ListPlansQuery) (dto.PlanList, error) {
	snap, err := refdata.Require(h.Reference)
	if err != nil {
		return dto.PlanList{}, err
	}
	return dto.MapPlans(snap.Plans()), nil
}

func (h ListHandler) Categories(ctx context.Context, _ ListCategoriesQuery) (dto.CategoryList, error) {
	snap, err := refdata.Require(h.Reference)
	if err != nil {
		return dto.CategoryList{}, err
	}
	return dto.MapCategories(snap.Categories()), nil
}

// Register binds every catalog query to bus.
func Register(bus *queries.InMemoryBus, ref refdata.Source) {
	lists := ListHandler{Reference: ref}
	queries.RegisterHandler[ListPartnersQuery, dto.PartnerList](bus, queries.HandlerFunc[ListPartnersQuery, dto.PartnerList](lists.Partners))
	queries.RegisterHandler[ListPlansQuery, dto.PlanList](bus, queries.HandlerFunc[ListPlansQuery, dto.PlanList](lists.Plans))
	queries.RegisterHandler[ListCategoriesQuery, dto.CategoryList](bus, queries.HandlerFunc[ListCategoriesQuery, dto.CategoryList](lists.Categories))

	links := LinkHandler{Reference: ref}
	queries.RegisterHandler[PartnerPlansQuery, dto.PlanList](bus, queries.HandlerFunc[PartnerPlansQuery, dto.PlanList](links.PartnerPlans))
	queries.RegisterHandler[PlanCategoriesQuery, dto.CategoryList](bus, queries.HandlerFunc[PlanCategoriesQuery, dto.CategoryList](links.PlanCategories))
	queries.RegisterHandler[PartnerAdjustmentsQuery, dto.AdjustmentList](bus, queries.HandlerFunc[PartnerAdjustmentsQuery, dto.AdjustmentList](links.PartnerAdjustments))
}
