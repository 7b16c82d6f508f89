package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratedesk/internal/app/dto"
	"ratedesk/internal/app/queries"
	"ratedesk/internal/app/refdata"
	"ratedesk/internal/app/refdata/refdatatest"
)

func bus() *queries.InMemoryBus {
	b := queries.NewInMemoryBus()
	Register(b, refdatatest.Holder())
	return b
}

func TestRegisterBindsEveryQuery(t *testing.T) {
	assert.Equal(t, []string{
		"catalog.categories",
		"catalog.partner_adjustments",
		"catalog.partner_plans",
		"catalog.partners",
		"catalog.plan_categories",
		"catalog.plans",
	}, bus().Keys())
}

func TestLists(t *testing.T) {
	ctx := context.Background()
	b := bus()

	partners, err := queries.Ask[ListPartnersQuery, dto.PartnerList](ctx, b, ListPartnersQuery{})
	require.NoError(t, err)
	require.Len(t, partners.Items, 2)
	assert.Equal(t, "Booking.com", partners.Items[0].Name)

	plans, err := queries.Ask[ListPlansQuery, dto.PlanList](ctx, b, ListPlansQuery{})
	require.NoError(t, err)
	require.Len(t, plans.Items, 2)
	assert.Equal(t, "OTA-FLEX", plans.Items[0].Code)

	cats, err := queries.Ask[ListCategoriesQuery, dto.CategoryList](ctx, b, ListCategoriesQuery{})
	require.NoError(t, err)
	assert.Len(t, cats.Items, 2)
}

func TestPartnerPlans(t *testing.T) {
	h := LinkHandler{Reference: refdatatest.Holder()}

	plans, err := h.PartnerPlans(context.Background(), PartnerPlansQuery{PartnerID: "travco"})
	require.NoError(t, err)
	require.Len(t, plans.Items, 1)
	assert.Equal(t, "TRAVCO-STD", plans.Items[0].Code)

	_, err = h.PartnerPlans(context.Background(), PartnerPlansQuery{PartnerID: "nobody"})
	assert.ErrorIs(t, err, refdata.ErrUnknownPartner)
}

func TestPlanCategories(t *testing.T) {
	h := LinkHandler{Reference: refdatatest.Holder()}

	cats, err := h.PlanCategories(context.Background(), PlanCategoriesQuery{PlanID: "travco-std"})
	require.NoError(t, err)
	assert.Len(t, cats.Items, 2)

	_, err = h.PlanCategories(context.Background(), PlanCategoriesQuery{PlanID: "nope"})
	assert.ErrorIs(t, err, refdata.ErrUnknownPlan)
}

func TestPartnerAdjustments(t *testing.T) {
	h := LinkHandler{Reference: refdatatest.Holder()}
	ctx := context.Background()

	all, err := h.PartnerAdjustments(ctx, PartnerAdjustmentsQuery{PartnerID: "booking"})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	comm := all.Items[0]
	assert.Equal(t, "comm", comm.ID)
	require.NotNil(t, comm.Value)
	assert.Equal(t, "10", *comm.Value)
	assert.Equal(t, "OTA-*", comm.PlanFilter)
	assert.True(t, comm.DefaultChecked)

	filtered, err := h.PartnerAdjustments(ctx, PartnerAdjustmentsQuery{PartnerID: "booking", PlanID: "travco-std"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "fee", filtered.Items[0].ID)

	_, err = h.PartnerAdjustments(ctx, PartnerAdjustmentsQuery{PartnerID: "ghost"})
	assert.ErrorIs(t, err, refdata.ErrUnknownPartner)
}

func TestListsBeforeLoad(t *testing.T) {
	h := ListHandler{Reference: refdata.NewHolder(nil, nil)}
	_, err := h.Partners(context.Background(), ListPartnersQuery{})
	assert.ErrorIs(t, err, refdata.ErrNotLoaded)
}
