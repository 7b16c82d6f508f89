package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"ratedesk/internal/app/dto"
	catalogapp "ratedesk/internal/app/handlers/catalog"
	"ratedesk/internal/app/queries"
)

type CatalogHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h CatalogHandler) Partners(c *gin.Context) {
	res, err := queries.Ask[catalogapp.ListPartnersQuery, dto.PartnerList](c.Request.Context(), h.Queries, catalogapp.ListPartnersQuery{})
	h.respond(c, res, err)
}

func (h CatalogHandler) Plans(c *gin.Context) {
	res, err := queries.Ask[catalogapp.ListPlansQuery, dto.PlanList](c.Request.Context(), h.Queries, catalogapp.ListPlansQuery{})
	h.respond(c, res, err)
}

func (h CatalogHandler) Categories(c *gin.Context) {
	res, err := queries.Ask[catalogapp.ListCategoriesQuery, dto.CategoryList](c.Request.Context(), h.Queries, catalogapp.ListCategoriesQuery{})
	h.respond(c, res, err)
}

func (h CatalogHandler) PartnerPlans(c *gin.Context) {
	q := catalogapp.PartnerPlansQuery{PartnerID: c.Param("id")}
	res, err := queries.Ask[catalogapp.PartnerPlansQuery, dto.PlanList](c.Request.Context(), h.Queries, q)
	h.respond(c, res, err)
}

func (h CatalogHandler) PlanCategories(c *gin.Context) {
	q := catalogapp.PlanCategoriesQuery{PlanID: c.Param("id")}
	res, err := queries.Ask[catalogapp.PlanCategoriesQuery, dto.CategoryList](c.Request.Context(), h.Queries, q)
	h.respond(c, res, err)
}

func (h CatalogHandler) PartnerAdjustments(c *gin.Context) {
	q := catalogapp.PartnerAdjustmentsQuery{PartnerID: c.Param("id"), PlanID: c.Query("plan_id")}
	res, err := queries.Ask[catalogapp.PartnerAdjustmentsQuery, dto.AdjustmentList](c.Request.Context(), h.Queries, q)
	h.respond(c, res, err)
}

func (h CatalogHandler) respond(c *gin.Context, res any, err error) {
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

var _ CatalogHTTP = CatalogHandler{}
