package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ratedesk/internal/app/dto"
	ratesapp "ratedesk/internal/app/handlers/rates"
	"ratedesk/internal/app/queries"
	"ratedesk/internal/domain/shared/daterange"
	"ratedesk/internal/infra/export/xlsx"
)

// ClientSessionHeader groups a client's calculate calls for latest-wins ordering.
const ClientSessionHeader = "X-Client-Session"

type calculateRequest struct {
	ArrivalDate         string          `json:"arrivalDate"`
	Nights              int             `json:"nights"`
	PartnerID           string          `json:"partnerId"`
	PlanID              string          `json:"planId"`
	CategoryID          string          `json:"categoryId"`
	Discount            decimal.Decimal `json:"discount"`
	SelectedAdjustments []string        `json:"selectedAdjustments"`
}

type RatesHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h RatesHandler) Calculate(c *gin.Context) {
	res, ok := h.calculate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h RatesHandler) Export(c *gin.Context) {
	res, ok := h.calculate(c)
	if !ok {
		return
	}
	body, err := xlsx.Breakdown(res)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	name := "rate-" + res.ArrivalDate + ".xlsx"
	if res.QuoteID != "" {
		name = "rate-" + res.QuoteID + ".xlsx"
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsx.ContentType, body)
}

func (h RatesHandler) calculate(c *gin.Context) (dto.CalculationResult, bool) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return dto.CalculationResult{}, false
	}
	var arrival time.Time
	if raw := strings.TrimSpace(req.ArrivalDate); raw != "" {
		parsed, err := daterange.ParseDateKey(raw)
		if err != nil {
			badRequest(c, "arrivalDate must be YYYY-MM-DD")
			return dto.CalculationResult{}, false
		}
		arrival = parsed
	}
	query := ratesapp.CalculateRateQuery{
		ArrivalDate:         arrival,
		Nights:              req.Nights,
		PartnerID:           strings.TrimSpace(req.PartnerID),
		PlanID:              strings.TrimSpace(req.PlanID),
		CategoryID:          strings.TrimSpace(req.CategoryID),
		Discount:            req.Discount,
		SelectedAdjustments: trimAll(req.SelectedAdjustments),
		ClientSession:       c.GetHeader(ClientSessionHeader),
	}
	res, err := queries.Ask[ratesapp.CalculateRateQuery, dto.CalculationResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return dto.CalculationResult{}, false
	}
	return res, true
}

func trimAll(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strings.TrimSpace(id)
	}
	return out
}

var _ RatesHTTP = RatesHandler{}
