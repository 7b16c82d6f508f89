package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"ratedesk/internal/app/middleware"
	"ratedesk/internal/app/refdata"
	"ratedesk/internal/app/sequence"
	"ratedesk/internal/domain/pricing"
)

var selectionErrors = []error{
	refdata.ErrUnknownPartner,
	refdata.ErrUnknownPlan,
	refdata.ErrUnknownCategory,
	refdata.ErrPlanNotOffered,
	refdata.ErrCategoryNotOffered,
	pricing.ErrMissingPlanRule,
	pricing.ErrMissingCategoryRule,
}

// statusFor maps application errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, middleware.ErrValidation), errors.Is(err, pricing.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, sequence.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, refdata.ErrNotLoaded):
		return http.StatusServiceUnavailable
	}
	for _, target := range selectionErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
