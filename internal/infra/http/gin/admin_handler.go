package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"ratedesk/internal/app/commands"
	"ratedesk/internal/app/dto"
	"ratedesk/internal/app/handlers/reference"
)

type AdminHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type reloadRequest struct {
	Reason string `json:"reason"`
}

// Reload rebuilds the reference snapshot. The body is optional.
func (h AdminHandler) Reload(c *gin.Context) {
	var req reloadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "admin request"
	}
	res, err := commands.Dispatch[reference.ReloadReferenceCommand, dto.ReferenceReload](c.Request.Context(), h.Commands, reference.ReloadReferenceCommand{Reason: req.Reason})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

var _ AdminHTTP = AdminHandler{}
