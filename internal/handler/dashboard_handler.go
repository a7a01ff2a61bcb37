package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liyun-dev/campus-sis-api/internal/service"
	"github.com/liyun-dev/campus-sis-api/pkg/response"
)

// DashboardHandler exposes the admin overview endpoint.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Admin dashboard summary
// @Description Totals per entity, orphaned student accounts and recent registrations
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, fromCache, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cached": fromCache})
}
