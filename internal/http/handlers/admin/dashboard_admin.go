package admin

import (
	"strconv"

	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 获取结算概览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	overview, err := h.DashboardService.GetOverview(c.Request.Context(), service.DashboardQueryInput{
		Days:         days,
		ForceRefresh: c.Query("force_refresh") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch dashboard overview failed", err)
		return
	}
	response.Success(c, overview)
}

// GetDashboardTrends 获取按天结算趋势
func (h *Handler) GetDashboardTrends(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	trends, err := h.DashboardService.GetTrends(c.Request.Context(), service.DashboardQueryInput{
		Days:         days,
		ForceRefresh: c.Query("force_refresh") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch dashboard trends failed", err)
		return
	}
	response.Success(c, trends)
}
