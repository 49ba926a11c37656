package handlers

import (
	"net/http"

	"nutriplan_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	*BaseHandler
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(base *BaseHandler, analyticsService services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      base,
		analyticsService: analyticsService,
	}
}

func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", h.AdminOnly()...)
	{
		admin.GET("/dashboard", h.GetDashboard)
	}
}

// GetDashboard godoc
// @Summary Дашборд администратора
// @Description По умолчанию последние 30 дней.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Success 200 {object} dto.DashboardResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /admin/dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.analyticsService.GetDashboard(h.GetDB(c), c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
