package handlers

import (
	"net/http"

	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	*BaseHandler
	planService services.PlanService
}

func NewPlanHandler(base *BaseHandler, planService services.PlanService) *PlanHandler {
	return &PlanHandler{
		BaseHandler: base,
		planService: planService,
	}
}

func (h *PlanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// Public routes - каталог тарифов
	plans := rg.Group("/plans")
	{
		plans.GET("", h.GetPlans)
		plans.GET("/:id", h.GetPlan)
	}

	admin := rg.Group("/admin/plans", h.AdminOnly()...)
	{
		admin.GET("", h.ListAllPlans)
		admin.GET("/:id", h.AdminGetPlan)
		admin.POST("", h.CreatePlan)
		admin.PUT("/:id", h.UpdatePlan)
		admin.DELETE("/:id", h.DeletePlan)
	}
}

// GetPlans godoc
// @Summary Активные тарифы
// @Tags plans
// @Produce json
// @Success 200 {array} dto.PlanResponse
// @Router /plans [get]
func (h *PlanHandler) GetPlans(c *gin.Context) {
	plans, err := h.planService.ListActivePlans(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plans": plans,
		"total": len(plans),
	})
}

func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.planService.GetPlan(h.GetDB(c), c.Param("id"), false)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// --- Admin ---

func (h *PlanHandler) ListAllPlans(c *gin.Context) {
	plans, err := h.planService.ListAllPlans(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plans": plans,
		"total": len(plans),
	})
}

func (h *PlanHandler) AdminGetPlan(c *gin.Context) {
	plan, err := h.planService.GetPlan(h.GetDB(c), c.Param("id"), true)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// CreatePlan godoc
// @Summary Создать тариф
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePlanRequest true "Тариф"
// @Success 201 {object} dto.PlanResponse
// @Failure 409 {object} apperrors.ErrorResponse "Имя занято"
// @Router /admin/plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req dto.CreatePlanRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	plan, err := h.planService.CreatePlan(h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	var req dto.UpdatePlanRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	plan, err := h.planService.UpdatePlan(h.GetDB(c), c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) DeletePlan(c *gin.Context) {
	deactivated, err := h.planService.DeletePlan(h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if deactivated {
		c.JSON(http.StatusOK, gin.H{
			"message":     "Plan has subscriptions and was deactivated",
			"deactivated": true,
		})
		return
	}
	c.Status(http.StatusNoContent)
}
