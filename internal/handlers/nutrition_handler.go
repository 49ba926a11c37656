package handlers

import (
	"net/http"

	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type NutritionHandler struct {
	*BaseHandler
	nutritionService services.NutritionPlanService
}

func NewNutritionHandler(base *BaseHandler, nutritionService services.NutritionPlanService) *NutritionHandler {
	return &NutritionHandler{
		BaseHandler:      base,
		nutritionService: nutritionService,
	}
}

func (h *NutritionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	plans := rg.Group("/nutrition-plans", h.Authenticated()...)
	{
		plans.POST("", h.CreatePlan)
		plans.GET("", h.ListPlans)
		plans.GET("/stats", h.GetStats)
		plans.GET("/date/:date", h.GetPlanByDate)
		plans.GET("/:id", h.GetPlan)
		plans.PUT("/:id", h.UpdatePlan)
		plans.PUT("/:id/complete", h.SetCompleted)
		plans.DELETE("/:id", h.DeletePlan)
	}
}

// CreatePlan godoc
// @Summary Создать план питания на дату
// @Description Лимит планов в месяц берется из тарифа в access-токене. 0 - без ограничений.
// @Tags nutrition
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateNutritionPlanRequest true "План"
// @Success 201 {object} dto.NutritionPlanResponse
// @Failure 403 {object} apperrors.ErrorResponse "Лимит тарифа исчерпан"
// @Failure 409 {object} apperrors.ErrorResponse "План на эту дату уже есть"
// @Router /nutrition-plans [post]
func (h *NutritionHandler) CreatePlan(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateNutritionPlanRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	plan, err := h.nutritionService.CreatePlan(h.GetDB(c), userID, h.NutritionLimit(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// ListPlans godoc
// @Summary Планы питания текущего пользователя
// @Tags nutrition
// @Produce json
// @Security BearerAuth
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param completed query bool false "Фильтр по выполнению"
// @Param page query int false "Страница"
// @Param page_size query int false "Размер страницы"
// @Success 200 {object} dto.PaginatedResponse
// @Router /nutrition-plans [get]
func (h *NutritionHandler) ListPlans(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.ListNutritionPlansQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	result, err := h.nutritionService.ListPlans(h.GetDB(c), userID, &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *NutritionHandler) GetPlan(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	plan, err := h.nutritionService.GetPlan(h.GetDB(c), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *NutritionHandler) GetPlanByDate(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	plan, err := h.nutritionService.GetPlanByDate(h.GetDB(c), userID, c.Param("date"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *NutritionHandler) UpdatePlan(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateNutritionPlanRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	plan, err := h.nutritionService.UpdatePlan(h.GetDB(c), userID, c.Param("id"), h.NutritionLimit(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *NutritionHandler) SetCompleted(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SetCompletedRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	plan, err := h.nutritionService.SetCompleted(h.GetDB(c), userID, c.Param("id"), *req.Completed)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *NutritionHandler) DeletePlan(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.nutritionService.DeletePlan(h.GetDB(c), userID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NutritionHandler) GetStats(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.NutritionStatsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	stats, err := h.nutritionService.GetStats(h.GetDB(c), userID, &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
