package handlers

import (
	"net/http"

	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ProviderHandler struct {
	*BaseHandler
	providerService services.ProviderService
}

func NewProviderHandler(base *BaseHandler, providerService services.ProviderService) *ProviderHandler {
	return &ProviderHandler{
		BaseHandler:     base,
		providerService: providerService,
	}
}

func (h *ProviderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// Public routes - справочник
	providers := rg.Group("/providers")
	{
		providers.GET("", h.ListProviders)
		providers.GET("/nearby", h.Nearby)
		providers.GET("/:id", h.GetProvider)
	}

	admin := rg.Group("/admin/providers", h.AdminOnly()...)
	{
		admin.GET("", h.AdminListProviders)
		admin.POST("", h.CreateProvider)
		admin.PUT("/:id", h.UpdateProvider)
		admin.DELETE("/:id", h.DeleteProvider)
	}
}

func (h *ProviderHandler) ListProviders(c *gin.Context) {
	h.list(c, false)
}

func (h *ProviderHandler) AdminListProviders(c *gin.Context) {
	h.list(c, true)
}

func (h *ProviderHandler) list(c *gin.Context, includeInactive bool) {
	var query dto.ListProvidersQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	result, err := h.providerService.ListProviders(h.GetDB(c), &query, includeInactive)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProviderHandler) GetProvider(c *gin.Context) {
	provider, err := h.providerService.GetProvider(h.GetDB(c), c.Param("id"), false)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

// Nearby godoc
// @Summary Поставщики рядом с точкой
// @Description Результат отсортирован по расстоянию, distance_km округлено до сотых.
// @Tags providers
// @Produce json
// @Param lat query number true "Широта"
// @Param lng query number true "Долгота"
// @Param radius_km query number false "Радиус, по умолчанию 10"
// @Param category query string false "Категория"
// @Param limit query int false "Максимум результатов, по умолчанию 20"
// @Success 200 {array} dto.ProviderResponse
// @Router /providers/nearby [get]
func (h *ProviderHandler) Nearby(c *gin.Context) {
	var query dto.NearbyProvidersQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	providers, err := h.providerService.Nearby(h.GetDB(c), &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"providers": providers,
		"total":     len(providers),
	})
}

// --- Admin ---

func (h *ProviderHandler) CreateProvider(c *gin.Context) {
	var req dto.CreateProviderRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	provider, err := h.providerService.CreateProvider(h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, provider)
}

func (h *ProviderHandler) UpdateProvider(c *gin.Context) {
	var req dto.UpdateProviderRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	provider, err := h.providerService.UpdateProvider(h.GetDB(c), c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

func (h *ProviderHandler) DeleteProvider(c *gin.Context) {
	if err := h.providerService.DeleteProvider(h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
