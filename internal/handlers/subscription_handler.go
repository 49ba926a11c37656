package handlers

import (
	"net/http"

	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	*BaseHandler
	subscriptionService services.SubscriptionService
}

func NewSubscriptionHandler(base *BaseHandler, subscriptionService services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:         base,
		subscriptionService: subscriptionService,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// Protected routes - подписки пользователя
	subscriptions := rg.Group("/subscriptions", h.Authenticated()...)
	{
		subscriptions.POST("", h.CreateSubscription)
		subscriptions.GET("/my", h.GetMySubscriptions)
		subscriptions.GET("/my/active", h.GetActiveSubscription)
		subscriptions.PUT("/:id/cancel", h.CancelSubscription)
	}

	// Admin routes - рассмотрение заявок
	admin := rg.Group("/admin/subscriptions", h.AdminOnly()...)
	{
		admin.GET("", h.ListSubscriptions)
		admin.PUT("/:id/approve", h.ApproveSubscription)
		admin.PUT("/:id/reject", h.RejectSubscription)
	}
}

// CreateSubscription godoc
// @Summary Заявка на подписку
// @Description Создает заявку в статусе PENDING со снимком цены тарифа.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSubscriptionRequest true "Тариф"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 409 {object} apperrors.ErrorResponse "Уже есть заявка на этот тариф"
// @Router /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateSubscriptionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	sub, err := h.subscriptionService.RequestSubscription(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *SubscriptionHandler) GetMySubscriptions(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	subs, err := h.subscriptionService.GetUserSubscriptions(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscriptions": subs,
		"total":         len(subs),
	})
}

func (h *SubscriptionHandler) GetActiveSubscription(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.GetActiveSubscription(h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.CancelSubscription(h.GetDB(c), userID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// --- Admin ---

func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	var query dto.ListSubscriptionsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	result, err := h.subscriptionService.ListSubscriptions(h.GetDB(c), &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ApproveSubscription godoc
// @Summary Одобрить заявку
// @Description Остальные одобренные подписки пользователя отменяются в той же транзакции.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID подписки"
// @Success 200 {object} dto.ApproveResponse
// @Failure 409 {object} apperrors.ErrorResponse "Заявка не в статусе PENDING"
// @Router /admin/subscriptions/{id}/approve [put]
func (h *SubscriptionHandler) ApproveSubscription(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	result, err := h.subscriptionService.ApproveSubscription(h.GetDB(c), adminID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SubscriptionHandler) RejectSubscription(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.RejectSubscriptionRequest
	if c.Request.ContentLength != 0 && !h.BindAndValidate_JSON(c, &req) {
		return
	}

	sub, err := h.subscriptionService.RejectSubscription(h.GetDB(c), adminID, c.Param("id"), req.Reason)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
