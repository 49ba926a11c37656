package handlers

import (
	"net/http"

	"nutriplan_backend/internal/middleware"
	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	*BaseHandler
	chatService services.ChatService
}

func NewChatHandler(base *BaseHandler, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		BaseHandler: base,
		chatService: chatService,
	}
}

func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	chat := rg.Group("/chat", h.Authenticated()...)
	{
		chat.POST("/messages", h.SendMessage)
		chat.GET("/sessions", h.ListSessions)
		chat.GET("/sessions/:sessionId/messages", h.ListMessages)
		chat.PUT("/sessions/:sessionId/read", h.MarkRead)
	}

	admin := rg.Group("/admin/chat", h.AdminOnly()...)
	{
		admin.GET("/sessions", h.ListAllSessions)
		admin.POST("/sessions/:sessionId/messages", h.Reply)
	}
}

// SendMessage godoc
// @Summary Отправить сообщение в чат
// @Description Сообщение сохраняется со статусом PENDING и обрабатывается асинхронно. Без session_id создается новая сессия.
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SendChatMessageRequest true "Сообщение"
// @Success 202 {object} dto.ChatMessageResponse
// @Failure 403 {object} apperrors.ErrorResponse "Чужая сессия"
// @Router /chat/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendChatMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	msg, err := h.chatService.SendMessage(h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.PageQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	result, err := h.chatService.ListSessions(h.GetDB(c), userID, &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.PageQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	result, err := h.chatService.ListMessages(h.GetDB(c), userID, middleware.IsAdmin(c), c.Param("sessionId"), &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	result, err := h.chatService.MarkRead(h.GetDB(c), userID, middleware.IsAdmin(c), c.Param("sessionId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Admin ---

func (h *ChatHandler) ListAllSessions(c *gin.Context) {
	var query dto.PageQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	result, err := h.chatService.ListAllSessions(h.GetDB(c), &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) Reply(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ReplyChatMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	msg, err := h.chatService.Reply(h.GetDB(c), adminID, c.Param("sessionId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}
