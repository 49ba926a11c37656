package ws

import (
	"context"
	"net/http"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/middleware"
	"nutriplan_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	Manager  *WebSocketManager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler - пустой allowedOrigins разрешает любой Origin
func NewWebSocketHandler(manager *WebSocketManager, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		Manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
	}
}

// ServeWS ожидает, что AuthMiddleware уже проверил токен
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade сам пишет ответ клиенту
		logger.CtxWithError(c.Request.Context(), "WebSocket upgrade error", err)
		return
	}

	// контекст запроса отменится после выхода из хендлера, значения логгера нужны дольше
	ctx := context.WithoutCancel(c.Request.Context())
	client := newClient(h.Manager, conn, ctx, userID, middleware.IsAdmin(c))

	if !h.Manager.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"))
		conn.Close()
		return
	}
	logger.CtxInfo(ctx, "WebSocket client connected")

	go client.readPump()
	go client.writePump()
}
