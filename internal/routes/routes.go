package routes

import (
	_ "nutriplan_backend/docs"
	"nutriplan_backend/internal/handlers"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/metrics"
	"nutriplan_backend/ws"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	healthHandler *handlers.HealthHandler,
	wsHandler *ws.WebSocketHandler,
	authMW gin.HandlerFunc,
) {
	// Служебные маршруты
	healthHandler.RegisterRoutes(ginRouter)
	ginRouter.GET("/metrics", metrics.Handler())
	ginRouter.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// HTTP API v1
	api := ginRouter.Group("/api/v1")
	appHandlers.RegisterRoutes(api)

	// WebSocket: токен в заголовке или ?token=
	ginRouter.GET("/ws", authMW, wsHandler.ServeWS)
	logger.Info("WebSocket route /ws registered")
}
