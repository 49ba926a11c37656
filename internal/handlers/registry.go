package handlers

import "github.com/gin-gonic/gin"

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	UserHandler         *UserHandler
	PhotoHandler        *PhotoHandler
	PlanHandler         *PlanHandler
	SubscriptionHandler *SubscriptionHandler
	NutritionHandler    *NutritionHandler
	ChatHandler         *ChatHandler
	ProviderHandler     *ProviderHandler
	AnalyticsHandler    *AnalyticsHandler
}

// RegisterRoutes регистрирует маршруты всех хэндлеров в группе /api/v1
func (a *AppHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	a.AuthHandler.RegisterRoutes(rg)
	a.UserHandler.RegisterRoutes(rg)
	a.PhotoHandler.RegisterRoutes(rg)
	a.PlanHandler.RegisterRoutes(rg)
	a.SubscriptionHandler.RegisterRoutes(rg)
	a.NutritionHandler.RegisterRoutes(rg)
	a.ChatHandler.RegisterRoutes(rg)
	a.ProviderHandler.RegisterRoutes(rg)
	a.AnalyticsHandler.RegisterRoutes(rg)
}
