package services

import (
	"time"

	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/email"
	"nutriplan_backend/internal/imageprocessor"
	"nutriplan_backend/internal/queue"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/storage"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService          AuthService
	UserService          UserService
	PlanService          PlanService
	SubscriptionService  SubscriptionService
	NutritionPlanService NutritionPlanService
	ChatService          ChatService
	ProviderService      ProviderService
	PhotoService         PhotoService
	AnalyticsService     AnalyticsService
	MaintenanceService   MaintenanceService
	EmailService         email.Provider
}

// Dependencies - внешние компоненты, из которых собираются сервисы
type Dependencies struct {
	TokenMaker     auth.Maker
	RefreshTTL     time.Duration
	EmailProvider  email.Provider
	PlanCache      PlanCache
	ChatQueue      queue.Queue
	Storage        storage.Storage
	ImageProcessor *imageprocessor.Processor
	PhotoLimits    PhotoLimits
	FreeTier       FreeTier
}

// NewServiceContainer собирает сервисы поверх stateless-репозиториев
func NewServiceContainer(deps Dependencies) *ServiceContainer {
	userRepo := repositories.NewUserRepository()
	roleRepo := repositories.NewRoleRepository()
	refreshTokenRepo := repositories.NewRefreshTokenRepository()
	subscriptionRepo := repositories.NewSubscriptionRepository()
	nutritionRepo := repositories.NewNutritionPlanRepository()
	chatRepo := repositories.NewChatRepository()
	providerRepo := repositories.NewServiceProviderRepository()
	photoRepo := repositories.NewUserPhotoRepository()
	analyticsRepo := repositories.NewAnalyticsRepository()

	subscriptionService := NewSubscriptionService(subscriptionRepo, userRepo, deps.EmailProvider, deps.FreeTier)

	return &ServiceContainer{
		AuthService: NewAuthService(
			userRepo, roleRepo, refreshTokenRepo,
			subscriptionService, deps.TokenMaker, deps.RefreshTTL, deps.EmailProvider,
		),
		UserService:          NewUserService(userRepo, roleRepo, refreshTokenRepo),
		PlanService:          NewPlanService(subscriptionRepo, deps.PlanCache),
		SubscriptionService:  subscriptionService,
		NutritionPlanService: NewNutritionPlanService(nutritionRepo),
		ChatService:          NewChatService(chatRepo, deps.ChatQueue),
		ProviderService:      NewProviderService(providerRepo),
		PhotoService:         NewPhotoService(photoRepo, deps.ImageProcessor, deps.Storage, deps.PhotoLimits),
		AnalyticsService:     NewAnalyticsService(analyticsRepo, userRepo, nutritionRepo, chatRepo, providerRepo),
		MaintenanceService:   NewMaintenanceService(refreshTokenRepo),
		EmailService:         deps.EmailProvider,
	}
}
