package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nutriplan_backend/database"
	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/cache"
	"nutriplan_backend/internal/config"
	"nutriplan_backend/internal/email"
	"nutriplan_backend/internal/handlers"
	"nutriplan_backend/internal/imageprocessor"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/metrics"
	"nutriplan_backend/internal/middleware"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/queue"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/routes"
	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/storage"
	"nutriplan_backend/internal/validator"
	"nutriplan_backend/internal/workers"
	"nutriplan_backend/pkg/apperrors"
	"nutriplan_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const cronJobTimeout = 5 * time.Minute

// Application - собранный сервер со всеми фоновыми компонентами
type Application struct {
	Router    *gin.Engine
	Services  *services.ServiceContainer
	WSManager *ws.WebSocketManager

	cfg        *config.Config
	db         *gorm.DB
	ctx        context.Context
	cancel     context.CancelFunc
	chatQueue  queue.Queue
	chatWorker *workers.ChatWorker
	planCache  *cache.Cache
	scheduler  *workers.Scheduler
}

// Run поднимает HTTP-сервер и ждет SIGINT/SIGTERM для graceful shutdown
func Run(cfg *config.Config) error {
	logger.Init(cfg.Server.Env)
	apperrors.SetDebug(cfg.IsDevelopment())
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := seedFirstAdmin(db, cfg); err != nil {
		return fmt.Errorf("failed to seed first admin user: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := New(ctx, cfg, db)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Address(), "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			application.Close(context.Background())
			return fmt.Errorf("server startup error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	application.Close(shutdownCtx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
	return nil
}

// New собирает сервисы, хэндлеры и роутер и запускает фоновые компоненты
// (WebSocket-менеджер, обработчик очереди чата, cron).
func New(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Application, error) {
	appCtx, cancel := context.WithCancel(ctx)
	a := &Application{cfg: cfg, db: db, ctx: appCtx, cancel: cancel}

	tokenMaker := auth.NewJWTMaker(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL)

	serviceContainer, err := a.initializeServices(tokenMaker)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}
	a.Services = serviceContainer

	// 1. WebSocket
	a.WSManager = ws.NewWebSocketManager(serviceContainer.ChatService, db)
	go a.WSManager.Run(appCtx)
	wsHandler := ws.NewWebSocketHandler(a.WSManager, cfg.Server.CORSOrigins)

	// 2. Очередь чата
	processor := services.NewChatProcessor(db, repositories.NewChatRepository(), a.WSManager).
		WithRetryPolicy(cfg.Chat.MaxAttempts, cfg.Chat.RetryAfter)
	a.chatWorker = workers.NewChatWorker(a.chatQueue, processor)
	if err := a.chatWorker.Start(appCtx); err != nil {
		a.Close(context.Background())
		return nil, fmt.Errorf("failed to start chat worker: %w", err)
	}

	// 3. Cron
	if err := a.initializeScheduler(); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	// 4. HTTP
	authMW := middleware.AuthMiddleware(tokenMaker)
	appHandlers := initializeHandlers(cfg, serviceContainer, authMW)

	checks := map[string]handlers.Pinger{}
	if a.planCache != nil {
		checks["redis"] = a.planCache
	}
	healthHandler := handlers.NewHealthHandler(db, checks)

	a.Router = initializeGinRouter(cfg, db)
	routes.RegisterRoutes(a.Router, appHandlers, healthHandler, wsHandler, authMW)

	return a, nil
}

func (a *Application) initializeServices(tokenMaker auth.Maker) (*services.ServiceContainer, error) {
	cfg := a.cfg

	emailProvider, err := newEmailProvider(cfg)
	if err != nil {
		return nil, err
	}

	a.planCache, err = cache.InitServer(a.ctx, cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.PlansTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if a.planCache != nil {
		logger.Info("Plan cache enabled", "addr", cfg.Redis.Addr)
	}

	a.chatQueue, err = newChatQueue(cfg)
	if err != nil {
		return nil, err
	}

	storageInstance, err := storage.NewStorage(storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		PublicRead: cfg.Storage.PublicRead,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	var planCache services.PlanCache
	if a.planCache != nil {
		planCache = a.planCache
	}

	return services.NewServiceContainer(services.Dependencies{
		TokenMaker:     tokenMaker,
		RefreshTTL:     cfg.JWT.RefreshTTL,
		EmailProvider:  emailProvider,
		PlanCache:      planCache,
		ChatQueue:      a.chatQueue,
		Storage:        storageInstance,
		ImageProcessor: imageprocessor.NewProcessor(cfg.Upload.ImageQuality, cfg.Upload.MaxDimension).WithMaxPixels(cfg.Upload.MaxPixels),
		PhotoLimits: services.PhotoLimits{
			MaxSize:      cfg.Upload.MaxPhotoSize,
			AllowedTypes: cfg.Upload.AllowedTypes,
		},
		FreeTier: services.FreeTier{
			PlanName:           cfg.Subscription.FreePlanName,
			NutritionPlanLimit: cfg.Subscription.FreeNutritionPlanLimit,
		},
	}), nil
}

func newEmailProvider(cfg *config.Config) (email.Provider, error) {
	templates, err := email.NewTemplateManager()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	if !cfg.Email.Enabled {
		logger.Warn("Email delivery disabled, messages are written to the log")
		return email.NewLogProvider(templates), nil
	}

	provider, err := email.NewSMTPProvider(email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	}, templates)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize smtp provider: %w", err)
	}
	return provider, nil
}

func newChatQueue(cfg *config.Config) (queue.Queue, error) {
	if cfg.Chat.Queue == "amqp" {
		q, err := queue.NewAMQPQueue(cfg.Chat.AMQPURL, cfg.Chat.QueueName)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to amqp: %w", err)
		}
		logger.Info("Chat queue initialized", "type", "amqp", "queue", cfg.Chat.QueueName)
		return q, nil
	}
	logger.Info("Chat queue initialized", "type", "memory", "buffer", cfg.Chat.BufferSize)
	return queue.NewMemoryQueue(cfg.Chat.BufferSize), nil
}

func (a *Application) initializeScheduler() error {
	if !a.cfg.Cron.Enabled {
		logger.Info("Cron jobs disabled")
		return nil
	}

	scheduler := workers.NewScheduler(cronJobTimeout)

	subscriptionWorker := workers.NewSubscriptionWorker(a.db, a.Services.SubscriptionService)
	if err := subscriptionWorker.Register(scheduler, a.cfg.Cron.SubscriptionExpiry); err != nil {
		return err
	}

	maintenanceWorker := workers.NewMaintenanceWorker(
		a.db,
		a.Services.MaintenanceService,
		a.Services.ChatService,
		a.cfg.Chat.RetentionDays,
	)
	if err := maintenanceWorker.Register(scheduler, a.cfg.Cron.TokenCleanup, a.cfg.Cron.ChatRetention); err != nil {
		return err
	}

	if err := a.chatWorker.Register(scheduler, a.cfg.Cron.ChatRetry); err != nil {
		return err
	}

	scheduler.Start()
	a.scheduler = scheduler
	return nil
}

func initializeHandlers(cfg *config.Config, svc *services.ServiceContainer, authMW gin.HandlerFunc) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator, authMW)

	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, svc.AuthService, middleware.RateLimitMiddleware(authLimiter)),
		UserHandler:         handlers.NewUserHandler(baseHandler, svc.UserService),
		PhotoHandler:        handlers.NewPhotoHandler(baseHandler, svc.PhotoService, cfg.Upload.MaxPhotoSize),
		PlanHandler:         handlers.NewPlanHandler(baseHandler, svc.PlanService),
		SubscriptionHandler: handlers.NewSubscriptionHandler(baseHandler, svc.SubscriptionService),
		NutritionHandler:    handlers.NewNutritionHandler(baseHandler, svc.NutritionPlanService),
		ChatHandler:         handlers.NewChatHandler(baseHandler, svc.ChatService),
		ProviderHandler:     handlers.NewProviderHandler(baseHandler, svc.ProviderService),
		AnalyticsHandler:    handlers.NewAnalyticsHandler(baseHandler, svc.AnalyticsService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	router.Use(metrics.Middleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

// Close останавливает фоновые компоненты. Повторный вызов безопасен.
func (a *Application) Close(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
		a.scheduler = nil
	}
	a.cancel()
	if a.chatQueue != nil {
		if err := a.chatQueue.Close(); err != nil {
			logger.Error("Failed to close chat queue", "error", err)
		}
		a.chatQueue = nil
	}
	if a.planCache != nil {
		_ = a.planCache.Close()
		a.planCache = nil
	}
}

// SeedAdmin - команда seed-admin: создает администратора из конфига
func SeedAdmin(cfg *config.Config) error {
	logger.Init(cfg.Server.Env)

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	return seedFirstAdmin(db, cfg)
}

// MigrateOnly - команда migrate
func MigrateOnly(cfg *config.Config) error {
	logger.Init(cfg.Server.Env)

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	return database.Migrate(db)
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := strings.ToLower(strings.TrimSpace(cfg.FirstAdminEmail))
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	var existing models.User
	result := tx.Where("email = ?", adminEmail).First(&existing)
	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	if err := auth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("first admin password: %w", err)
	}
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	var roles []models.Role
	if err := tx.Where("name IN ?", []string{models.RoleAdmin, models.RoleUser}).Find(&roles).Error; err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hash,
		FirstName:    "Admin",
		Status:       models.UserStatusActive,
		Roles:        roles,
	}
	if err := tx.Omit("Roles.*").Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("First admin user created", "email", adminEmail)
	return tx.Commit().Error
}
