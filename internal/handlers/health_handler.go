package handlers

import (
	"context"
	"net/http"
	"time"

	"nutriplan_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger - внешняя зависимость, которую проверяет /health (Redis и т.п.)
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      *gorm.DB
	checks  map[string]Pinger
	started time.Time
	timeout time.Duration
}

func NewHealthHandler(db *gorm.DB, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		checks:  checks,
		started: time.Now(),
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
}

// Health godoc
// @Summary Проверка состояния
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	components := gin.H{}

	if err := h.pingDB(ctx); err != nil {
		logger.CtxWithError(ctx, "health check: database unavailable", err)
		components["database"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		components["database"] = "up"
	}

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			logger.CtxWithError(ctx, "health check failed", err, "component", name)
			components[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
		"uptime":     time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
