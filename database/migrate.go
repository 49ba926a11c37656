package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/models"
)

// Models - все таблицы приложения в порядке создания
func Models() []interface{} {
	return []interface{}{
		&models.Role{},
		&models.User{},
		&models.RefreshToken{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.NutritionPlan{},
		&models.ChatMessage{},
		&models.ServiceProvider{},
		&models.UserPhoto{},
	}
}

// DefaultRoles - справочник ролей
var DefaultRoles = []models.Role{
	{Name: models.RoleUser, Description: "Regular customer"},
	{Name: models.RoleAdmin, Description: "Platform administrator"},
}

// indexes, которые AutoMigrate описать не умеет.
// Частичный индекс гарантирует не больше одной APPROVED подписки на пользователя;
// синтаксис одинаков для PostgreSQL и SQLite.
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_subscriptions_one_approved ON subscriptions (user_id) WHERE status = 'APPROVED'`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_status ON subscriptions (user_id, status)`,
}

// Migrate создает схему и справочник ролей
func Migrate(db *gorm.DB) error {
	start := time.Now()
	if err := db.AutoMigrate(Models()...); err != nil {
		logger.DBLog("automigrate", time.Since(start), err)
		return fmt.Errorf("automigrate: %w", err)
	}
	logger.DBLog("automigrate", time.Since(start), nil)

	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	for _, role := range DefaultRoles {
		role := role
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&role).Error
		if err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
	}

	logger.Info("Database migration completed")
	return nil
}
