package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"nutriplan_backend/database"
	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB - отдельная in-memory SQLite база на тест с применёнными миграциями
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(gormlogger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateUser создает активного пользователя с ролями. Пароль хешируется.
func CreateUser(t *testing.T, db *gorm.DB, email, password string, roles ...string) *models.User {
	t.Helper()

	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	var roleRows []models.Role
	require.NoError(t, db.Where("name IN ?", roles).Find(&roleRows).Error)
	require.Len(t, roleRows, len(roles), "unknown role in %v", roles)

	user := &models.User{
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Status:       models.UserStatusActive,
		Roles:        roleRows,
	}
	require.NoError(t, db.Omit("Roles.*").Create(user).Error)
	return user
}

// CreatePlan создает активный тариф
func CreatePlan(t *testing.T, db *gorm.DB, name string, price float64, limit int) *models.SubscriptionPlan {
	t.Helper()

	plan := &models.SubscriptionPlan{
		Name:               name,
		Price:              price,
		Currency:           "USD",
		DurationDays:       30,
		NutritionPlanLimit: limit,
		IsActive:           true,
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

// CreateSubscription создает подписку в нужном статусе напрямую, минуя сервис
func CreateSubscription(t *testing.T, db *gorm.DB, userID string, plan *models.SubscriptionPlan, status models.SubscriptionStatus) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		UserID:   &userID,
		PlanID:   plan.ID,
		Status:   status,
		Amount:   plan.Price,
		Currency: plan.Currency,
	}
	if status == models.SubscriptionStatusApproved {
		now := time.Now().UTC()
		end := now.AddDate(0, 0, plan.DurationDays)
		sub.ApprovedAt = &now
		sub.StartDate = &now
		sub.EndDate = &end
	}
	require.NoError(t, db.Omit("Plan", "User", "ApprovedBy").Create(sub).Error)
	return sub
}

// Date - короткая запись даты для тестов
func Date(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
