package repositories

import (
	"errors"
	"time"

	"nutriplan_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrSubscriptionPlanNotFound = errors.New("subscription plan not found")
	ErrPlanAlreadyExists        = errors.New("subscription plan already exists")
)

type SubscriptionRepository interface {
	// Тарифы
	CreatePlan(db *gorm.DB, plan *models.SubscriptionPlan) error
	FindPlanByID(db *gorm.DB, id string) (*models.SubscriptionPlan, error)
	FindPlanByName(db *gorm.DB, name string) (*models.SubscriptionPlan, error)
	FindActivePlans(db *gorm.DB) ([]models.SubscriptionPlan, error)
	FindAllPlans(db *gorm.DB) ([]models.SubscriptionPlan, error)
	UpdatePlan(db *gorm.DB, plan *models.SubscriptionPlan) error
	DeletePlan(db *gorm.DB, id string) error
	CountByPlan(db *gorm.DB, planID string) (int64, error)

	// Подписки
	Create(db *gorm.DB, sub *models.Subscription) error
	FindByID(db *gorm.DB, id string) (*models.Subscription, error)
	FindByIDForUpdate(db *gorm.DB, id string) (*models.Subscription, error)
	FindByUser(db *gorm.DB, userID string) ([]models.Subscription, error)
	FindApprovedByUser(db *gorm.DB, userID string) (*models.Subscription, error)
	ExistsPending(db *gorm.DB, userID, planID string) (bool, error)
	LockUserSubscriptions(db *gorm.DB, userID string) error
	Update(db *gorm.DB, sub *models.Subscription) error
	CancelApprovedExcept(db *gorm.DB, userID, exceptID string, at time.Time) (int64, error)
	FindWithFilter(db *gorm.DB, filter SubscriptionFilter) ([]models.Subscription, int64, error)
	FindExpiredApproved(db *gorm.DB, now time.Time) ([]models.Subscription, error)
}

type SubscriptionFilter struct {
	Status   models.SubscriptionStatus
	UserID   string
	PlanID   string
	Page     int
	PageSize int
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() *SubscriptionRepositoryImpl {
	return &SubscriptionRepositoryImpl{}
}

// --- Тарифы ---

func (r *SubscriptionRepositoryImpl) CreatePlan(db *gorm.DB, plan *models.SubscriptionPlan) error {
	if err := db.Create(plan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPlanAlreadyExists
		}
		return err
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) FindPlanByID(db *gorm.DB, id string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := db.First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *SubscriptionRepositoryImpl) FindPlanByName(db *gorm.DB, name string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := db.First(&plan, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *SubscriptionRepositoryImpl) FindActivePlans(db *gorm.DB) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := db.Where("is_active = ?", true).Order("price ASC, name ASC").Find(&plans).Error
	return plans, err
}

func (r *SubscriptionRepositoryImpl) FindAllPlans(db *gorm.DB) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := db.Order("price ASC, name ASC").Find(&plans).Error
	return plans, err
}

// UpdatePlan пишет все поля, включая нулевые (is_active=false, limit=0)
func (r *SubscriptionRepositoryImpl) UpdatePlan(db *gorm.DB, plan *models.SubscriptionPlan) error {
	if err := db.Save(plan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPlanAlreadyExists
		}
		return err
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) DeletePlan(db *gorm.DB, id string) error {
	result := db.Delete(&models.SubscriptionPlan{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionPlanNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) CountByPlan(db *gorm.DB, planID string) (int64, error) {
	var count int64
	err := db.Model(&models.Subscription{}).Where("plan_id = ?", planID).Count(&count).Error
	return count, err
}

// --- Подписки ---

func (r *SubscriptionRepositoryImpl) Create(db *gorm.DB, sub *models.Subscription) error {
	return db.Omit("Plan", "User", "ApprovedBy").Create(sub).Error
}

func (r *SubscriptionRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := db.Preload("Plan").First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindByIDForUpdate читает подписку с блокировкой строки (в PostgreSQL)
func (r *SubscriptionRepositoryImpl) FindByIDForUpdate(db *gorm.DB, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := ForUpdate(db).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindByUser(db *gorm.DB, userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) FindApprovedByUser(db *gorm.DB, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.Preload("Plan").
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusApproved).
		Order("approved_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) ExistsPending(db *gorm.DB, userID, planID string) (bool, error) {
	var count int64
	err := db.Model(&models.Subscription{}).
		Where("user_id = ? AND plan_id = ? AND status = ?", userID, planID, models.SubscriptionStatusPending).
		Count(&count).Error
	return count > 0, err
}

// LockUserSubscriptions блокирует все подписки пользователя до конца транзакции.
// Два одновременных одобрения для одного пользователя выполняются по очереди.
func (r *SubscriptionRepositoryImpl) LockUserSubscriptions(db *gorm.DB, userID string) error {
	var ids []string
	return ForUpdate(db).Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error
}

func (r *SubscriptionRepositoryImpl) Update(db *gorm.DB, sub *models.Subscription) error {
	return db.Omit("Plan", "User", "ApprovedBy").Save(sub).Error
}

// CancelApprovedExcept переводит в CANCELLED все одобренные подписки
// пользователя, кроме exceptID. Возвращает число отменённых.
func (r *SubscriptionRepositoryImpl) CancelApprovedExcept(db *gorm.DB, userID, exceptID string, at time.Time) (int64, error) {
	result := db.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ? AND id <> ?", userID, models.SubscriptionStatusApproved, exceptID).
		Updates(map[string]interface{}{
			"status":       models.SubscriptionStatusCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

func (r *SubscriptionRepositoryImpl) FindWithFilter(db *gorm.DB, filter SubscriptionFilter) ([]models.Subscription, int64, error) {
	query := db.Model(&models.Subscription{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.PlanID != "" {
		query = query.Where("plan_id = ?", filter.PlanID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.Subscription
	err := query.Preload("Plan").Preload("User").
		Order("created_at DESC").
		Scopes(Paginate(filter.Page, filter.PageSize)).
		Find(&subs).Error
	return subs, total, err
}

func (r *SubscriptionRepositoryImpl) FindExpiredApproved(db *gorm.DB, now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.SubscriptionStatusApproved, now).
		Find(&subs).Error
	return subs, err
}
