package repositories

import (
	"errors"
	"time"

	"nutriplan_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNutritionPlanNotFound  = errors.New("nutrition plan not found")
	ErrNutritionPlanDateTaken = errors.New("nutrition plan for this date already exists")
)

type NutritionPlanRepository interface {
	Create(db *gorm.DB, plan *models.NutritionPlan) error
	FindByID(db *gorm.DB, userID, id string) (*models.NutritionPlan, error)
	FindByDate(db *gorm.DB, userID string, date time.Time) (*models.NutritionPlan, error)
	ExistsForDate(db *gorm.DB, userID string, date time.Time, excludeID string) (bool, error)
	CountInRange(db *gorm.DB, userID string, from, to time.Time) (int64, error)
	FindWithFilter(db *gorm.DB, filter NutritionPlanFilter) ([]models.NutritionPlan, int64, error)
	Update(db *gorm.DB, plan *models.NutritionPlan) error
	Delete(db *gorm.DB, userID, id string) error
	GetStats(db *gorm.DB, userID string, from, to time.Time) (*NutritionStats, error)
}

// NutritionPlanFilter - границы дат включительные, nil означает без ограничения
type NutritionPlanFilter struct {
	UserID    string
	From      *time.Time
	To        *time.Time
	Completed *bool
	Page      int
	PageSize  int
}

type NutritionStats struct {
	Total       int64   `json:"total"`
	Completed   int64   `json:"completed"`
	AvgCalories float64 `json:"avg_calories"`
}

type NutritionPlanRepositoryImpl struct{}

func NewNutritionPlanRepository() *NutritionPlanRepositoryImpl {
	return &NutritionPlanRepositoryImpl{}
}

func (r *NutritionPlanRepositoryImpl) Create(db *gorm.DB, plan *models.NutritionPlan) error {
	plan.PlanDate = models.NormalizeDate(plan.PlanDate)
	if err := db.Create(plan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrNutritionPlanDateTaken
		}
		return err
	}
	return nil
}

// FindByID ищет только среди планов пользователя: чужой план - это "не найден"
func (r *NutritionPlanRepositoryImpl) FindByID(db *gorm.DB, userID, id string) (*models.NutritionPlan, error) {
	var plan models.NutritionPlan
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNutritionPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *NutritionPlanRepositoryImpl) FindByDate(db *gorm.DB, userID string, date time.Time) (*models.NutritionPlan, error) {
	var plan models.NutritionPlan
	err := db.Where("user_id = ? AND plan_date = ?", userID, models.NormalizeDate(date)).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNutritionPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *NutritionPlanRepositoryImpl) ExistsForDate(db *gorm.DB, userID string, date time.Time, excludeID string) (bool, error) {
	query := db.Model(&models.NutritionPlan{}).
		Where("user_id = ? AND plan_date = ?", userID, models.NormalizeDate(date))
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

// CountInRange считает планы с датой в [from, to)
func (r *NutritionPlanRepositoryImpl) CountInRange(db *gorm.DB, userID string, from, to time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.NutritionPlan{}).
		Where("user_id = ? AND plan_date >= ? AND plan_date < ?", userID, models.NormalizeDate(from), models.NormalizeDate(to)).
		Count(&count).Error
	return count, err
}

func (r *NutritionPlanRepositoryImpl) FindWithFilter(db *gorm.DB, filter NutritionPlanFilter) ([]models.NutritionPlan, int64, error) {
	query := db.Model(&models.NutritionPlan{}).Where("user_id = ?", filter.UserID)
	if filter.From != nil {
		query = query.Where("plan_date >= ?", models.NormalizeDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("plan_date <= ?", models.NormalizeDate(*filter.To))
	}
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var plans []models.NutritionPlan
	err := query.Order("plan_date ASC").
		Scopes(Paginate(filter.Page, filter.PageSize)).
		Find(&plans).Error
	return plans, total, err
}

func (r *NutritionPlanRepositoryImpl) Update(db *gorm.DB, plan *models.NutritionPlan) error {
	plan.PlanDate = models.NormalizeDate(plan.PlanDate)
	if err := db.Save(plan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrNutritionPlanDateTaken
		}
		return err
	}
	return nil
}

func (r *NutritionPlanRepositoryImpl) Delete(db *gorm.DB, userID, id string) error {
	result := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.NutritionPlan{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNutritionPlanNotFound
	}
	return nil
}

// GetStats - агрегаты по планам пользователя с датой в [from, to].
// Пустой userID - по всем пользователям.
func (r *NutritionPlanRepositoryImpl) GetStats(db *gorm.DB, userID string, from, to time.Time) (*NutritionStats, error) {
	query := db.Model(&models.NutritionPlan{}).
		Where("plan_date >= ? AND plan_date <= ?", models.NormalizeDate(from), models.NormalizeDate(to))
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var row struct {
		Total       int64
		Completed   int64
		AvgCalories *float64
	}
	err := query.Select(
		"COUNT(*) AS total, " +
			"COUNT(CASE WHEN completed THEN 1 END) AS completed, " +
			"AVG(calories) AS avg_calories",
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &NutritionStats{Total: row.Total, Completed: row.Completed}
	if row.AvgCalories != nil {
		stats.AvgCalories = *row.AvgCalories
	}
	return stats, nil
}
