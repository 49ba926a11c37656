package repositories

import (
	"database/sql"
	"time"

	"nutriplan_backend/internal/models"

	"gorm.io/gorm"
)

// AnalyticsRepository - агрегаты для админского дашборда
type AnalyticsRepository interface {
	CountSubscriptionsByStatus(db *gorm.DB) (map[models.SubscriptionStatus]int64, error)
	GetRevenue(db *gorm.DB, from, to time.Time) (float64, error)
	GetRevenueByPlan(db *gorm.DB, from, to time.Time) ([]PlanRevenue, error)
	CountApprovedBetween(db *gorm.DB, from, to time.Time) (int64, error)
}

type PlanRevenue struct {
	PlanID        string  `json:"plan_id"`
	PlanName      string  `json:"plan_name"`
	Subscriptions int64   `json:"subscriptions"`
	Revenue       float64 `json:"revenue"`
}

type AnalyticsRepositoryImpl struct{}

func NewAnalyticsRepository() *AnalyticsRepositoryImpl {
	return &AnalyticsRepositoryImpl{}
}

func (r *AnalyticsRepositoryImpl) CountSubscriptionsByStatus(db *gorm.DB) (map[models.SubscriptionStatus]int64, error) {
	rows, err := db.Raw(`
        SELECT status, COUNT(*) FROM subscriptions GROUP BY status
    `).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[models.SubscriptionStatus]int64{
		models.SubscriptionStatusPending:   0,
		models.SubscriptionStatusApproved:  0,
		models.SubscriptionStatusRejected:  0,
		models.SubscriptionStatusCancelled: 0,
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[models.SubscriptionStatus(status)] = count
	}
	return result, rows.Err()
}

// GetRevenue - сумма снимков цены по подпискам, одобренным в [from, to).
// Отменённые после одобрения тоже учитываются: деньги за них получены.
func (r *AnalyticsRepositoryImpl) GetRevenue(db *gorm.DB, from, to time.Time) (float64, error) {
	var revenue sql.NullFloat64
	err := db.Raw(`
        SELECT SUM(amount) FROM subscriptions
        WHERE approved_at IS NOT NULL AND approved_at >= ? AND approved_at < ?
    `, from, to).Row().Scan(&revenue)
	if err != nil {
		return 0, err
	}
	if revenue.Valid {
		return revenue.Float64, nil
	}
	return 0, nil
}

func (r *AnalyticsRepositoryImpl) GetRevenueByPlan(db *gorm.DB, from, to time.Time) ([]PlanRevenue, error) {
	rows, err := db.Raw(`
        SELECT p.id, p.name, COUNT(s.id), SUM(s.amount)
        FROM subscriptions s
        JOIN subscription_plans p ON p.id = s.plan_id
        WHERE s.approved_at IS NOT NULL AND s.approved_at >= ? AND s.approved_at < ?
        GROUP BY p.id, p.name
        ORDER BY SUM(s.amount) DESC
    `, from, to).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]PlanRevenue, 0)
	for rows.Next() {
		var item PlanRevenue
		var revenue sql.NullFloat64
		if err := rows.Scan(&item.PlanID, &item.PlanName, &item.Subscriptions, &revenue); err != nil {
			return nil, err
		}
		item.Revenue = revenue.Float64
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *AnalyticsRepositoryImpl) CountApprovedBetween(db *gorm.DB, from, to time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.Subscription{}).
		Where("approved_at IS NOT NULL AND approved_at >= ? AND approved_at < ?", from, to).
		Count(&count).Error
	return count, err
}
