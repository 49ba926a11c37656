package workers

import (
	"context"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/services"

	"gorm.io/gorm"
)

const JobSubscriptionExpiry = "subscription_expiry"

type SubscriptionWorker struct {
	db      *gorm.DB
	service services.SubscriptionService
}

func NewSubscriptionWorker(db *gorm.DB, service services.SubscriptionService) *SubscriptionWorker {
	return &SubscriptionWorker{db: db, service: service}
}

// Register добавляет задачи подписок в планировщик
func (w *SubscriptionWorker) Register(s *Scheduler, expirySpec string) error {
	return s.Add(JobSubscriptionExpiry, expirySpec, w.ExpireSubscriptions)
}

// ExpireSubscriptions отменяет одобренные подписки с прошедшей end_date
func (w *SubscriptionWorker) ExpireSubscriptions(ctx context.Context) error {
	expired, err := w.service.ExpireSubscriptions(w.db.WithContext(ctx))
	if err != nil {
		return err
	}
	if expired > 0 {
		logger.Info("Expired subscriptions cancelled", "count", expired)
	}
	return nil
}
