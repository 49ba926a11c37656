package workers

import (
	"context"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/services"

	"gorm.io/gorm"
)

const (
	JobTokenCleanup  = "token_cleanup"
	JobChatRetention = "chat_retention"
)

type MaintenanceWorker struct {
	db                *gorm.DB
	maintenance       services.MaintenanceService
	chat              services.ChatService
	chatRetentionDays int
}

func NewMaintenanceWorker(
	db *gorm.DB,
	maintenance services.MaintenanceService,
	chat services.ChatService,
	chatRetentionDays int,
) *MaintenanceWorker {
	return &MaintenanceWorker{
		db:                db,
		maintenance:       maintenance,
		chat:              chat,
		chatRetentionDays: chatRetentionDays,
	}
}

func (w *MaintenanceWorker) Register(s *Scheduler, tokenSpec, chatSpec string) error {
	if err := s.Add(JobTokenCleanup, tokenSpec, w.PurgeExpiredTokens); err != nil {
		return err
	}
	if w.chatRetentionDays <= 0 {
		logger.Info("chat retention disabled, messages are kept forever")
		return nil
	}
	return s.Add(JobChatRetention, chatSpec, w.CleanupChat)
}

func (w *MaintenanceWorker) PurgeExpiredTokens(ctx context.Context) error {
	deleted, err := w.maintenance.PurgeExpiredTokens(w.db.WithContext(ctx))
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("Expired refresh tokens purged", "count", deleted)
	}
	return nil
}

func (w *MaintenanceWorker) CleanupChat(ctx context.Context) error {
	deleted, err := w.chat.CleanupOldMessages(w.db.WithContext(ctx), w.chatRetentionDays)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("Old chat messages deleted", "count", deleted, "retention_days", w.chatRetentionDays)
	}
	return nil
}
