package services

import (
	"context"
	"errors"
	"time"

	"nutriplan_backend/internal/email"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Clock - источник времени, подменяется в тестах
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// handleNotFound превращает "не найдено" из репозитория в доменную 404,
// всё остальное - во внутреннюю ошибку
func handleNotFound(err error, notFound *apperrors.AppError, sentinels ...error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound.WithError(err)
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return notFound.WithError(err)
		}
	}
	return apperrors.InternalError(err)
}

// beginTx открывает транзакцию; вызывающий обязан сделать defer tx.Rollback()
func beginTx(db *gorm.DB) (*gorm.DB, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	return tx, nil
}

func commit(tx *gorm.DB) error {
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// sendEmail отправляет письмо из шаблона. Ошибки только логируются:
// уведомление не должно ломать уже закоммиченную операцию.
func sendEmail(ctx context.Context, provider email.Provider, to, subject, templateName string, data email.TemplateData) {
	if provider == nil || to == "" {
		return
	}
	if err := provider.SendTemplate(ctx, []string{to}, subject, templateName, data); err != nil {
		logger.CtxWithError(ctx, "failed to send email", err, "template", templateName, "to", to)
	}
}

// dbContext - контекст запроса, привязанный к *gorm.DB через WithContext
func dbContext(db *gorm.DB) context.Context {
	if db != nil && db.Statement != nil && db.Statement.Context != nil {
		return db.Statement.Context
	}
	return context.Background()
}
