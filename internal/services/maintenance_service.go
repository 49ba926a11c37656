package services

import (
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// MaintenanceService - периодическая очистка, вызывается из cron
type MaintenanceService interface {
	PurgeExpiredTokens(db *gorm.DB) (int64, error)
}

type MaintenanceServiceImpl struct {
	refreshTokenRepo repositories.RefreshTokenRepository
	now              Clock
}

func NewMaintenanceService(refreshTokenRepo repositories.RefreshTokenRepository) *MaintenanceServiceImpl {
	return &MaintenanceServiceImpl{refreshTokenRepo: refreshTokenRepo, now: utcNow}
}

func (s *MaintenanceServiceImpl) PurgeExpiredTokens(db *gorm.DB) (int64, error) {
	deleted, err := s.refreshTokenRepo.DeleteExpired(db, s.now())
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return deleted, nil
}
