package services

import (
	"bytes"
	"errors"
	"net/http"
	"path"
	"strings"

	"nutriplan_backend/internal/imageprocessor"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/internal/storage"
	"nutriplan_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PhotoService interface {
	UploadPhoto(db *gorm.DB, userID string, req *dto.UploadPhotoRequest) (*dto.PhotoResponse, error)
	GetPhoto(db *gorm.DB, userID string) (*models.UserPhoto, error)
	DeletePhoto(db *gorm.DB, userID string) error
}

// PhotoLimits - ограничения на загружаемые фото
type PhotoLimits struct {
	MaxSize      int64
	AllowedTypes []string
}

type PhotoServiceImpl struct {
	repo      repositories.UserPhotoRepository
	processor *imageprocessor.Processor
	storage   storage.Storage // nil - только БД
	limits    PhotoLimits
}

func NewPhotoService(
	repo repositories.UserPhotoRepository,
	processor *imageprocessor.Processor,
	store storage.Storage,
	limits PhotoLimits,
) *PhotoServiceImpl {
	return &PhotoServiceImpl{
		repo:      repo,
		processor: processor,
		storage:   store,
		limits:    limits,
	}
}

// UploadPhoto проверяет файл, уменьшает его и заменяет текущее фото
func (s *PhotoServiceImpl) UploadPhoto(db *gorm.DB, userID string, req *dto.UploadPhotoRequest) (*dto.PhotoResponse, error) {
	if len(req.Data) == 0 {
		return nil, apperrors.NewBadRequestError("Photo file is empty")
	}
	if s.limits.MaxSize > 0 && int64(len(req.Data)) > s.limits.MaxSize {
		return nil, apperrors.ErrFileTooLarge.WithDetails(map[string]interface{}{
			"max_size": s.limits.MaxSize,
		})
	}

	// заголовку клиента не доверяем, тип определяется по содержимому
	detected := http.DetectContentType(req.Data)
	if !s.isAllowed(detected) {
		return nil, apperrors.ErrInvalidFileType.WithDetails(map[string]interface{}{
			"content_type": detected,
			"allowed":      s.limits.AllowedTypes,
		})
	}

	result, err := s.processor.Process(req.Data)
	if err != nil {
		if errors.Is(err, imageprocessor.ErrTooManyPixels) {
			return nil, apperrors.ErrFileTooLarge.WithError(err).WithDetails(map[string]interface{}{
				"reason": "image dimensions exceed limit",
			})
		}
		return nil, apperrors.ErrInvalidFileType.WithError(err)
	}

	photo := &models.UserPhoto{
		UserID:      userID,
		FileName:    sanitizeFileName(req.FileName),
		ContentType: result.ContentType,
		Size:        int64(len(result.Data)),
		Width:       result.Width,
		Height:      result.Height,
		Data:        result.Data,
	}

	ctx := dbContext(db)
	if s.storage != nil {
		key := photoKey(userID, result.ContentType)
		if err := s.storage.Put(ctx, key, bytes.NewReader(result.Data), result.ContentType); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeExternalServiceError, "photo", "Failed to store photo", http.StatusBadGateway)
		}
		photo.StorageKey = key
		photo.URL = s.storage.URL(key)
	}

	previous, err := s.repo.Upsert(db, photo)
	if err != nil {
		if photo.StorageKey != "" {
			_ = s.storage.Remove(ctx, photo.StorageKey)
		}
		return nil, apperrors.InternalError(err)
	}
	if previous != nil {
		s.removeMirror(db, previous)
	}

	logger.CtxInfo(ctx, "photo uploaded", "user_id", userID, "size", photo.Size, "width", photo.Width, "height", photo.Height)
	resp := dto.NewPhotoResponse(photo)
	return &resp, nil
}

func (s *PhotoServiceImpl) GetPhoto(db *gorm.DB, userID string) (*models.UserPhoto, error) {
	photo, err := s.repo.FindByUserID(db, userID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrPhotoNotFound, repositories.ErrPhotoNotFound)
	}
	return photo, nil
}

func (s *PhotoServiceImpl) DeletePhoto(db *gorm.DB, userID string) error {
	photo, err := s.repo.DeleteByUserID(db, userID)
	if err != nil {
		return handleNotFound(err, apperrors.ErrPhotoNotFound, repositories.ErrPhotoNotFound)
	}
	s.removeMirror(db, photo)
	return nil
}

// removeMirror удаляет копию из хранилища; ошибка только логируется
func (s *PhotoServiceImpl) removeMirror(db *gorm.DB, photo *models.UserPhoto) {
	if s.storage == nil || photo.StorageKey == "" {
		return
	}
	ctx := dbContext(db)
	if err := s.storage.Remove(ctx, photo.StorageKey); err != nil {
		logger.CtxWithError(ctx, "failed to delete photo from storage", err, "key", photo.StorageKey)
	}
}

func (s *PhotoServiceImpl) isAllowed(contentType string) bool {
	if len(s.limits.AllowedTypes) == 0 {
		return strings.HasPrefix(contentType, "image/")
	}
	for _, t := range s.limits.AllowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

func photoKey(userID, contentType string) string {
	ext := ".png"
	if contentType == "image/jpeg" {
		ext = ".jpg"
	}
	return path.Join("photos", userID, uuid.NewString()+ext)
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
