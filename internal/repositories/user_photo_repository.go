package repositories

import (
	"errors"

	"nutriplan_backend/internal/models"

	"gorm.io/gorm"
)

var ErrPhotoNotFound = errors.New("photo not found")

type UserPhotoRepository interface {
	Upsert(db *gorm.DB, photo *models.UserPhoto) (*models.UserPhoto, error)
	FindByUserID(db *gorm.DB, userID string) (*models.UserPhoto, error)
	FindMetaByUserID(db *gorm.DB, userID string) (*models.UserPhoto, error)
	DeleteByUserID(db *gorm.DB, userID string) (*models.UserPhoto, error)
}

type UserPhotoRepositoryImpl struct{}

func NewUserPhotoRepository() *UserPhotoRepositoryImpl {
	return &UserPhotoRepositoryImpl{}
}

// Upsert заменяет фото пользователя. Возвращает предыдущее (без байтов) или nil.
func (r *UserPhotoRepositoryImpl) Upsert(db *gorm.DB, photo *models.UserPhoto) (*models.UserPhoto, error) {
	var previous *models.UserPhoto
	err := db.Transaction(func(tx *gorm.DB) error {
		old, err := r.FindMetaByUserID(ForUpdate(tx), photo.UserID)
		switch {
		case err == nil:
			previous = old
			if err := tx.Delete(&models.UserPhoto{}, "id = ?", old.ID).Error; err != nil {
				return err
			}
		case !errors.Is(err, ErrPhotoNotFound):
			return err
		}
		return tx.Create(photo).Error
	})
	return previous, err
}

func (r *UserPhotoRepositoryImpl) FindByUserID(db *gorm.DB, userID string) (*models.UserPhoto, error) {
	var photo models.UserPhoto
	if err := db.Where("user_id = ?", userID).First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return &photo, nil
}

// FindMetaByUserID - всё, кроме самих байтов
func (r *UserPhotoRepositoryImpl) FindMetaByUserID(db *gorm.DB, userID string) (*models.UserPhoto, error) {
	var photo models.UserPhoto
	err := db.Omit("data").Where("user_id = ?", userID).First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return &photo, nil
}

func (r *UserPhotoRepositoryImpl) DeleteByUserID(db *gorm.DB, userID string) (*models.UserPhoto, error) {
	photo, err := r.FindMetaByUserID(db, userID)
	if err != nil {
		return nil, err
	}
	if err := db.Delete(&models.UserPhoto{}, "id = ?", photo.ID).Error; err != nil {
		return nil, err
	}
	return photo, nil
}
