package repositories

import (
	"errors"

	"nutriplan_backend/internal/models"

	"gorm.io/gorm"
)

var ErrRoleNotFound = errors.New("role not found")

type RoleRepository interface {
	FindByName(db *gorm.DB, name string) (*models.Role, error)
	FindByNames(db *gorm.DB, names []string) ([]models.Role, error)
	FindAll(db *gorm.DB) ([]models.Role, error)
}

type RoleRepositoryImpl struct{}

func NewRoleRepository() *RoleRepositoryImpl {
	return &RoleRepositoryImpl{}
}

func (r *RoleRepositoryImpl) FindByName(db *gorm.DB, name string) (*models.Role, error) {
	var role models.Role
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindByNames возвращает ErrRoleNotFound, если хотя бы одной роли нет
func (r *RoleRepositoryImpl) FindByNames(db *gorm.DB, names []string) ([]models.Role, error) {
	unique := make(map[string]struct{}, len(names))
	for _, n := range names {
		unique[n] = struct{}{}
	}

	var roles []models.Role
	if err := db.Where("name IN ?", names).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	if len(roles) != len(unique) {
		return nil, ErrRoleNotFound
	}
	return roles, nil
}

func (r *RoleRepositoryImpl) FindAll(db *gorm.DB) ([]models.Role, error) {
	var roles []models.Role
	err := db.Order("id").Find(&roles).Error
	return roles, err
}
