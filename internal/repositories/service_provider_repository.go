package repositories

import (
	"errors"

	"nutriplan_backend/internal/models"

	"gorm.io/gorm"
)

var ErrProviderNotFound = errors.New("service provider not found")

type ServiceProviderRepository interface {
	Create(db *gorm.DB, p *models.ServiceProvider) error
	FindByID(db *gorm.DB, id string) (*models.ServiceProvider, error)
	Update(db *gorm.DB, p *models.ServiceProvider) error
	Delete(db *gorm.DB, id string) error
	FindWithFilter(db *gorm.DB, filter ProviderFilter) ([]models.ServiceProvider, int64, error)
	FindInBoundingBox(db *gorm.DB, box BoundingBox, category string) ([]models.ServiceProvider, error)
	CountActive(db *gorm.DB) (int64, error)
}

type ProviderFilter struct {
	City            string
	Category        string
	Search          string
	IncludeInactive bool
	Page            int
	PageSize        int
}

// BoundingBox - прямоугольник координат для грубой предфильтрации в SQL
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

type ServiceProviderRepositoryImpl struct{}

func NewServiceProviderRepository() *ServiceProviderRepositoryImpl {
	return &ServiceProviderRepositoryImpl{}
}

func (r *ServiceProviderRepositoryImpl) Create(db *gorm.DB, p *models.ServiceProvider) error {
	return db.Create(p).Error
}

func (r *ServiceProviderRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.ServiceProvider, error) {
	var p models.ServiceProvider
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ServiceProviderRepositoryImpl) Update(db *gorm.DB, p *models.ServiceProvider) error {
	return db.Save(p).Error
}

func (r *ServiceProviderRepositoryImpl) Delete(db *gorm.DB, id string) error {
	result := db.Delete(&models.ServiceProvider{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (r *ServiceProviderRepositoryImpl) FindWithFilter(db *gorm.DB, filter ProviderFilter) ([]models.ServiceProvider, int64, error) {
	query := db.Model(&models.ServiceProvider{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.City != "" {
		query = query.Where("LOWER(city) = LOWER(?)", filter.City)
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(
			"LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\' OR LOWER(address) LIKE ? ESCAPE '\\'",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var providers []models.ServiceProvider
	err := query.Order("name ASC").
		Scopes(Paginate(filter.Page, filter.PageSize)).
		Find(&providers).Error
	return providers, total, err
}

func (r *ServiceProviderRepositoryImpl) FindInBoundingBox(db *gorm.DB, box BoundingBox, category string) ([]models.ServiceProvider, error) {
	query := db.Where("is_active = ?", true).
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng)
	if category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", category)
	}

	var providers []models.ServiceProvider
	err := query.Find(&providers).Error
	return providers, err
}

func (r *ServiceProviderRepositoryImpl) CountActive(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.ServiceProvider{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
