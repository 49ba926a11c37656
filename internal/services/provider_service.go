package services

import (
	"sort"

	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"
	"nutriplan_backend/pkg/geo"

	"gorm.io/gorm"
)

const (
	defaultNearbyRadiusKm = 10.0
	defaultNearbyLimit    = 20
)

type ProviderService interface {
	ListProviders(db *gorm.DB, query *dto.ListProvidersQuery, includeInactive bool) (*dto.PaginatedResponse, error)
	GetProvider(db *gorm.DB, id string, includeInactive bool) (*dto.ProviderResponse, error)
	Nearby(db *gorm.DB, query *dto.NearbyProvidersQuery) ([]dto.ProviderResponse, error)

	// Admin
	CreateProvider(db *gorm.DB, req *dto.CreateProviderRequest) (*dto.ProviderResponse, error)
	UpdateProvider(db *gorm.DB, id string, req *dto.UpdateProviderRequest) (*dto.ProviderResponse, error)
	DeleteProvider(db *gorm.DB, id string) error
}

type ProviderServiceImpl struct {
	repo repositories.ServiceProviderRepository
}

func NewProviderService(repo repositories.ServiceProviderRepository) *ProviderServiceImpl {
	return &ProviderServiceImpl{repo: repo}
}

func (s *ProviderServiceImpl) ListProviders(db *gorm.DB, query *dto.ListProvidersQuery, includeInactive bool) (*dto.PaginatedResponse, error) {
	page, pageSize := query.Normalize()
	providers, total, err := s.repo.FindWithFilter(db, repositories.ProviderFilter{
		City:            query.City,
		Category:        query.Category,
		Search:          query.Search,
		IncludeInactive: includeInactive,
		Page:            page,
		PageSize:        pageSize,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.ProviderResponse, 0, len(providers))
	for i := range providers {
		items = append(items, dto.NewProviderResponse(&providers[i]))
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

func (s *ProviderServiceImpl) GetProvider(db *gorm.DB, id string, includeInactive bool) (*dto.ProviderResponse, error) {
	p, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrProviderNotFound, repositories.ErrProviderNotFound)
	}
	if !p.IsActive && !includeInactive {
		return nil, apperrors.ErrProviderNotFound
	}
	resp := dto.NewProviderResponse(p)
	return &resp, nil
}

// Nearby - грубый отбор прямоугольником в SQL, затем точное расстояние
// по гаверсинусу, отсечение по радиусу и сортировка по возрастанию.
func (s *ProviderServiceImpl) Nearby(db *gorm.DB, query *dto.NearbyProvidersQuery) ([]dto.ProviderResponse, error) {
	if query.Latitude == nil || query.Longitude == nil {
		return nil, apperrors.NewBadRequestError("lat and lng are required")
	}
	lat, lng := *query.Latitude, *query.Longitude

	radius := query.RadiusKm
	if radius <= 0 {
		radius = defaultNearbyRadiusKm
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultNearbyLimit
	}

	box := geo.BoundingBox(lat, lng, radius)
	candidates, err := s.repo.FindInBoundingBox(db, repositories.BoundingBox{
		MinLat: box.MinLat,
		MaxLat: box.MaxLat,
		MinLng: box.MinLng,
		MaxLng: box.MaxLng,
	}, query.Category)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	type scored struct {
		provider *models.ServiceProvider
		distance float64
	}
	found := make([]scored, 0, len(candidates))
	for i := range candidates {
		d := geo.DistanceKm(lat, lng, candidates[i].Latitude, candidates[i].Longitude)
		if d <= radius {
			found = append(found, scored{provider: &candidates[i], distance: d})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].distance < found[j].distance
	})
	if len(found) > limit {
		found = found[:limit]
	}

	result := make([]dto.ProviderResponse, 0, len(found))
	for _, f := range found {
		resp := dto.NewProviderResponse(f.provider)
		d := round2(f.distance)
		resp.DistanceKm = &d
		result = append(result, resp)
	}
	return result, nil
}

func (s *ProviderServiceImpl) CreateProvider(db *gorm.DB, req *dto.CreateProviderRequest) (*dto.ProviderResponse, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, apperrors.NewBadRequestError("latitude and longitude are required")
	}
	if err := checkCoordinates(*req.Latitude, *req.Longitude); err != nil {
		return nil, err
	}

	tags, err := marshalStrings(req.Tags)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	p := &models.ServiceProvider{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Phone:       req.Phone,
		Email:       req.Email,
		Website:     req.Website,
		Address:     req.Address,
		City:        req.City,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Tags:        tags,
		IsActive:    true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := s.repo.Create(db, p); err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp := dto.NewProviderResponse(p)
	return &resp, nil
}

func (s *ProviderServiceImpl) UpdateProvider(db *gorm.DB, id string, req *dto.UpdateProviderRequest) (*dto.ProviderResponse, error) {
	p, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrProviderNotFound, repositories.ErrProviderNotFound)
	}

	applyString(&p.Name, req.Name)
	applyString(&p.Category, req.Category)
	applyString(&p.Description, req.Description)
	applyString(&p.Phone, req.Phone)
	applyString(&p.Email, req.Email)
	applyString(&p.Website, req.Website)
	applyString(&p.Address, req.Address)
	applyString(&p.City, req.City)
	applyFloat(&p.Latitude, req.Latitude)
	applyFloat(&p.Longitude, req.Longitude)
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.Tags != nil {
		tags, err := marshalStrings(req.Tags)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		p.Tags = tags
	}

	if err := checkCoordinates(p.Latitude, p.Longitude); err != nil {
		return nil, err
	}
	if err := s.repo.Update(db, p); err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp := dto.NewProviderResponse(p)
	return &resp, nil
}

func (s *ProviderServiceImpl) DeleteProvider(db *gorm.DB, id string) error {
	if err := s.repo.Delete(db, id); err != nil {
		return handleNotFound(err, apperrors.ErrProviderNotFound, repositories.ErrProviderNotFound)
	}
	return nil
}

func checkCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return apperrors.ValidationError(map[string]string{
			"latitude":  "must be between -90 and 90",
			"longitude": "must be between -180 and 180",
		})
	}
	return nil
}
