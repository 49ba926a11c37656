package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"nutriplan_backend/internal/cache"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanService interface {
	ListActivePlans(db *gorm.DB) ([]dto.PlanResponse, error)
	ListAllPlans(db *gorm.DB) ([]dto.PlanResponse, error)
	GetPlan(db *gorm.DB, planID string, includeInactive bool) (*dto.PlanResponse, error)
	CreatePlan(db *gorm.DB, req *dto.CreatePlanRequest) (*dto.PlanResponse, error)
	UpdatePlan(db *gorm.DB, planID string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error)
	// DeletePlan удаляет тариф; если на него есть подписки - только деактивирует
	DeletePlan(db *gorm.DB, planID string) (deactivated bool, err error)
}

// PlanCache - кэш каталога тарифов
type PlanCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

type PlanServiceImpl struct {
	repo  repositories.SubscriptionRepository
	cache PlanCache
}

func NewPlanService(repo repositories.SubscriptionRepository, planCache PlanCache) *PlanServiceImpl {
	return &PlanServiceImpl{repo: repo, cache: planCache}
}

func (s *PlanServiceImpl) ListActivePlans(db *gorm.DB) ([]dto.PlanResponse, error) {
	ctx := dbContext(db)

	var cached []dto.PlanResponse
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, cache.KeyActivePlans, &cached)
		if err != nil {
			logger.CtxWithError(ctx, "plan cache read failed", err)
		}
		if hit {
			return cached, nil
		}
	}

	plans, err := s.repo.FindActivePlans(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp := toPlanResponses(plans)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.KeyActivePlans, resp); err != nil {
			logger.CtxWithError(ctx, "plan cache write failed", err)
		}
	}
	return resp, nil
}

func (s *PlanServiceImpl) ListAllPlans(db *gorm.DB) ([]dto.PlanResponse, error) {
	plans, err := s.repo.FindAllPlans(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return toPlanResponses(plans), nil
}

func (s *PlanServiceImpl) GetPlan(db *gorm.DB, planID string, includeInactive bool) (*dto.PlanResponse, error) {
	plan, err := s.repo.FindPlanByID(db, planID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrPlanNotFound, repositories.ErrSubscriptionPlanNotFound)
	}
	if !plan.IsActive && !includeInactive {
		return nil, apperrors.ErrPlanNotFound
	}
	resp := dto.NewPlanResponse(plan)
	return &resp, nil
}

func (s *PlanServiceImpl) CreatePlan(db *gorm.DB, req *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	features, err := marshalStrings(req.Features)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	plan := &models.SubscriptionPlan{
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		Price:              req.Price,
		Currency:           req.Currency,
		DurationDays:       req.DurationDays,
		NutritionPlanLimit: req.NutritionPlanLimit,
		Features:           features,
		IsActive:           true,
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := s.repo.CreatePlan(db, plan); err != nil {
		if errors.Is(err, repositories.ErrPlanAlreadyExists) {
			return nil, apperrors.ErrPlanNameTaken
		}
		return nil, apperrors.InternalError(err)
	}

	s.invalidate(db, plan.ID)
	resp := dto.NewPlanResponse(plan)
	return &resp, nil
}

func (s *PlanServiceImpl) UpdatePlan(db *gorm.DB, planID string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error) {
	plan, err := s.repo.FindPlanByID(db, planID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrPlanNotFound, repositories.ErrSubscriptionPlanNotFound)
	}

	if req.Name != nil {
		plan.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.Currency != nil {
		plan.Currency = *req.Currency
	}
	if req.DurationDays != nil {
		plan.DurationDays = *req.DurationDays
	}
	if req.NutritionPlanLimit != nil {
		plan.NutritionPlanLimit = *req.NutritionPlanLimit
	}
	if req.Features != nil {
		features, err := marshalStrings(req.Features)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		plan.Features = features
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := s.repo.UpdatePlan(db, plan); err != nil {
		if errors.Is(err, repositories.ErrPlanAlreadyExists) {
			return nil, apperrors.ErrPlanNameTaken
		}
		return nil, apperrors.InternalError(err)
	}

	s.invalidate(db, plan.ID)
	resp := dto.NewPlanResponse(plan)
	return &resp, nil
}

func (s *PlanServiceImpl) DeletePlan(db *gorm.DB, planID string) (bool, error) {
	tx, err := beginTx(db)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	plan, err := s.repo.FindPlanByID(tx, planID)
	if err != nil {
		return false, handleNotFound(err, apperrors.ErrPlanNotFound, repositories.ErrSubscriptionPlanNotFound)
	}

	used, err := s.repo.CountByPlan(tx, planID)
	if err != nil {
		return false, apperrors.InternalError(err)
	}

	deactivated := used > 0
	if deactivated {
		// на тариф ссылаются подписки (и суммы в отчетах), удалять нельзя
		plan.IsActive = false
		err = s.repo.UpdatePlan(tx, plan)
	} else {
		err = s.repo.DeletePlan(tx, planID)
	}
	if err != nil {
		return false, apperrors.InternalError(err)
	}

	if err := commit(tx); err != nil {
		return false, err
	}
	s.invalidate(db, planID)
	return deactivated, nil
}

func (s *PlanServiceImpl) invalidate(db *gorm.DB, planID string) {
	if s.cache == nil {
		return
	}
	ctx := dbContext(db)
	if err := s.cache.Invalidate(ctx, cache.KeyActivePlans, cache.PlanKey(planID)); err != nil {
		logger.CtxWithError(ctx, "plan cache invalidation failed", err, "plan_id", planID)
	}
}

func toPlanResponses(plans []models.SubscriptionPlan) []dto.PlanResponse {
	resp := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		resp = append(resp, dto.NewPlanResponse(&plans[i]))
	}
	return resp
}

func marshalStrings(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
