package services

import (
	"errors"
	"math"
	"time"

	"nutriplan_backend/internal/metrics"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type NutritionPlanService interface {
	CreatePlan(db *gorm.DB, userID string, limit dto.NutritionLimit, req *dto.CreateNutritionPlanRequest) (*dto.NutritionPlanResponse, error)
	GetPlan(db *gorm.DB, userID, planID string) (*dto.NutritionPlanResponse, error)
	GetPlanByDate(db *gorm.DB, userID, date string) (*dto.NutritionPlanResponse, error)
	ListPlans(db *gorm.DB, userID string, query *dto.ListNutritionPlansQuery) (*dto.PaginatedResponse, error)
	UpdatePlan(db *gorm.DB, userID, planID string, limit dto.NutritionLimit, req *dto.UpdateNutritionPlanRequest) (*dto.NutritionPlanResponse, error)
	SetCompleted(db *gorm.DB, userID, planID string, completed bool) (*dto.NutritionPlanResponse, error)
	DeletePlan(db *gorm.DB, userID, planID string) error
	GetStats(db *gorm.DB, userID string, query *dto.NutritionStatsQuery) (*dto.NutritionStatsResponse, error)
}

type NutritionPlanServiceImpl struct {
	repo repositories.NutritionPlanRepository
	now  Clock
}

func NewNutritionPlanService(repo repositories.NutritionPlanRepository) *NutritionPlanServiceImpl {
	return &NutritionPlanServiceImpl{repo: repo, now: utcNow}
}

// CreatePlan создает план на дату. Лимит тарифа - число планов
// в календарном месяце даты плана; 0 - без ограничений.
func (s *NutritionPlanServiceImpl) CreatePlan(db *gorm.DB, userID string, limit dto.NutritionLimit, req *dto.CreateNutritionPlanRequest) (*dto.NutritionPlanResponse, error) {
	date, err := parsePlanDate(req.PlanDate)
	if err != nil {
		return nil, err
	}

	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	exists, err := s.repo.ExistsForDate(tx, userID, date, "")
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if exists {
		return nil, apperrors.ErrNutritionPlanDateTaken
	}

	if err := s.checkLimit(tx, userID, date, limit); err != nil {
		return nil, err
	}

	plan := &models.NutritionPlan{
		UserID:    userID,
		PlanDate:  date,
		Breakfast: req.Breakfast,
		Lunch:     req.Lunch,
		Dinner:    req.Dinner,
		Snacks:    req.Snacks,
		Calories:  req.Calories,
		Protein:   req.Protein,
		Carbs:     req.Carbs,
		Fats:      req.Fats,
		Notes:     req.Notes,
	}
	if err := s.repo.Create(tx, plan); err != nil {
		if errors.Is(err, repositories.ErrNutritionPlanDateTaken) {
			return nil, apperrors.ErrNutritionPlanDateTaken
		}
		return nil, apperrors.InternalError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	metrics.RecordNutritionPlanCreated()
	resp := dto.NewNutritionPlanResponse(plan)
	return &resp, nil
}

func (s *NutritionPlanServiceImpl) GetPlan(db *gorm.DB, userID, planID string) (*dto.NutritionPlanResponse, error) {
	plan, err := s.repo.FindByID(db, userID, planID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrNutritionPlanNotFound, repositories.ErrNutritionPlanNotFound)
	}
	resp := dto.NewNutritionPlanResponse(plan)
	return &resp, nil
}

func (s *NutritionPlanServiceImpl) GetPlanByDate(db *gorm.DB, userID, date string) (*dto.NutritionPlanResponse, error) {
	d, err := parsePlanDate(date)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.FindByDate(db, userID, d)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrNutritionPlanNotFound, repositories.ErrNutritionPlanNotFound)
	}
	resp := dto.NewNutritionPlanResponse(plan)
	return &resp, nil
}

func (s *NutritionPlanServiceImpl) ListPlans(db *gorm.DB, userID string, query *dto.ListNutritionPlansQuery) (*dto.PaginatedResponse, error) {
	page, pageSize := query.Normalize()
	filter := repositories.NutritionPlanFilter{
		UserID:    userID,
		Completed: query.Completed,
		Page:      page,
		PageSize:  pageSize,
	}

	if query.From != "" {
		from, err := parsePlanDate(query.From)
		if err != nil {
			return nil, err
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := parsePlanDate(query.To)
		if err != nil {
			return nil, err
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, apperrors.NewBadRequestError("'from' cannot be after 'to'")
	}

	plans, total, err := s.repo.FindWithFilter(db, filter)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.NutritionPlanResponse, 0, len(plans))
	for i := range plans {
		items = append(items, dto.NewNutritionPlanResponse(&plans[i]))
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

// UpdatePlan меняет переданные поля. При смене даты заново проверяются
// уникальность и лимит месяца, если месяц другой.
func (s *NutritionPlanServiceImpl) UpdatePlan(db *gorm.DB, userID, planID string, limit dto.NutritionLimit, req *dto.UpdateNutritionPlanRequest) (*dto.NutritionPlanResponse, error) {
	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	plan, err := s.repo.FindByID(tx, userID, planID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrNutritionPlanNotFound, repositories.ErrNutritionPlanNotFound)
	}

	if req.PlanDate != nil {
		date, err := parsePlanDate(*req.PlanDate)
		if err != nil {
			return nil, err
		}
		if !date.Equal(plan.PlanDate) {
			exists, err := s.repo.ExistsForDate(tx, userID, date, plan.ID)
			if err != nil {
				return nil, apperrors.InternalError(err)
			}
			if exists {
				return nil, apperrors.ErrNutritionPlanDateTaken
			}

			oldStart, _ := models.MonthRange(plan.PlanDate)
			newStart, _ := models.MonthRange(date)
			if !oldStart.Equal(newStart) {
				if err := s.checkLimit(tx, userID, date, limit); err != nil {
					return nil, err
				}
			}
			plan.PlanDate = date
		}
	}

	applyString(&plan.Breakfast, req.Breakfast)
	applyString(&plan.Lunch, req.Lunch)
	applyString(&plan.Dinner, req.Dinner)
	applyString(&plan.Snacks, req.Snacks)
	applyString(&plan.Notes, req.Notes)
	if req.Calories != nil {
		plan.Calories = *req.Calories
	}
	applyFloat(&plan.Protein, req.Protein)
	applyFloat(&plan.Carbs, req.Carbs)
	applyFloat(&plan.Fats, req.Fats)

	if err := s.repo.Update(tx, plan); err != nil {
		if errors.Is(err, repositories.ErrNutritionPlanDateTaken) {
			return nil, apperrors.ErrNutritionPlanDateTaken
		}
		return nil, apperrors.InternalError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	resp := dto.NewNutritionPlanResponse(plan)
	return &resp, nil
}

func (s *NutritionPlanServiceImpl) SetCompleted(db *gorm.DB, userID, planID string, completed bool) (*dto.NutritionPlanResponse, error) {
	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	plan, err := s.repo.FindByID(tx, userID, planID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrNutritionPlanNotFound, repositories.ErrNutritionPlanNotFound)
	}

	// повторная отметка не сдвигает completed_at
	if plan.Completed != completed {
		plan.SetCompleted(completed, s.now())
		if err := s.repo.Update(tx, plan); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	resp := dto.NewNutritionPlanResponse(plan)
	return &resp, nil
}

func (s *NutritionPlanServiceImpl) DeletePlan(db *gorm.DB, userID, planID string) error {
	if err := s.repo.Delete(db, userID, planID); err != nil {
		return handleNotFound(err, apperrors.ErrNutritionPlanNotFound, repositories.ErrNutritionPlanNotFound)
	}
	return nil
}

// GetStats - по умолчанию текущий календарный месяц
func (s *NutritionPlanServiceImpl) GetStats(db *gorm.DB, userID string, query *dto.NutritionStatsQuery) (*dto.NutritionStatsResponse, error) {
	monthStart, nextMonth := models.MonthRange(s.now())
	from, to := monthStart, nextMonth.AddDate(0, 0, -1)

	var err error
	if query.From != "" {
		if from, err = parsePlanDate(query.From); err != nil {
			return nil, err
		}
	}
	if query.To != "" {
		if to, err = parsePlanDate(query.To); err != nil {
			return nil, err
		}
	}
	if from.After(to) {
		return nil, apperrors.NewBadRequestError("'from' cannot be after 'to'")
	}

	stats, err := s.repo.GetStats(db, userID, from, to)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.NutritionStatsResponse{
		From:           from.Format(models.DateLayout),
		To:             to.Format(models.DateLayout),
		Total:          stats.Total,
		Completed:      stats.Completed,
		CompletionRate: completionRate(stats.Completed, stats.Total),
		AvgCalories:    round2(stats.AvgCalories),
	}, nil
}

func (s *NutritionPlanServiceImpl) checkLimit(tx *gorm.DB, userID string, date time.Time, limit dto.NutritionLimit) error {
	if limit.Limit <= 0 {
		return nil
	}

	from, to := models.MonthRange(date)
	used, err := s.repo.CountInRange(tx, userID, from, to)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if used >= int64(limit.Limit) {
		return apperrors.ErrNutritionPlanLimit.WithDetails(map[string]interface{}{
			"plan_name": limit.PlanName,
			"limit":     limit.Limit,
			"used":      used,
			"month":     from.Format("2006-01"),
		})
	}
	return nil
}

func parsePlanDate(s string) (time.Time, error) {
	d, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, apperrors.NewBadRequestError("Invalid date format. Use YYYY-MM-DD")
	}
	return d, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// completionRate в процентах, два знака
func completionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(completed) * 100 / float64(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
