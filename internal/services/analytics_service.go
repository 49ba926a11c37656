package services

import (
	"time"

	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const defaultDashboardDays = 30

type AnalyticsService interface {
	GetDashboard(db *gorm.DB, dateFrom, dateTo string) (*dto.DashboardResponse, error)
}

type AnalyticsServiceImpl struct {
	analyticsRepo repositories.AnalyticsRepository
	userRepo      repositories.UserRepository
	nutritionRepo repositories.NutritionPlanRepository
	chatRepo      repositories.ChatRepository
	providerRepo  repositories.ServiceProviderRepository
	now           Clock
}

func NewAnalyticsService(
	analyticsRepo repositories.AnalyticsRepository,
	userRepo repositories.UserRepository,
	nutritionRepo repositories.NutritionPlanRepository,
	chatRepo repositories.ChatRepository,
	providerRepo repositories.ServiceProviderRepository,
) *AnalyticsServiceImpl {
	return &AnalyticsServiceImpl{
		analyticsRepo: analyticsRepo,
		userRepo:      userRepo,
		nutritionRepo: nutritionRepo,
		chatRepo:      chatRepo,
		providerRepo:  providerRepo,
		now:           utcNow,
	}
}

// GetDashboard собирает агрегаты за [date_from, date_to] включительно.
// По умолчанию - последние 30 дней.
func (s *AnalyticsServiceImpl) GetDashboard(db *gorm.DB, dateFrom, dateTo string) (*dto.DashboardResponse, error) {
	now := s.now()
	to := models.NormalizeDate(now)
	from := to.AddDate(0, 0, -defaultDashboardDays)

	var err error
	if dateFrom != "" {
		if from, err = parsePlanDate(dateFrom); err != nil {
			return nil, err
		}
	}
	if dateTo != "" {
		if to, err = parsePlanDate(dateTo); err != nil {
			return nil, err
		}
	}
	if from.After(to) {
		return nil, apperrors.NewBadRequestError("date_from cannot be after date_to")
	}
	// полуинтервал для временных меток
	end := to.Add(24 * time.Hour)

	resp := &dto.DashboardResponse{
		DateFrom:    from,
		DateTo:      to,
		GeneratedAt: now,
	}

	if resp.Users.Total, err = s.userRepo.CountAll(db); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if resp.Users.NewInRange, err = s.userRepo.CountCreatedBetween(db, from, end); err != nil {
		return nil, apperrors.InternalError(err)
	}

	byStatus, err := s.analyticsRepo.CountSubscriptionsByStatus(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp.Subscriptions.ByStatus = make(map[string]int64, len(byStatus))
	for status, count := range byStatus {
		resp.Subscriptions.ByStatus[string(status)] = count
	}
	resp.Subscriptions.Pending = byStatus[models.SubscriptionStatusPending]
	resp.Subscriptions.Active = byStatus[models.SubscriptionStatusApproved]
	if resp.Subscriptions.ApprovedInRange, err = s.analyticsRepo.CountApprovedBetween(db, from, end); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if resp.Revenue.Total, err = s.analyticsRepo.GetRevenue(db, from, end); err != nil {
		return nil, apperrors.InternalError(err)
	}
	byPlan, err := s.analyticsRepo.GetRevenueByPlan(db, from, end)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp.Revenue.Total = round2(resp.Revenue.Total)
	resp.Revenue.ByPlan = make([]dto.PlanRevenue, 0, len(byPlan))
	for _, p := range byPlan {
		resp.Revenue.ByPlan = append(resp.Revenue.ByPlan, dto.PlanRevenue{
			PlanID:        p.PlanID,
			PlanName:      p.PlanName,
			Subscriptions: p.Subscriptions,
			Revenue:       round2(p.Revenue),
		})
	}

	nutrition, err := s.nutritionRepo.GetStats(db, "", from, to)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp.Nutrition = dto.NutritionStatsBlock{
		Total:          nutrition.Total,
		Completed:      nutrition.Completed,
		CompletionRate: completionRate(nutrition.Completed, nutrition.Total),
		AvgCalories:    round2(nutrition.AvgCalories),
	}

	chat, err := s.chatRepo.CountByStatus(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	for _, count := range chat {
		resp.Chat.Total += count
	}
	resp.Chat.Pending = chat[models.ChatMessageStatusPending]
	resp.Chat.Failed = chat[models.ChatMessageStatusFailed]

	if resp.Providers.Active, err = s.providerRepo.CountActive(db); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return resp, nil
}
