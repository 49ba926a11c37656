package services

import (
	"errors"

	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/email"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/metrics"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type SubscriptionService interface {
	RequestSubscription(db *gorm.DB, userID string, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetUserSubscriptions(db *gorm.DB, userID string) ([]dto.SubscriptionResponse, error)
	GetActiveSubscription(db *gorm.DB, userID string) (*dto.SubscriptionResponse, error)
	CancelSubscription(db *gorm.DB, userID, subscriptionID string) (*dto.SubscriptionResponse, error)

	// Админ
	ApproveSubscription(db *gorm.DB, adminID, subscriptionID string) (*dto.ApproveResponse, error)
	RejectSubscription(db *gorm.DB, adminID, subscriptionID, reason string) (*dto.SubscriptionResponse, error)
	ListSubscriptions(db *gorm.DB, query *dto.ListSubscriptionsQuery) (*dto.PaginatedResponse, error)

	ActivePlanFor(db *gorm.DB, userID string) (auth.PlanInfo, error)
	ExpireSubscriptions(db *gorm.DB) (int, error)
}

// FreeTier - что получает пользователь без одобренной подписки
type FreeTier struct {
	PlanName           string
	NutritionPlanLimit int
}

type SubscriptionServiceImpl struct {
	repo          repositories.SubscriptionRepository
	userRepo      repositories.UserRepository
	emailProvider email.Provider
	freeTier      FreeTier
	now           Clock
}

func NewSubscriptionService(
	repo repositories.SubscriptionRepository,
	userRepo repositories.UserRepository,
	emailProvider email.Provider,
	freeTier FreeTier,
) *SubscriptionServiceImpl {
	if freeTier.PlanName == "" {
		freeTier.PlanName = "Free"
	}
	return &SubscriptionServiceImpl{
		repo:          repo,
		userRepo:      userRepo,
		emailProvider: emailProvider,
		freeTier:      freeTier,
		now:           utcNow,
	}
}

// RequestSubscription создает заявку PENDING со снимком цены тарифа
func (s *SubscriptionServiceImpl) RequestSubscription(db *gorm.DB, userID string, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	plan, err := s.repo.FindPlanByID(tx, req.PlanID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrPlanNotFound, repositories.ErrSubscriptionPlanNotFound)
	}
	if !plan.IsActive {
		return nil, apperrors.ErrPlanInactive
	}

	pending, err := s.repo.ExistsPending(tx, userID, plan.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if pending {
		return nil, apperrors.ErrSubscriptionPendingExists
	}

	sub := &models.Subscription{
		UserID:   &userID,
		PlanID:   plan.ID,
		Status:   models.SubscriptionStatusPending,
		Amount:   plan.Price,
		Currency: plan.Currency,
	}
	if err := s.repo.Create(tx, sub); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	metrics.RecordSubscriptionTransition(string(sub.Status))
	logger.CtxInfo(dbContext(db), "subscription requested", "subscription_id", sub.ID, "plan_id", plan.ID)

	sub.Plan = *plan
	resp := dto.NewSubscriptionResponse(sub)
	return &resp, nil
}

func (s *SubscriptionServiceImpl) GetUserSubscriptions(db *gorm.DB, userID string) ([]dto.SubscriptionResponse, error) {
	subs, err := s.repo.FindByUser(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp := make([]dto.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		resp = append(resp, dto.NewSubscriptionResponse(&subs[i]))
	}
	return resp, nil
}

func (s *SubscriptionServiceImpl) GetActiveSubscription(db *gorm.DB, userID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.repo.FindApprovedByUser(db, userID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrNoActiveSubscription, repositories.ErrSubscriptionNotFound)
	}
	resp := dto.NewSubscriptionResponse(sub)
	return &resp, nil
}

// CancelSubscription - отмена владельцем: PENDING или APPROVED -> CANCELLED
func (s *SubscriptionServiceImpl) CancelSubscription(db *gorm.DB, userID, subscriptionID string) (*dto.SubscriptionResponse, error) {
	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sub, err := s.repo.FindByIDForUpdate(tx, subscriptionID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrSubscriptionNotFound, repositories.ErrSubscriptionNotFound)
	}
	// чужая подписка неотличима от несуществующей
	if sub.OwnerID() != userID {
		return nil, apperrors.ErrSubscriptionNotFound
	}
	if !sub.Status.CanTransitionTo(models.SubscriptionStatusCancelled) {
		return nil, apperrors.ErrSubscriptionCancelled
	}

	now := s.now()
	sub.Status = models.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	if err := s.repo.Update(tx, sub); err != nil {
		return nil, apperrors.InternalError(err)
	}

	full, err := s.repo.FindByID(tx, sub.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	metrics.RecordSubscriptionTransition(string(sub.Status))
	resp := dto.NewSubscriptionResponse(full)
	return &resp, nil
}

// ApproveSubscription одобряет заявку. В той же транзакции все прочие
// одобренные подписки пользователя переводятся в CANCELLED.
func (s *SubscriptionServiceImpl) ApproveSubscription(db *gorm.DB, adminID, subscriptionID string) (*dto.ApproveResponse, error) {
	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sub, err := s.repo.FindByIDForUpdate(tx, subscriptionID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrSubscriptionNotFound, repositories.ErrSubscriptionNotFound)
	}
	if sub.Status != models.SubscriptionStatusPending {
		return nil, apperrors.ErrSubscriptionNotPending
	}

	if err := s.repo.LockUserSubscriptions(tx, sub.OwnerID()); err != nil {
		return nil, apperrors.InternalError(err)
	}

	plan, err := s.repo.FindPlanByID(tx, sub.PlanID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrPlanNotFound, repositories.ErrSubscriptionPlanNotFound)
	}

	now := s.now()
	cancelled, err := s.repo.CancelApprovedExcept(tx, sub.OwnerID(), sub.ID, now)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	endDate := now.AddDate(0, 0, plan.DurationDays)
	sub.Status = models.SubscriptionStatusApproved
	sub.ApprovedByID = &adminID
	sub.ApprovedAt = &now
	sub.StartDate = &now
	sub.EndDate = &endDate
	if err := s.repo.Update(tx, sub); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := commit(tx); err != nil {
		return nil, err
	}

	ctx := dbContext(db)
	metrics.RecordSubscriptionTransition(string(models.SubscriptionStatusApproved))
	for i := int64(0); i < cancelled; i++ {
		metrics.RecordSubscriptionTransition(string(models.SubscriptionStatusCancelled))
	}
	logger.CtxInfo(ctx, "subscription approved",
		"subscription_id", sub.ID,
		"user_id", sub.OwnerID(),
		"admin_id", adminID,
		"cancelled_previous", cancelled,
	)

	sub.Plan = *plan
	s.notifyDecision(db, sub, email.TemplateSubscriptionApproved, "Your subscription has been approved")

	return &dto.ApproveResponse{
		Subscription:      dto.NewSubscriptionResponse(sub),
		CancelledPrevious: cancelled,
	}, nil
}

func (s *SubscriptionServiceImpl) RejectSubscription(db *gorm.DB, adminID, subscriptionID, reason string) (*dto.SubscriptionResponse, error) {
	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sub, err := s.repo.FindByIDForUpdate(tx, subscriptionID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrSubscriptionNotFound, repositories.ErrSubscriptionNotFound)
	}
	if sub.Status != models.SubscriptionStatusPending {
		return nil, apperrors.ErrSubscriptionNotPending
	}

	sub.Status = models.SubscriptionStatusRejected
	sub.RejectedReason = reason
	if err := s.repo.Update(tx, sub); err != nil {
		return nil, apperrors.InternalError(err)
	}

	full, err := s.repo.FindByID(tx, sub.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	metrics.RecordSubscriptionTransition(string(sub.Status))
	logger.CtxInfo(dbContext(db), "subscription rejected", "subscription_id", sub.ID, "admin_id", adminID)

	s.notifyDecision(db, full, email.TemplateSubscriptionRejected, "Your subscription request was rejected")

	resp := dto.NewSubscriptionResponse(full)
	return &resp, nil
}

func (s *SubscriptionServiceImpl) ListSubscriptions(db *gorm.DB, query *dto.ListSubscriptionsQuery) (*dto.PaginatedResponse, error) {
	page, pageSize := query.Normalize()

	subs, total, err := s.repo.FindWithFilter(db, repositories.SubscriptionFilter{
		Status:   models.SubscriptionStatus(query.Status),
		UserID:   query.UserID,
		PlanID:   query.PlanID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		items = append(items, dto.NewSubscriptionResponse(&subs[i]))
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

// ActivePlanFor - тариф для токена: одобренная неистекшая подписка
// или бесплатный уровень
func (s *SubscriptionServiceImpl) ActivePlanFor(db *gorm.DB, userID string) (auth.PlanInfo, error) {
	free := auth.PlanInfo{
		PlanName:           s.freeTier.PlanName,
		NutritionPlanLimit: s.freeTier.NutritionPlanLimit,
	}

	sub, err := s.repo.FindApprovedByUser(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return free, nil
		}
		return auth.PlanInfo{}, apperrors.InternalError(err)
	}
	if sub.EndDate != nil && !sub.EndDate.After(s.now()) {
		return free, nil
	}

	return auth.PlanInfo{
		SubscriptionID:     sub.ID,
		PlanID:             sub.PlanID,
		PlanName:           sub.Plan.Name,
		NutritionPlanLimit: sub.Plan.NutritionPlanLimit,
	}, nil
}

// ExpireSubscriptions отменяет одобренные подписки с истекшим end_date
func (s *SubscriptionServiceImpl) ExpireSubscriptions(db *gorm.DB) (int, error) {
	tx, err := beginTx(db)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := s.now()
	expired, err := s.repo.FindExpiredApproved(tx, now)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}

	for i := range expired {
		sub := &expired[i]
		sub.Status = models.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		if err := s.repo.Update(tx, sub); err != nil {
			return 0, apperrors.InternalError(err)
		}
	}

	if err := commit(tx); err != nil {
		return 0, err
	}
	for range expired {
		metrics.RecordSubscriptionTransition(string(models.SubscriptionStatusCancelled))
	}
	return len(expired), nil
}

func (s *SubscriptionServiceImpl) notifyDecision(db *gorm.DB, sub *models.Subscription, templateName, subject string) {
	if s.emailProvider == nil {
		return
	}
	ctx := dbContext(db)

	if sub.UserID == nil {
		return
	}
	user, err := s.userRepo.FindByID(db, *sub.UserID)
	if err != nil {
		logger.CtxWithError(ctx, "failed to load user for notification", err, "user_id", *sub.UserID)
		return
	}

	data := email.TemplateData{
		"Name":     user.FullName(),
		"PlanName": sub.Plan.Name,
		"Amount":   sub.Amount,
		"Currency": sub.Currency,
		"Reason":   sub.RejectedReason,
	}
	if sub.EndDate != nil {
		data["EndDate"] = sub.EndDate.Format(models.DateLayout)
	}
	sendEmail(ctx, s.emailProvider, user.Email, subject, templateName, data)
}
