package services

import (
	"errors"
	"strings"
	"time"

	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/email"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type AuthService interface {
	Register(db *gorm.DB, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(db *gorm.DB, refreshToken string) (*dto.AuthResponse, error)
	Logout(db *gorm.DB, refreshToken string) error
}

// ActivePlanResolver определяет тариф, который попадет в токен
type ActivePlanResolver interface {
	ActivePlanFor(db *gorm.DB, userID string) (auth.PlanInfo, error)
}

type AuthServiceImpl struct {
	userRepo         repositories.UserRepository
	roleRepo         repositories.RoleRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	plans            ActivePlanResolver
	tokenMaker       auth.Maker
	refreshTTL       time.Duration
	emailProvider    email.Provider
	now              Clock
}

func NewAuthService(
	userRepo repositories.UserRepository,
	roleRepo repositories.RoleRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	plans ActivePlanResolver,
	tokenMaker auth.Maker,
	refreshTTL time.Duration,
	emailProvider email.Provider,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:         userRepo,
		roleRepo:         roleRepo,
		refreshTokenRepo: refreshTokenRepo,
		plans:            plans,
		tokenMaker:       tokenMaker,
		refreshTTL:       refreshTTL,
		emailProvider:    emailProvider,
		now:              utcNow,
	}
}

// Register - регистрация нового пользователя с ролью user
func (s *AuthServiceImpl) Register(db *gorm.DB, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	role, err := s.roleRepo.FindByName(tx, models.RoleUser)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		Status:       models.UserStatusActive,
		Roles:        []models.Role{*role},
	}
	if err := s.userRepo.Create(tx, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	resp, err := s.issueTokens(tx, user)
	if err != nil {
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	ctx := dbContext(db)
	logger.CtxInfo(ctx, "user registered", "user_id", user.ID)
	sendEmail(ctx, s.emailProvider, user.Email, "Welcome to NutriPlan", email.TemplateWelcome, email.TemplateData{
		"Name": user.FullName(),
	})
	return resp, nil
}

// Login - аутентификация пользователя
func (s *AuthServiceImpl) Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, apperrors.ErrUserSuspended
	}

	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(tx, user.ID, now); err != nil {
		return nil, apperrors.InternalError(err)
	}
	user.LastLoginAt = &now

	resp, err := s.issueTokens(tx, user)
	if err != nil {
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return resp, nil
}

// RefreshToken меняет refresh-токен на новую пару. Тариф перечитывается,
// поэтому после одобрения подписки достаточно обновить токен.
func (s *AuthServiceImpl) RefreshToken(db *gorm.DB, refreshToken string) (*dto.AuthResponse, error) {
	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	token, err := s.refreshTokenRepo.FindValid(tx, refreshToken, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrRefreshTokenNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.InternalError(err)
	}

	// ротация: старый токен одноразовый
	if err := s.refreshTokenRepo.DeleteByToken(tx, refreshToken); err != nil {
		if errors.Is(err, repositories.ErrRefreshTokenNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.InternalError(err)
	}

	user, err := s.userRepo.FindByID(tx, token.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.InternalError(err)
	}
	if !user.IsActive() {
		return nil, apperrors.ErrUserSuspended
	}

	resp, err := s.issueTokens(tx, user)
	if err != nil {
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout идемпотентен: неизвестный токен не ошибка
func (s *AuthServiceImpl) Logout(db *gorm.DB, refreshToken string) error {
	err := s.refreshTokenRepo.DeleteByToken(db, refreshToken)
	if err != nil && !errors.Is(err, repositories.ErrRefreshTokenNotFound) {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthServiceImpl) issueTokens(tx *gorm.DB, user *models.User) (*dto.AuthResponse, error) {
	plan, err := s.plans.ActivePlanFor(tx, user.ID)
	if err != nil {
		return nil, err
	}

	accessToken, claims, err := s.tokenMaker.GenerateToken(user.ID, user.Email, user.RoleNames(), plan)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.refreshTokenRepo.Create(tx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(claims.ExpiresAt.Sub(claims.IssuedAt.Time).Seconds()),
		User:         dto.NewUserResponse(user),
		Plan:         planInfoDTO(plan),
	}, nil
}

func planInfoDTO(p auth.PlanInfo) dto.PlanInfo {
	return dto.PlanInfo{
		SubscriptionID:     p.SubscriptionID,
		PlanID:             p.PlanID,
		PlanName:           p.PlanName,
		NutritionPlanLimit: p.NutritionPlanLimit,
	}
}

// MeFromClaims - ответ /auth/me
func MeFromClaims(c *auth.Claims) dto.MeResponse {
	resp := dto.MeResponse{
		UserID: c.UserID,
		Email:  c.Email,
		Roles:  c.Roles,
		Plan:   planInfoDTO(c.PlanInfo),
	}
	if c.ExpiresAt != nil {
		resp.ExpiresAt = c.ExpiresAt.Time
	}
	return resp
}
