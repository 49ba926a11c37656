package services

import (
	"errors"

	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/repositories"
	"nutriplan_backend/internal/services/dto"
	"nutriplan_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type UserService interface {
	GetProfile(db *gorm.DB, userID string) (*dto.UserResponse, error)
	UpdateProfile(db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	ChangePassword(db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error

	// Admin
	ListUsers(db *gorm.DB, query *dto.ListUsersQuery) (*dto.PaginatedResponse, error)
	GetUser(db *gorm.DB, userID string) (*dto.UserResponse, error)
	SetRoles(db *gorm.DB, adminID, userID string, roles []string) (*dto.UserResponse, error)
	SetStatus(db *gorm.DB, adminID, userID string, status models.UserStatus) (*dto.UserResponse, error)
	DeleteUser(db *gorm.DB, adminID, userID string) error
}

type UserServiceImpl struct {
	userRepo         repositories.UserRepository
	roleRepo         repositories.RoleRepository
	refreshTokenRepo repositories.RefreshTokenRepository
}

func NewUserService(
	userRepo repositories.UserRepository,
	roleRepo repositories.RoleRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
) *UserServiceImpl {
	return &UserServiceImpl{
		userRepo:         userRepo,
		roleRepo:         roleRepo,
		refreshTokenRepo: refreshTokenRepo,
	}
}

func (s *UserServiceImpl) GetProfile(db *gorm.DB, userID string) (*dto.UserResponse, error) {
	user, err := s.findUser(db, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

func (s *UserServiceImpl) UpdateProfile(db *gorm.DB, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.findUser(db, userID)
	if err != nil {
		return nil, err
	}

	applyString(&user.FirstName, req.FirstName)
	applyString(&user.LastName, req.LastName)
	applyString(&user.Phone, req.Phone)

	if err := s.userRepo.Update(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// ChangePassword меняет пароль и отзывает все refresh-токены:
// остальные сессии доживут только до истечения access-токена.
func (s *UserServiceImpl) ChangePassword(db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.findUser(db, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	tx, err := beginTx(db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.userRepo.UpdatePassword(tx, userID, hash); err != nil {
		return handleNotFound(err, apperrors.ErrUserNotFound, repositories.ErrUserNotFound)
	}
	if err := s.refreshTokenRepo.DeleteByUserID(tx, userID); err != nil {
		return apperrors.InternalError(err)
	}
	if err := commit(tx); err != nil {
		return err
	}

	logger.CtxInfo(dbContext(db), "password changed", "user_id", userID)
	return nil
}

func (s *UserServiceImpl) ListUsers(db *gorm.DB, query *dto.ListUsersQuery) (*dto.PaginatedResponse, error) {
	page, pageSize := query.Normalize()
	users, total, err := s.userRepo.FindWithFilter(db, repositories.UserFilter{
		Search:   query.Search,
		Role:     query.Role,
		Status:   models.UserStatus(query.Status),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return dto.NewPaginatedResponse(items, total, page, pageSize), nil
}

func (s *UserServiceImpl) GetUser(db *gorm.DB, userID string) (*dto.UserResponse, error) {
	return s.GetProfile(db, userID)
}

// SetRoles заменяет набор ролей. Админ не может снять роль admin с себя.
func (s *UserServiceImpl) SetRoles(db *gorm.DB, adminID, userID string, roles []string) (*dto.UserResponse, error) {
	names := uniqueStrings(roles)
	if adminID == userID && !containsString(names, models.RoleAdmin) {
		return nil, apperrors.ErrCannotModifySelf
	}

	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user, err := s.findUser(tx, userID)
	if err != nil {
		return nil, err
	}

	roleRows, err := s.roleRepo.FindByNames(tx, names)
	if err != nil {
		if errors.Is(err, repositories.ErrRoleNotFound) {
			return nil, apperrors.ErrUnknownRole
		}
		return nil, apperrors.InternalError(err)
	}
	if len(roleRows) != len(names) {
		return nil, apperrors.ErrUnknownRole
	}

	if err := s.userRepo.ReplaceRoles(tx, user, roleRows); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(dbContext(db), "user roles changed", "user_id", userID, "roles", names, "admin_id", adminID)
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// SetStatus блокирует или разблокирует пользователя. При блокировке
// refresh-токены удаляются, чтобы сессия не продлевалась.
func (s *UserServiceImpl) SetStatus(db *gorm.DB, adminID, userID string, status models.UserStatus) (*dto.UserResponse, error) {
	if !status.IsValid() {
		return nil, apperrors.NewBadRequestError("Invalid user status")
	}
	if adminID == userID && status != models.UserStatusActive {
		return nil, apperrors.ErrCannotModifySelf
	}

	tx, err := beginTx(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user, err := s.findUser(tx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateStatus(tx, userID, status); err != nil {
		return nil, handleNotFound(err, apperrors.ErrUserNotFound, repositories.ErrUserNotFound)
	}
	if status == models.UserStatusSuspended {
		if err := s.refreshTokenRepo.DeleteByUserID(tx, userID); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	user.Status = status
	logger.CtxInfo(dbContext(db), "user status changed", "user_id", userID, "status", status, "admin_id", adminID)
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

func (s *UserServiceImpl) DeleteUser(db *gorm.DB, adminID, userID string) error {
	if adminID == userID {
		return apperrors.ErrCannotModifySelf
	}
	if err := s.userRepo.Delete(db, userID); err != nil {
		return handleNotFound(err, apperrors.ErrUserNotFound, repositories.ErrUserNotFound)
	}

	logger.CtxInfo(dbContext(db), "user deleted", "user_id", userID, "admin_id", adminID)
	return nil
}

func (s *UserServiceImpl) findUser(db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, handleNotFound(err, apperrors.ErrUserNotFound, repositories.ErrUserNotFound)
	}
	return user, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
