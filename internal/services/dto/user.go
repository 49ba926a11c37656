package dto

import (
	"time"

	"nutriplan_backend/internal/models"
)

type UserResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Phone       string            `json:"phone,omitempty"`
	Status      models.UserStatus `json:"status"`
	Roles       []string          `json:"roles"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Status:      u.Status,
		Roles:       u.RoleNames(),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// UpdateProfileRequest - nil-поля не меняются
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type ListUsersQuery struct {
	PageQuery
	Search string `form:"search" validate:"omitempty,max=100"`
	Role   string `form:"role" validate:"omitempty,is-role-name"`
	Status string `form:"status" validate:"omitempty,oneof=active suspended"`
}

type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,is-role-name"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}
