package dto

import "time"

// RegisterRequest - запрос регистрации
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
}

// LoginRequest - запрос входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest - запрос обновления токена
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest - запрос выхода
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse - ответ с токенами
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
	Plan         PlanInfo     `json:"plan"`
}

// PlanInfo - тариф, зашитый в access-токен
type PlanInfo struct {
	SubscriptionID     string `json:"subscription_id,omitempty"`
	PlanID             string `json:"plan_id,omitempty"`
	PlanName           string `json:"plan_name"`
	NutritionPlanLimit int    `json:"nutrition_plan_limit"`
}

// MeResponse - содержимое текущего токена
type MeResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Plan      PlanInfo  `json:"plan"`
	ExpiresAt time.Time `json:"expires_at"`
}
