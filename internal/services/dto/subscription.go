package dto

import (
	"encoding/json"
	"time"

	"nutriplan_backend/internal/models"
)

// --- Plans ---

type CreatePlanRequest struct {
	Name               string   `json:"name" validate:"required,max=100"`
	Description        string   `json:"description" validate:"omitempty,max=2000"`
	Price              float64  `json:"price" validate:"gte=0"`
	Currency           string   `json:"currency" validate:"required,is-currency"`
	DurationDays       int      `json:"duration_days" validate:"required,gte=1,lte=3650"`
	NutritionPlanLimit int      `json:"nutrition_plan_limit" validate:"gte=0"`
	Features           []string `json:"features" validate:"omitempty,dive,max=200"`
	IsActive           *bool    `json:"is_active"`
}

type UpdatePlanRequest struct {
	Name               *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description        *string  `json:"description" validate:"omitempty,max=2000"`
	Price              *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency           *string  `json:"currency" validate:"omitempty,is-currency"`
	DurationDays       *int     `json:"duration_days" validate:"omitempty,gte=1,lte=3650"`
	NutritionPlanLimit *int     `json:"nutrition_plan_limit" validate:"omitempty,gte=0"`
	Features           []string `json:"features" validate:"omitempty,dive,max=200"`
	IsActive           *bool    `json:"is_active"`
}

type PlanResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Price              float64   `json:"price"`
	Currency           string    `json:"currency"`
	DurationDays       int       `json:"duration_days"`
	NutritionPlanLimit int       `json:"nutrition_plan_limit"`
	Features           []string  `json:"features"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

func NewPlanResponse(p *models.SubscriptionPlan) PlanResponse {
	features := []string{}
	if len(p.Features) > 0 {
		_ = json.Unmarshal(p.Features, &features)
	}
	return PlanResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price,
		Currency:           p.Currency,
		DurationDays:       p.DurationDays,
		NutritionPlanLimit: p.NutritionPlanLimit,
		Features:           features,
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
	}
}

// --- Subscriptions ---

type CreateSubscriptionRequest struct {
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

type RejectSubscriptionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type ListSubscriptionsQuery struct {
	PageQuery
	Status string `form:"status" validate:"omitempty,is-subscription-status"`
	UserID string `form:"user_id" validate:"omitempty,uuid"`
	PlanID string `form:"plan_id" validate:"omitempty,uuid"`
}

type SubscriptionResponse struct {
	ID             string                    `json:"id"`
	UserID         string                    `json:"user_id,omitempty"`
	UserEmail      string                    `json:"user_email,omitempty"`
	PlanID         string                    `json:"plan_id"`
	PlanName       string                    `json:"plan_name"`
	Status         models.SubscriptionStatus `json:"status"`
	Amount         float64                   `json:"amount"`
	Currency       string                    `json:"currency"`
	ApprovedBy     *string                   `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time                `json:"approved_at,omitempty"`
	RejectedReason string                    `json:"rejected_reason,omitempty"`
	StartDate      *time.Time                `json:"start_date,omitempty"`
	EndDate        *time.Time                `json:"end_date,omitempty"`
	CancelledAt    *time.Time                `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}

func NewSubscriptionResponse(s *models.Subscription) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:             s.ID,
		UserID:         s.OwnerID(),
		PlanID:         s.PlanID,
		PlanName:       s.Plan.Name,
		Status:         s.Status,
		Amount:         s.Amount,
		Currency:       s.Currency,
		ApprovedBy:     s.ApprovedByID,
		ApprovedAt:     s.ApprovedAt,
		RejectedReason: s.RejectedReason,
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		CancelledAt:    s.CancelledAt,
		CreatedAt:      s.CreatedAt,
	}
	if s.User != nil {
		resp.UserEmail = s.User.Email
	}
	return resp
}

// ApproveResponse - одобренная подписка и число отмененных предыдущих
type ApproveResponse struct {
	Subscription      SubscriptionResponse `json:"subscription"`
	CancelledPrevious int64                `json:"cancelled_previous"`
}
