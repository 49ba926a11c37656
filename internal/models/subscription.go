package models

import (
	"time"

	"gorm.io/datatypes"
)

type SubscriptionPlan struct {
	BaseModel
	Name         string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description"`
	Price        float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	Currency     string  `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	DurationDays int     `gorm:"not null;default:30" json:"duration_days"`
	// Планов питания в календарный месяц, 0 - без ограничений
	NutritionPlanLimit int            `gorm:"not null;default:0" json:"nutrition_plan_limit"`
	Features           datatypes.JSON `json:"features,omitempty"`
	IsActive           bool           `gorm:"not null" json:"is_active"`
}

type Subscription struct {
	BaseModel
	// UserID обнуляется при удалении пользователя, история платежей остается
	UserID         *string            `gorm:"type:uuid;index" json:"user_id"`
	PlanID         string             `gorm:"type:uuid;not null;index" json:"plan_id"`
	Status         SubscriptionStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Amount         float64            `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency       string             `gorm:"type:varchar(3);not null" json:"currency"`
	ApprovedByID   *string            `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time         `json:"approved_at,omitempty"`
	RejectedReason string             `json:"rejected_reason,omitempty"`
	StartDate      *time.Time         `json:"start_date,omitempty"`
	EndDate        *time.Time         `json:"end_date,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`

	User       *User            `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Plan       SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan"`
	ApprovedBy *User            `gorm:"foreignKey:ApprovedByID;constraint:OnDelete:SET NULL" json:"-"`
}

// OwnerID - id владельца или "" для подписки удаленного пользователя
func (s *Subscription) OwnerID() string {
	if s.UserID == nil {
		return ""
	}
	return *s.UserID
}
