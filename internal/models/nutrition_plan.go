package models

import "time"

// NutritionPlan - план питания пользователя на один день
type NutritionPlan struct {
	BaseModel
	UserID      string     `gorm:"type:uuid;not null;uniqueIndex:ux_nutrition_plans_user_date,priority:1" json:"user_id"`
	PlanDate    time.Time  `gorm:"type:date;not null;uniqueIndex:ux_nutrition_plans_user_date,priority:2;index" json:"plan_date"`
	Breakfast   string     `gorm:"type:text" json:"breakfast"`
	Lunch       string     `gorm:"type:text" json:"lunch"`
	Dinner      string     `gorm:"type:text" json:"dinner"`
	Snacks      string     `gorm:"type:text" json:"snacks"`
	Calories    int        `json:"calories"`
	Protein     float64    `json:"protein"`
	Carbs       float64    `json:"carbs"`
	Fats        float64    `json:"fats"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SetCompleted переключает флаг и время выполнения вместе
func (p *NutritionPlan) SetCompleted(completed bool, now time.Time) {
	p.Completed = completed
	if completed {
		p.CompletedAt = &now
	} else {
		p.CompletedAt = nil
	}
}
