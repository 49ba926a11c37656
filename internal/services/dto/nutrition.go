package dto

import (
	"time"

	"nutriplan_backend/internal/models"
)

type CreateNutritionPlanRequest struct {
	PlanDate  string  `json:"plan_date" validate:"required,is-plan-date"`
	Breakfast string  `json:"breakfast" validate:"omitempty,max=2000"`
	Lunch     string  `json:"lunch" validate:"omitempty,max=2000"`
	Dinner    string  `json:"dinner" validate:"omitempty,max=2000"`
	Snacks    string  `json:"snacks" validate:"omitempty,max=2000"`
	Calories  int     `json:"calories" validate:"gte=0,lte=20000"`
	Protein   float64 `json:"protein" validate:"gte=0,lte=2000"`
	Carbs     float64 `json:"carbs" validate:"gte=0,lte=2000"`
	Fats      float64 `json:"fats" validate:"gte=0,lte=2000"`
	Notes     string  `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateNutritionPlanRequest - nil-поля не меняются
type UpdateNutritionPlanRequest struct {
	PlanDate  *string  `json:"plan_date" validate:"omitempty,is-plan-date"`
	Breakfast *string  `json:"breakfast" validate:"omitempty,max=2000"`
	Lunch     *string  `json:"lunch" validate:"omitempty,max=2000"`
	Dinner    *string  `json:"dinner" validate:"omitempty,max=2000"`
	Snacks    *string  `json:"snacks" validate:"omitempty,max=2000"`
	Calories  *int     `json:"calories" validate:"omitempty,gte=0,lte=20000"`
	Protein   *float64 `json:"protein" validate:"omitempty,gte=0,lte=2000"`
	Carbs     *float64 `json:"carbs" validate:"omitempty,gte=0,lte=2000"`
	Fats      *float64 `json:"fats" validate:"omitempty,gte=0,lte=2000"`
	Notes     *string  `json:"notes" validate:"omitempty,max=2000"`
}

type SetCompletedRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

type ListNutritionPlansQuery struct {
	PageQuery
	From      string `form:"from" validate:"omitempty,is-plan-date"`
	To        string `form:"to" validate:"omitempty,is-plan-date"`
	Completed *bool  `form:"completed"`
}

type NutritionStatsQuery struct {
	From string `form:"from" validate:"omitempty,is-plan-date"`
	To   string `form:"to" validate:"omitempty,is-plan-date"`
}

type NutritionPlanResponse struct {
	ID          string     `json:"id"`
	PlanDate    string     `json:"plan_date"`
	Breakfast   string     `json:"breakfast"`
	Lunch       string     `json:"lunch"`
	Dinner      string     `json:"dinner"`
	Snacks      string     `json:"snacks"`
	Calories    int        `json:"calories"`
	Protein     float64    `json:"protein"`
	Carbs       float64    `json:"carbs"`
	Fats        float64    `json:"fats"`
	Notes       string     `json:"notes,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewNutritionPlanResponse(p *models.NutritionPlan) NutritionPlanResponse {
	return NutritionPlanResponse{
		ID:          p.ID,
		PlanDate:    p.PlanDate.Format(models.DateLayout),
		Breakfast:   p.Breakfast,
		Lunch:       p.Lunch,
		Dinner:      p.Dinner,
		Snacks:      p.Snacks,
		Calories:    p.Calories,
		Protein:     p.Protein,
		Carbs:       p.Carbs,
		Fats:        p.Fats,
		Notes:       p.Notes,
		Completed:   p.Completed,
		CompletedAt: p.CompletedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type NutritionStatsResponse struct {
	From           string  `json:"from"`
	To             string  `json:"to"`
	Total          int64   `json:"total"`
	Completed      int64   `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
	AvgCalories    float64 `json:"avg_calories"`
}

// NutritionLimit - лимит из токена текущего запроса
type NutritionLimit struct {
	PlanName string
	Limit    int // 0 - без ограничений
}
