package dto

import "time"

type DashboardResponse struct {
	DateFrom      time.Time           `json:"date_from"`
	DateTo        time.Time           `json:"date_to"`
	Users         UserStats           `json:"users"`
	Subscriptions SubscriptionStats   `json:"subscriptions"`
	Revenue       RevenueStats        `json:"revenue"`
	Nutrition     NutritionStatsBlock `json:"nutrition"`
	Chat          ChatStats           `json:"chat"`
	Providers     ProviderStats       `json:"providers"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

type UserStats struct {
	Total      int64 `json:"total"`
	NewInRange int64 `json:"new_in_range"`
}

type SubscriptionStats struct {
	ByStatus        map[string]int64 `json:"by_status"`
	Pending         int64            `json:"pending"`
	Active          int64            `json:"active"`
	ApprovedInRange int64            `json:"approved_in_range"`
}

type RevenueStats struct {
	Total  float64       `json:"total"`
	ByPlan []PlanRevenue `json:"by_plan"`
}

type PlanRevenue struct {
	PlanID        string  `json:"plan_id"`
	PlanName      string  `json:"plan_name"`
	Subscriptions int64   `json:"subscriptions"`
	Revenue       float64 `json:"revenue"`
}

type NutritionStatsBlock struct {
	Total          int64   `json:"total"`
	Completed      int64   `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
	AvgCalories    float64 `json:"avg_calories"`
}

type ChatStats struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
}

type ProviderStats struct {
	Active int64 `json:"active"`
}
