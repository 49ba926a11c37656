package auth

import "nutriplan_backend/internal/models"

const (
	PermPlansManage         = "plans:manage"
	PermSubscriptionsReview = "subscriptions:review"
	PermUsersManage         = "users:manage"
	PermProvidersManage     = "providers:manage"
	PermChatReply           = "chat:reply"
	PermDashboardView       = "dashboard:view"
	PermNutritionOwn        = "nutrition:own"
	PermSubscriptionsOwn    = "subscriptions:own"
	PermChatOwn             = "chat:own"
)

// Permissions - разрешения по ролям
var Permissions = map[string][]string{
	models.RoleAdmin: {
		PermPlansManage,
		PermSubscriptionsReview,
		PermUsersManage,
		PermProvidersManage,
		PermChatReply,
		PermDashboardView,
		PermNutritionOwn,
		PermSubscriptionsOwn,
		PermChatOwn,
	},
	models.RoleUser: {
		PermNutritionOwn,
		PermSubscriptionsOwn,
		PermChatOwn,
	},
}

func HasPermission(role, permission string) bool {
	for _, p := range Permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CanPerformAction - есть ли разрешение хотя бы у одной роли из токена
func CanPerformAction(claims *Claims, permission string) bool {
	for _, role := range claims.Roles {
		if HasPermission(role, permission) {
			return true
		}
	}
	return false
}

func IsAdmin(claims *Claims) bool {
	return claims.HasRole(models.RoleAdmin)
}

func IsKnownRole(role string) bool {
	_, ok := Permissions[role]
	return ok
}
