package contextkeys

type contextKey string

// DBContextKey - ключ, под которым DBMiddleware кладёт *gorm.DB
const DBContextKey = contextKey("db")

// Ключи gin.Context, которые заполняет AuthMiddleware
const (
	UserIDKey             = "userID"
	EmailKey              = "email"
	RolesKey              = "roles"
	PlanIDKey             = "planID"
	PlanNameKey           = "planName"
	NutritionPlanLimitKey = "nutritionPlanLimit"
)
