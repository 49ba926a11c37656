package middleware

import (
	"errors"
	"strings"

	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/pkg/apperrors"
	"nutriplan_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// AuthMiddleware - проверка access-токена. Для WebSocket токен можно
// передать в query-параметре token: браузер не умеет ставить заголовки.
func AuthMiddleware(maker auth.Maker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		claims, err := maker.ParseToken(tokenStr)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				apperrors.HandleError(c, apperrors.ErrTokenExpired)
				return
			}
			apperrors.HandleError(c, apperrors.ErrInvalidToken)
			return
		}

		// Сохраняем claims в контекст
		c.Set(claimsKey, claims)
		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.EmailKey, claims.Email)
		c.Set(contextkeys.RolesKey, claims.Roles)
		c.Set(contextkeys.PlanIDKey, claims.PlanID)
		c.Set(contextkeys.PlanNameKey, claims.PlanName)
		c.Set(contextkeys.NutritionPlanLimitKey, claims.NutritionPlanLimit)

		ctx := logger.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}

// AdminMiddleware - только для роли admin
func AdminMiddleware() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

// RequireRoles пропускает, если в токене есть хотя бы одна из ролей
func RequireRoles(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
			return
		}

		for _, role := range claims.Roles {
			if roleSet[role] {
				c.Next()
				return
			}
		}

		logger.CtxWarn(c.Request.Context(), "access denied: insufficient role",
			"path", c.Request.URL.Path,
			"roles", claims.Roles,
		)
		apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
	}
}

// GetClaims возвращает claims, сохраненные AuthMiddleware
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	val, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := val.(*auth.Claims)
	return claims, ok && claims != nil
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(contextkeys.UserIDKey)
}

// IsAdmin - есть ли у текущего пользователя роль admin
func IsAdmin(c *gin.Context) bool {
	claims, ok := GetClaims(c)
	return ok && auth.IsAdmin(claims)
}
