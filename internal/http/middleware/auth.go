package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rustaceolibre/marketplace-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey  = "userID"
	ContextRoleKey    = "role"
	ContextIsStaffKey = "isStaff"
)

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		claims, err := tokens.ParseAccess(raw)
		if err != nil || claims.UserID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)
		c.Set(ContextIsStaffKey, claims.IsStaff)
		c.Next()
	}
}

// StaffOnly пускает дальше только персонал площадки.
// Вешается после AuthMiddleware.
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(ContextIsStaffKey)
		isStaff, ok := raw.(bool)
		if !exists || !ok || !isStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "доступно только персоналу площадки"})
			return
		}
		c.Next()
	}
}
