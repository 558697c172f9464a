package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "Não autenticado.")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "Você não tem permissão para esta ação.")
			c.Abort()
			return
		}
		c.Next()
	}
}
