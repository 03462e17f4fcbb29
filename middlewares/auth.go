package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"profeamigo/utils"
)

const (
	ContextUserID      = "userId"
	ContextUsername    = "username"
	ContextDisplayName = "displayName"
)

// AuthMiddleware verifies the bearer JWT and stores the user in the context.
// A missing token is 401 and an invalid or expired one is 403.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if authHeader == "" || len(parts) != 2 || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Falta el token de acceso."})
			return
		}

		claims, err := utils.ParseJWTToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Token inválido o expirado."})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextDisplayName, claims.DisplayName)
		c.Next()
	}
}
