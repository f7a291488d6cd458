package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/interfaces/http/dto"
)

// RequireRole allows only callers whose token carries one of roles.
// It must run after JWTAuthMiddleware.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetJWTClaims(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		role := identity.Role(GetJWTRole(c))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Insufficient permissions", GetRequestID(c)))
	}
}

// RequireAdmin allows only administrators
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(identity.RoleAdmin)
}

// IsAdmin reports whether the caller is an authenticated administrator
func IsAdmin(c *gin.Context) bool {
	return GetJWTClaims(c) != nil && identity.Role(GetJWTRole(c)) == identity.RoleAdmin
}
