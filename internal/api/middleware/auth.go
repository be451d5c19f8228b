package middleware

import (
	"net/http"
	"strings"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextKey constants for gin.Context values set by middleware.
const (
	CtxAddress = "address"
	CtxRole    = "role"
)

// ──────────────────────────────────────────────────────────────────────────────
// JWTMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// JWTMiddleware validates the Bearer token in the Authorization header.
// On success it stores the caller's address and role in the gin context.
func JWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return identity(authSvc, true)
}

// IdentityMiddleware authenticates the caller when a Bearer token is sent.
// A missing token is rejected only when required is true; a malformed or
// expired token is always rejected.
func IdentityMiddleware(authSvc *service.AuthService, required bool) gin.HandlerFunc {
	return identity(authSvc, required)
}

func identity(authSvc *service.AuthService, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				abortAuth(c, http.StatusUnauthorized, domain.ErrUnauthorized)
				return
			}
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			abortAuth(c, http.StatusUnauthorized, domain.ErrUnauthorized)
			return
		}

		claims, err := authSvc.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, domain.ErrTokenInvalid)
			return
		}

		c.Set(CtxAddress, claims.Subject)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// RoleMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// RoleMiddleware ensures the authenticated caller has one of the allowed roles.
// Must be placed after JWTMiddleware in the chain.
func RoleMiddleware(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[GetRole(c)] {
			abortAuth(c, http.StatusForbidden, domain.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// AdminMiddleware allows only admin tokens through.
// Must be placed after JWTMiddleware in the chain.
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(service.RoleAdmin)
}

func abortAuth(c *gin.Context, status int, err *domain.Error) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   err.Message,
		"code":    "ERR_" + err.Code,
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers for handlers
// ──────────────────────────────────────────────────────────────────────────────

// GetAddress returns the authenticated caller's address, or "" when the
// request carried no token.
func GetAddress(c *gin.Context) string {
	v, _ := c.Get(CtxAddress)
	a, _ := v.(string)
	return a
}

// GetRole retrieves the authenticated caller's role from the gin context.
func GetRole(c *gin.Context) string {
	v, _ := c.Get(CtxRole)
	r, _ := v.(string)
	return r
}
