// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/auth"
)

const (
	ctxUserID      = "user_id"
	ctxUserEmail   = "user_email"
	ctxIsAdmin     = "is_admin"
	ctxTokenClaims = "token_claims"
)

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func bindClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUserEmail, claims.Email)
	c.Set(ctxIsAdmin, claims.IsAdmin)
	c.Set(ctxTokenClaims, claims)
}

// AuthMiddleware rejects requests that do not carry a valid access token.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		tokenString := auth.ExtractTokenFromHeader(header)
		if tokenString == "" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		bindClaims(c, claims)
		c.Next()
	}
}

// AdminMiddleware requires an authenticated admin. It must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get(ctxIsAdmin)
		if !exists {
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !isAdmin.(bool) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware binds identity when a valid token is present and
// lets the request through anonymously otherwise.
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString != "" {
			if claims, err := jwtManager.ValidateAccessToken(tokenString); err == nil {
				bindClaims(c, claims)
			}
		}
		c.Next()
	}
}

// GetUserIDFromContext extracts the authenticated user ID from the gin context.
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUserEmailFromContext extracts the authenticated email from the gin context.
func GetUserEmailFromContext(c *gin.Context) (string, bool) {
	email, exists := c.Get(ctxUserEmail)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// IsAdminFromContext reports whether the current request is from an admin.
func IsAdminFromContext(c *gin.Context) bool {
	isAdmin, exists := c.Get(ctxIsAdmin)
	if !exists {
		return false
	}
	return isAdmin.(bool)
}
