// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/your-org/commerce-api/internal/config"
)

// CORS handles cross-origin requests against the configured allow lists.
// Header values that never change per request are joined once up front.
func CORS(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := cfg.Security.CORSAllowedOrigins
	allowMethods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	allowHeaders := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); originAllowed(origin, allowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// originAllowed matches exact origins, "*", and "*.domain" suffix patterns.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		switch {
		case a == "*" || a == origin:
			return true
		case strings.HasPrefix(a, "*."):
			if strings.HasSuffix(origin, strings.TrimPrefix(a, "*.")) {
				return true
			}
		}
	}
	return false
}
