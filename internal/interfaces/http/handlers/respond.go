// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// respondError maps a service error onto an HTTP response. Classified errors
// carry their own status; anything else becomes a 500 with a generic body.
func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error": apperr.Message(err),
	})
}

// respondBindError reports a request that failed binding or validation
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request data",
		"details": err.Error(),
	})
}
