// internal/interfaces/http/handlers/user_admin.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/commerce-api/internal/domain/user"
)

// UserAdminHandler handles user administration endpoints
type UserAdminHandler struct {
	adminService *user.AdminService
}

// NewUserAdminHandler creates a new user admin handler
func NewUserAdminHandler(adminService *user.AdminService) *UserAdminHandler {
	return &UserAdminHandler{
		adminService: adminService,
	}
}

// GetUsers lists users with order statistics
func (h *UserAdminHandler) GetUsers(c *gin.Context) {
	var req user.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.adminService.GetUsers(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": response})
}

// GetUser returns one user with statistics
func (h *UserAdminHandler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	u, err := h.adminService.GetUser(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": u})
}

// UpdateUserStatus activates or deactivates a user account
func (h *UserAdminHandler) UpdateUserStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.adminService.UpdateUserStatus(id, *req.IsActive); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User status updated",
	})
}

// ToggleUserAdmin grants or revokes admin privileges
func (h *UserAdminHandler) ToggleUserAdmin(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		IsAdmin *bool `json:"is_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.adminService.ToggleUserAdmin(id, *req.IsAdmin); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User admin flag updated",
	})
}

// ExportUsers streams the user list as CSV
func (h *UserAdminHandler) ExportUsers(c *gin.Context) {
	data, err := h.adminService.ExportUsersCSV()
	if err != nil {
		respondError(c, err)
		return
	}

	filename := "users-" + time.Now().Format("20060102") + ".csv"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}
