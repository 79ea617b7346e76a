// internal/domain/user/admin_service.go
package user

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// AdminService handles admin user management operations
type AdminService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAdminService creates a new admin user service
func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{
		db:     db,
		config: cfg,
	}
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Search    string `form:"search"`
	Status    string `form:"status"` // active, inactive, all
	Role      string `form:"role"`   // admin, user, all
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

// UserListResponse represents user list with pagination
type UserListResponse struct {
	Users      []UserWithStats `json:"users"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// UserWithStats represents user with order statistics
type UserWithStats struct {
	User
	OrderCount  int64           `json:"order_count"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	LastOrderAt *time.Time      `json:"last_order_at"`
}

// GetUsers retrieves users with filtering and pagination
func (s *AdminService) GetUsers(req *UserListRequest) (*UserListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&User{})

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", search, search, search)
	}
	switch req.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}
	switch req.Role {
	case "admin":
		query = query.Where("is_admin = ?", true)
	case "user":
		query = query.Where("is_admin = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	sortBy := req.SortBy
	switch sortBy {
	case "email", "created_at", "last_login_at":
	default:
		sortBy = "created_at"
	}
	sortOrder := req.SortOrder
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	var users []User
	offset := (req.Page - 1) * req.Limit
	if err := query.Order(sortBy + " " + sortOrder).Offset(offset).Limit(req.Limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}

	result := make([]UserWithStats, 0, len(users))
	for i := range users {
		users[i].Password = ""
		stats := s.userStats(users[i].ID)
		stats.User = users[i]
		result = append(result, stats)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))

	return &UserListResponse{
		Users:      result,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetUser retrieves a single user with statistics
func (s *AdminService) GetUser(userID uint) (*UserWithStats, error) {
	var u User
	result := s.db.Preload("Addresses").Where("id = ?", userID).First(&u)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", result.Error)
	}

	u.Password = ""
	stats := s.userStats(u.ID)
	stats.User = u
	return &stats, nil
}

// UpdateUserStatus activates or deactivates an account
func (s *AdminService) UpdateUserStatus(userID uint, isActive bool) error {
	result := s.db.Model(&User{}).Where("id = ?", userID).Update("is_active", isActive)
	if result.Error != nil {
		return fmt.Errorf("failed to update user status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// ToggleUserAdmin grants or revokes admin rights
func (s *AdminService) ToggleUserAdmin(userID uint, isAdmin bool) error {
	result := s.db.Model(&User{}).Where("id = ?", userID).Update("is_admin", isAdmin)
	if result.Error != nil {
		return fmt.Errorf("failed to update admin flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// ExportUsersCSV renders the user list as CSV for back-office exports
func (s *AdminService) ExportUsersCSV() ([]byte, error) {
	var users []User
	if err := s.db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"id", "email", "first_name", "last_name", "phone", "is_active", "is_admin", "created_at"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, u := range users {
		record := []string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Email,
			u.FirstName,
			u.LastName,
			u.Phone,
			strconv.FormatBool(u.IsActive),
			strconv.FormatBool(u.IsAdmin),
			u.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// userStats aggregates order statistics for one user. Cancelled orders do
// not count toward total spend.
func (s *AdminService) userStats(userID uint) UserWithStats {
	var stats UserWithStats

	type row struct {
		Count     int64
		Total     decimal.Decimal
		LastOrder *time.Time
	}
	var r row
	s.db.Table("orders").
		Select("COUNT(*) as count, COALESCE(SUM(grand_total), 0) as total, MAX(created_at) as last_order").
		Where("user_id = ? AND status <> ?", userID, "cancelled").
		Scan(&r)

	stats.OrderCount = r.Count
	stats.TotalSpent = r.Total
	stats.LastOrderAt = r.LastOrder
	return stats
}
