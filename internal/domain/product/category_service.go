// internal/domain/product/category_service.go
package product

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// CategoryService handles category business logic
type CategoryService struct {
	db     *gorm.DB
	config *config.Config
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB, cfg *config.Config) *CategoryService {
	return &CategoryService{
		db:     db,
		config: cfg,
	}
}

// CategoryCreateRequest represents category creation data
type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ParentID    *uint  `json:"parent_id"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// CategoryUpdateRequest represents category update data
type CategoryUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	ParentID    *uint   `json:"parent_id"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryTree represents hierarchical category structure
type CategoryTree struct {
	Category
	Children []CategoryTree `json:"children,omitempty"`
}

// GetCategories retrieves all categories ordered for display
func (s *CategoryService) GetCategories(includeInactive bool) ([]Category, error) {
	var categories []Category

	query := s.db.Model(&Category{}).
		Preload("Parent").
		Order("sort_order ASC, name ASC")

	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}

	return categories, nil
}

// GetCategoryTree retrieves categories in hierarchical tree structure
func (s *CategoryService) GetCategoryTree(includeInactive bool) ([]CategoryTree, error) {
	categories, err := s.GetCategories(includeInactive)
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint]*CategoryTree)
	for _, cat := range categories {
		nodes[cat.ID] = &CategoryTree{Category: cat}
	}

	var roots []CategoryTree
	for _, cat := range categories {
		if cat.ParentID == nil {
			roots = append(roots, *nodes[cat.ID])
		} else if parent, ok := nodes[*cat.ParentID]; ok {
			parent.Children = append(parent.Children, *nodes[cat.ID])
		}
	}

	return roots, nil
}

// GetCategory retrieves a single category by ID
func (s *CategoryService) GetCategory(id uint) (*Category, error) {
	var category Category
	result := s.db.
		Preload("Parent").
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order ASC, name ASC")
		}).
		Where("id = ?", id).
		First(&category)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "category not found")
		}
		return nil, fmt.Errorf("failed to retrieve category: %w", result.Error)
	}

	return &category, nil
}

// CreateCategory creates a new category
func (s *CategoryService) CreateCategory(req *CategoryCreateRequest) (*Category, error) {
	if req.ParentID != nil {
		var parent Category
		if result := s.db.Where("id = ?", *req.ParentID).First(&parent); result.Error != nil {
			return nil, apperr.New(apperr.NotFound, "parent category not found")
		}
	}

	slug := categorySlug(req.Name)

	var existing Category
	if result := s.db.Where("slug = ?", slug).First(&existing); result.Error == nil {
		return nil, apperr.New(apperr.Conflict, "category with similar name already exists")
	}

	category := Category{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Image:       req.Image,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	}

	if err := s.db.Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.db.Preload("Parent").First(&category, category.ID)

	return &category, nil
}

// UpdateCategory updates an existing category
func (s *CategoryService) UpdateCategory(id uint, req *CategoryUpdateRequest) (*Category, error) {
	var category Category
	result := s.db.Where("id = ?", id).First(&category)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "category not found")
		}
		return nil, fmt.Errorf("failed to find category: %w", result.Error)
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, apperr.New(apperr.Validation, "category cannot be its own parent")
		}
		var parent Category
		if result := s.db.Where("id = ?", *req.ParentID).First(&parent); result.Error != nil {
			return nil, apperr.New(apperr.NotFound, "parent category not found")
		}
		if s.isAncestor(id, *req.ParentID) {
			return nil, apperr.New(apperr.Validation, "circular category reference")
		}
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
		updates["slug"] = categorySlug(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.ParentID != nil {
		updates["parent_id"] = *req.ParentID
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&category).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update category: %w", err)
		}
	}

	s.db.Preload("Parent").First(&category, category.ID)

	return &category, nil
}

// DeleteCategory soft deletes a category with no products or subcategories
func (s *CategoryService) DeleteCategory(id uint) error {
	var productCount int64
	s.db.Model(&Product{}).Where("category_id = ?", id).Count(&productCount)
	if productCount > 0 {
		return apperr.New(apperr.Conflict, "cannot delete category with existing products")
	}

	var childCount int64
	s.db.Model(&Category{}).Where("parent_id = ?", id).Count(&childCount)
	if childCount > 0 {
		return apperr.New(apperr.Conflict, "cannot delete category with subcategories")
	}

	result := s.db.Where("id = ?", id).Delete(&Category{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "category not found")
	}
	return nil
}

// isAncestor reports whether categoryID appears in the ancestor chain of
// candidateParent.
func (s *CategoryService) isAncestor(categoryID, candidateParent uint) bool {
	currentID := candidateParent
	for {
		var category Category
		result := s.db.Select("parent_id").Where("id = ?", currentID).First(&category)
		if result.Error != nil || category.ParentID == nil {
			return false
		}
		if *category.ParentID == categoryID {
			return true
		}
		currentID = *category.ParentID
	}
}

func categorySlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var cleaned strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			cleaned.WriteRune(r)
		}
	}

	return strings.Trim(cleaned.String(), "-")
}
