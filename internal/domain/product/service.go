// internal/domain/product/service.go
package product

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// Service handles product business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	Search     string `form:"search"`
	SortBy     string `form:"sort_by,default=created_at"`
	SortOrder  string `form:"sort_order,default=desc"`
	MinPrice   string `form:"min_price"`
	MaxPrice   string `form:"max_price"`
	IsActive   *bool  `form:"is_active"`
	IsFeatured *bool  `form:"is_featured"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	SKU            string                 `json:"sku" binding:"required"`
	Name           string                 `json:"name" binding:"required"`
	Description    string                 `json:"description"`
	ShortDesc      string                 `json:"short_description"`
	Price          string                 `json:"price" binding:"required"`
	ComparePrice   string                 `json:"compare_price"`
	CategoryID     *uint                  `json:"category_id"`
	Weight         float64                `json:"weight"`
	IsActive       bool                   `json:"is_active"`
	IsFeatured     bool                   `json:"is_featured"`
	SeoTitle       string                 `json:"seo_title"`
	SeoDescription string                 `json:"seo_description"`
	Variants       []VariantCreateRequest `json:"variants"`
}

// VariantCreateRequest represents variant creation data
type VariantCreateRequest struct {
	SKU   string `json:"sku" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Size  string `json:"size"`
	Color string `json:"color"`
	Price string `json:"price"`
	Stock int    `json:"stock"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name           *string  `json:"name"`
	Description    *string  `json:"description"`
	ShortDesc      *string  `json:"short_description"`
	Price          *string  `json:"price"`
	ComparePrice   *string  `json:"compare_price"`
	CategoryID     *uint    `json:"category_id"`
	Weight         *float64 `json:"weight"`
	IsActive       *bool    `json:"is_active"`
	IsFeatured     *bool    `json:"is_featured"`
	SeoTitle       *string  `json:"seo_title"`
	SeoDescription *string  `json:"seo_description"`
}

// VariantUpdateRequest represents variant update data
type VariantUpdateRequest struct {
	Name     *string `json:"name"`
	Size     *string `json:"size"`
	Color    *string `json:"color"`
	Price    *string `json:"price"`
	Stock    *int    `json:"stock"`
	IsActive *bool   `json:"is_active"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(req *ProductListRequest) (*ProductResponse, error) {
	var products []Product
	var total int64

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Product{}).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		}).
		Preload("Variants", "is_active = ?", true)

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}

	if req.MinPrice != "" {
		if min, err := decimal.NewFromString(req.MinPrice); err == nil {
			query = query.Where("price >= ?", min)
		}
	}

	if req.MaxPrice != "" {
		if max, err := decimal.NewFromString(req.MaxPrice); err == nil {
			query = query.Where("price <= ?", max)
		}
	}

	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	if req.IsFeatured != nil {
		query = query.Where("is_featured = ?", *req.IsFeatured)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	orderClause := s.buildOrderClause(req.SortBy, req.SortOrder)
	query = query.Order(orderClause)

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &ProductResponse{
		Products:   products,
		Pagination: pagination,
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	result := s.db.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Variants", "is_active = ?", true).
		Where("id = ?", id).
		First(&product)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}

	return &product, nil
}

// GetProductBySlug retrieves a single active product by slug
func (s *Service) GetProductBySlug(slug string) (*Product, error) {
	var product Product
	result := s.db.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Preload("Variants", "is_active = ?", true).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&product)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}

	return &product, nil
}

// GetVariant retrieves a variant with its parent product preloaded
func (s *Service) GetVariant(variantID uint) (*ProductVariant, error) {
	var variant ProductVariant
	result := s.db.Preload("Product").Where("id = ?", variantID).First(&variant)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.Newf(apperr.NotFound, "variant %d not found", variantID)
		}
		return nil, fmt.Errorf("failed to retrieve variant: %w", result.Error)
	}
	return &variant, nil
}

// CreateProduct creates a new product with its variants
func (s *Service) CreateProduct(req *ProductCreateRequest) (*Product, error) {
	var existing Product
	if result := s.db.Where("sku = ?", req.SKU).First(&existing); result.Error == nil {
		return nil, apperr.Newf(apperr.Conflict, "product with SKU %s already exists", req.SKU)
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, apperr.New(apperr.Validation, "price must be a non-negative decimal")
	}

	comparePrice := decimal.Zero
	if req.ComparePrice != "" {
		comparePrice, err = decimal.NewFromString(req.ComparePrice)
		if err != nil {
			return nil, apperr.New(apperr.Validation, "compare_price must be a decimal")
		}
	}

	product := Product{
		SKU:            req.SKU,
		Name:           req.Name,
		Slug:           s.generateSlug(req.Name),
		Description:    req.Description,
		ShortDesc:      req.ShortDesc,
		Price:          price,
		ComparePrice:   comparePrice,
		CategoryID:     req.CategoryID,
		Weight:         req.Weight,
		IsActive:       req.IsActive,
		IsFeatured:     req.IsFeatured,
		SeoTitle:       req.SeoTitle,
		SeoDescription: req.SeoDescription,
	}

	for _, v := range req.Variants {
		variantPrice := decimal.Zero
		if v.Price != "" {
			variantPrice, err = decimal.NewFromString(v.Price)
			if err != nil || variantPrice.IsNegative() {
				return nil, apperr.Newf(apperr.Validation, "variant %s price must be a non-negative decimal", v.SKU)
			}
		}
		if v.Stock < 0 {
			return nil, apperr.Newf(apperr.Validation, "variant %s stock must be non-negative", v.SKU)
		}
		product.Variants = append(product.Variants, ProductVariant{
			SKU:      v.SKU,
			Name:     v.Name,
			Size:     v.Size,
			Color:    v.Color,
			Price:    variantPrice,
			Stock:    v.Stock,
			IsActive: true,
		})
	}

	if err := s.db.Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.db.Preload("Category").Preload("Variants").First(&product, product.ID)

	return &product, nil
}

// UpdateProduct updates an existing product
func (s *Service) UpdateProduct(id uint, req *ProductUpdateRequest) (*Product, error) {
	var product Product
	result := s.db.Where("id = ?", id).First(&product)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "product not found")
		}
		return nil, fmt.Errorf("failed to find product: %w", result.Error)
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
		updates["slug"] = s.generateSlug(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ShortDesc != nil {
		updates["short_desc"] = *req.ShortDesc
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			return nil, apperr.New(apperr.Validation, "price must be a non-negative decimal")
		}
		updates["price"] = price
	}
	if req.ComparePrice != nil {
		comparePrice, err := decimal.NewFromString(*req.ComparePrice)
		if err != nil {
			return nil, apperr.New(apperr.Validation, "compare_price must be a decimal")
		}
		updates["compare_price"] = comparePrice
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.Weight != nil {
		updates["weight"] = *req.Weight
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.SeoTitle != nil {
		updates["seo_title"] = *req.SeoTitle
	}
	if req.SeoDescription != nil {
		updates["seo_description"] = *req.SeoDescription
	}

	if len(updates) > 0 {
		if err := s.db.Model(&product).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	s.db.Preload("Category").Preload("Variants").First(&product, product.ID)

	return &product, nil
}

// UpdateVariant updates an existing variant
func (s *Service) UpdateVariant(variantID uint, req *VariantUpdateRequest) (*ProductVariant, error) {
	var variant ProductVariant
	result := s.db.Where("id = ?", variantID).First(&variant)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.Newf(apperr.NotFound, "variant %d not found", variantID)
		}
		return nil, fmt.Errorf("failed to find variant: %w", result.Error)
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Size != nil {
		updates["size"] = *req.Size
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			return nil, apperr.New(apperr.Validation, "price must be a non-negative decimal")
		}
		updates["price"] = price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, apperr.New(apperr.Validation, "stock must be non-negative")
		}
		updates["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&variant).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update variant: %w", err)
		}
	}

	return &variant, nil
}

// DeleteProduct soft-deletes a product
func (s *Service) DeleteProduct(id uint) error {
	result := s.db.Delete(&Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "product not found")
	}
	return nil
}

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	allowedSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"updated_at": true,
	}

	if !allowedSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}

func (s *Service) generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")

	var cleaned strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			cleaned.WriteRune(r)
		}
	}

	return strings.Trim(cleaned.String(), "-")
}
