// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product entity
type Product struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SKU            string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name           string          `gorm:"not null;size:255" json:"name"`
	Slug           string          `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description    string          `gorm:"type:text" json:"description"`
	ShortDesc      string          `gorm:"size:500" json:"short_description"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	ComparePrice   decimal.Decimal `gorm:"type:decimal(12,2)" json:"compare_price"`
	CategoryID     *uint           `gorm:"index" json:"category_id"`
	Weight         float64         `json:"weight"` // Weight in grams
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	IsFeatured     bool            `gorm:"default:false" json:"is_featured"`
	SeoTitle       string          `gorm:"size:255" json:"seo_title"`
	SeoDescription string          `gorm:"size:500" json:"seo_description"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Category *Category        `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Images   []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// Category represents product categories
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"size:500" json:"description"`
	Image       string         `gorm:"size:500" json:"image"`
	ParentID    *uint          `gorm:"index" json:"parent_id"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Products []Product  `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// ProductImage represents product images
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	URL       string    `gorm:"not null;size:500" json:"url"`
	AltText   string    `gorm:"size:255" json:"alt_text"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	IsPrimary bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductVariant represents a purchasable variant (size, color). Stock is
// tracked per variant, and cancellations restock at this level.
type ProductVariant struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ProductID    uint            `gorm:"not null;index" json:"product_id"`
	SKU          string          `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name         string          `gorm:"not null;size:255" json:"name"`
	Size         string          `gorm:"size:50" json:"size"`
	Color        string          `gorm:"size:50" json:"color"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"` // Override product price if set
	ComparePrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"compare_price"`
	Stock        int             `gorm:"default:0" json:"stock"`
	Weight       float64         `json:"weight"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (Category) TableName() string       { return "categories" }
func (ProductImage) TableName() string   { return "product_images" }
func (ProductVariant) TableName() string { return "product_variants" }

// Business methods

// EffectivePrice returns the variant price, falling back to the parent
// product price when the variant carries no override.
func (v *ProductVariant) EffectivePrice() decimal.Decimal {
	if v.Price.IsPositive() {
		return v.Price
	}
	if v.Product != nil {
		return v.Product.Price
	}
	return v.Price
}

func (v *ProductVariant) IsInStock(quantity int) bool {
	return v.Stock >= quantity
}

func (p *Product) GetDiscountPercentage() int {
	if p.ComparePrice.IsPositive() && p.Price.LessThan(p.ComparePrice) {
		diff := p.ComparePrice.Sub(p.Price).Mul(decimal.NewFromInt(100))
		return int(diff.Div(p.ComparePrice).IntPart())
	}
	return 0
}
