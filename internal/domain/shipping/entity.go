// internal/domain/shipping/entity.go
package shipping

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShippingRule maps a delivery location to a shipping charge. A rule matches
// either by postal prefix or by pincode range depending on which columns are
// set; the resolver consults only the columns of the configured scheme.
// Overlapping rules are allowed, the highest priority active match wins.
type ShippingRule struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Name          string           `gorm:"size:255" json:"name"`
	PostalPrefix  *string          `gorm:"size:10;index" json:"postal_prefix,omitempty"`
	PincodeFrom   *int             `gorm:"index" json:"pincode_from,omitempty"`
	PincodeTo     *int             `gorm:"index" json:"pincode_to,omitempty"`
	Charge        decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"charge"`
	MinOrderValue *decimal.Decimal `gorm:"type:decimal(12,2)" json:"min_order_value,omitempty"`
	Priority      int              `gorm:"default:0;index" json:"priority"`
	IsActive      bool             `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName overrides
func (ShippingRule) TableName() string { return "shipping_rules" }

// WaivesChargeFor reports whether the rule's free-shipping threshold applies
// to the given subtotal. The threshold is inclusive.
func (r *ShippingRule) WaivesChargeFor(subtotal decimal.Decimal) bool {
	return r.MinOrderValue != nil && subtotal.GreaterThanOrEqual(*r.MinOrderValue)
}

// Quote is the result of a shipping computation. AppliedRule is nil when no
// rule matched, in which case Charge is zero.
type Quote struct {
	Charge      decimal.Decimal `json:"charge"`
	AppliedRule *ShippingRule   `json:"applied_rule,omitempty"`
}
