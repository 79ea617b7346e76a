// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one owner: a registered user or an anonymous
// session. It is created lazily on the first add and deleted when merged
// into a user cart or explicitly cleared.
type Cart struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	SessionKey *string   `gorm:"uniqueIndex;size:64" json:"session_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem is one line in a cart. The unique (cart_id, variant_id) index is
// what keeps a concurrent add-vs-add race from producing duplicate rows.
// Price is a snapshot of the variant price, refreshed on quantity changes.
type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CartID    uint            `gorm:"not null;uniqueIndex:idx_cart_variant" json:"cart_id"`
	VariantID uint            `gorm:"not null;uniqueIndex:idx_cart_variant" json:"variant_id"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Remarks   string          `gorm:"size:500" json:"remarks"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// LineTotal returns price times quantity for the item.
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal sums the line totals of all items.
func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// Owner identifies who a cart belongs to. Exactly one of UserID and
// SessionKey is expected to be set.
type Owner struct {
	UserID     *uint
	SessionKey string
}

// UserOwner builds an Owner for a registered user.
func UserOwner(userID uint) Owner {
	return Owner{UserID: &userID}
}

// GuestOwner builds an Owner for an anonymous session.
func GuestOwner(sessionKey string) Owner {
	return Owner{SessionKey: sessionKey}
}

// Valid reports whether the owner identifies anyone.
func (o Owner) Valid() bool {
	return o.UserID != nil || o.SessionKey != ""
}
