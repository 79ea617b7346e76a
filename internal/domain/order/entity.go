// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ValidOrderStatus reports whether s is one of the fixed order statuses.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is one of the fixed payment statuses.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Order is an immutable purchase snapshot. Only the status fields, tracking
// info and invoice path change after creation; money amounts and line items
// never do.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        *uint         `gorm:"index" json:"user_id"` // Nullable for guest orders
	CustomerName  string        `gorm:"size:255" json:"customer_name"`
	CustomerEmail string        `gorm:"size:255" json:"customer_email"`
	CustomerPhone string        `gorm:"size:50" json:"customer_phone"`
	Status        OrderStatus   `gorm:"not null;default:'pending';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending';index" json:"payment_status"`
	PaymentMethod string        `gorm:"size:50" json:"payment_method"`
	PaymentRef    string        `gorm:"size:255" json:"payment_ref"` // Gateway charge id

	// Financial information, fixed at placement time
	Subtotal   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Shipping   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping"`
	Tax        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Discount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	GrandTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"grand_total"`
	Currency   string          `gorm:"size:3;default:'CAD'" json:"currency"`

	// Address snapshot, denormalized rather than foreign-keyed so the order
	// survives later address edits
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	ShippingRuleID *uint  `json:"shipping_rule_id,omitempty"`
	TrackingNumber string `gorm:"size:100" json:"tracking_number"`
	InvoicePDFPath string `gorm:"size:500" json:"invoice_pdf_path"`
	PickupTime     string `gorm:"size:20" json:"pickup_time"`
	Notes          string `gorm:"type:text" json:"notes"`

	ShippedAt *time.Time     `json:"shipped_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem is an immutable line snapshot. Product name, sku and price are
// copied from the variant at placement time so historical orders stay stable
// when products change or disappear.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	VariantID   *uint           `gorm:"index" json:"variant_id"`
	ProductName string          `gorm:"not null;size:255" json:"product_name"`
	SKU         string          `gorm:"size:100" json:"sku"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Remarks     string          `gorm:"size:500" json:"remarks"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Address is the embedded shipping address snapshot.
type Address struct {
	Name       string `gorm:"size:255" json:"name"`
	Phone      string `gorm:"size:50" json:"phone"`
	Line1      string `gorm:"size:255" json:"line1"`
	Line2      string `gorm:"size:255" json:"line2"`
	City       string `gorm:"size:100" json:"city"`
	State      string `gorm:"size:100" json:"state"`
	PostalCode string `gorm:"size:20" json:"postal_code"`
	Country    string `gorm:"size:2" json:"country"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// Business methods for Order

// IsPaid reports whether payment has settled.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// IsTerminal reports whether the order left the fulfilment pipeline.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCancelled || o.Status == OrderStatusReturned
}
