// internal/domain/order/lifecycle.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/domain/product"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// Lifecycle operations mutate the status fields of a persisted order. Each
// operation runs in its own transaction so an order can never end up
// cancelled without its restock or shipped without its timestamp.

// UpdateOrderStatus sets the order status. Cancelling through this path gets
// the full cancellation treatment including restock.
func (s *Service) UpdateOrderStatus(orderID uint, status OrderStatus) (*Order, error) {
	if !ValidOrderStatus(status) {
		return nil, apperr.Newf(apperr.Validation, "invalid order status %q", status)
	}
	if status == OrderStatusCancelled {
		return s.CancelOrder(orderID)
	}

	var o Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("id = ?", orderID).First(&o).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.New(apperr.NotFound, "order not found")
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}
		if err := tx.Model(&o).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdatePaymentStatus sets the payment status.
func (s *Service) UpdatePaymentStatus(orderID uint, status PaymentStatus) (*Order, error) {
	if !ValidPaymentStatus(status) {
		return nil, apperr.Newf(apperr.Validation, "invalid payment status %q", status)
	}

	var o Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("id = ?", orderID).First(&o).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.New(apperr.NotFound, "order not found")
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}
		if err := tx.Model(&o).Update("payment_status", status).Error; err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ShipOrder marks the order shipped, stamps the ship time and records an
// optional tracking number.
func (s *Service) ShipOrder(orderID uint, trackingNumber string) (*Order, error) {
	var o Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("id = ?", orderID).First(&o).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.New(apperr.NotFound, "order not found")
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":     OrderStatusShipped,
			"shipped_at": now,
		}
		if trackingNumber != "" {
			updates["tracking_number"] = trackingNumber
		}
		if err := tx.Model(&o).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to ship order: %w", err)
		}
		o.ShippedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CancelOrder cancels the order and restocks its lines in one transaction.
// A paid order flips to refunded; cancellation always implies a refund
// posture once payment had succeeded. Lines whose variant no longer exists
// are skipped, not treated as errors.
func (s *Service) CancelOrder(orderID uint) (*Order, error) {
	var o Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("id = ?", orderID).First(&o).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.New(apperr.NotFound, "order not found")
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}

		if o.Status == OrderStatusCancelled {
			return apperr.New(apperr.Conflict, "order is already cancelled")
		}

		updates := map[string]interface{}{"status": OrderStatusCancelled}
		if o.PaymentStatus == PaymentStatusPaid {
			updates["payment_status"] = PaymentStatusRefunded
		}
		if err := tx.Model(&o).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		return restockItems(tx, o.Items)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// restockItems increments variant stock for every line that still resolves
// to a variant.
func restockItems(tx *gorm.DB, items []OrderItem) error {
	for _, item := range items {
		if item.VariantID == nil {
			continue
		}
		result := tx.Model(&product.ProductVariant{}).
			Where("id = ?", *item.VariantID).
			Update("stock", gorm.Expr("stock + ?", item.Quantity))
		if result.Error != nil {
			return fmt.Errorf("failed to restock variant %d: %w", *item.VariantID, result.Error)
		}
		// RowsAffected == 0 means the variant is gone; skip silently.
	}
	return nil
}
