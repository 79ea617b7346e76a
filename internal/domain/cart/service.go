// internal/domain/cart/service.go
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/domain/product"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	VariantID uint   `json:"variant_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Remarks   string `json:"remarks"`
}

// UpdateCartItemRequest represents update cart item request. A quantity of
// zero removes the item.
type UpdateCartItemRequest struct {
	Quantity *int    `json:"quantity"`
	Remarks  *string `json:"remarks"`
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// CartResponse represents a shopping cart with items and summary
type CartResponse struct {
	Cart   *Cart      `json:"cart"`
	Totals CartTotals `json:"totals"`
}

func buildResponse(c *Cart) *CartResponse {
	totals := CartTotals{ItemCount: len(c.Items), Subtotal: c.Subtotal()}
	for _, item := range c.Items {
		totals.TotalQuantity += item.Quantity
	}
	return &CartResponse{Cart: c, Totals: totals}
}

// findCart loads the owner's cart with items, returning nil when the owner
// has no cart yet.
func (s *Service) findCart(tx *gorm.DB, owner Owner) (*Cart, error) {
	if !owner.Valid() {
		return nil, apperr.New(apperr.Validation, "cart owner required")
	}

	query := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
	if owner.UserID != nil {
		query = query.Where("user_id = ?", *owner.UserID)
	} else {
		query = query.Where("session_key = ?", owner.SessionKey)
	}

	var c Cart
	if err := query.First(&c).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return &c, nil
}

// findOrCreateCart loads the owner's cart or lazily creates an empty one.
func (s *Service) findOrCreateCart(tx *gorm.DB, owner Owner) (*Cart, error) {
	c, err := s.findCart(tx, owner)
	if err != nil || c != nil {
		return c, err
	}

	c = &Cart{UserID: owner.UserID}
	if owner.SessionKey != "" {
		key := owner.SessionKey
		c.SessionKey = &key
	}
	if err := tx.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return c, nil
}

// GetCart retrieves the owner's cart. An owner without a cart gets an empty
// response rather than an error.
func (s *Service) GetCart(owner Owner) (*CartResponse, error) {
	c, err := s.findCart(s.db, owner)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return buildResponse(&Cart{UserID: owner.UserID}), nil
	}
	return buildResponse(c), nil
}

// AddItem adds a variant to the owner's cart. An existing line for the same
// variant has its quantity incremented and its price snapshot refreshed;
// remarks are overwritten only when a non-empty value is supplied.
func (s *Service) AddItem(owner Owner, req *AddToCartRequest) (*CartResponse, error) {
	if req.Quantity < 1 {
		return nil, apperr.New(apperr.Validation, "quantity must be at least 1")
	}

	var variant product.ProductVariant
	if err := s.db.Preload("Product").Where("id = ? AND is_active = ?", req.VariantID, true).First(&variant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.Newf(apperr.NotFound, "variant %d not found", req.VariantID)
		}
		return nil, fmt.Errorf("failed to retrieve variant: %w", err)
	}
	currentPrice := variant.EffectivePrice()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.findOrCreateCart(tx, owner)
		if err != nil {
			return err
		}

		var existing CartItem
		result := tx.Where("cart_id = ? AND variant_id = ?", c.ID, req.VariantID).First(&existing)
		if result.Error == nil {
			updates := map[string]interface{}{
				"quantity": existing.Quantity + req.Quantity,
				"price":    currentPrice,
			}
			if req.Remarks != "" {
				updates["remarks"] = req.Remarks
			}
			return tx.Model(&existing).Updates(updates).Error
		}
		if result.Error != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to check cart item: %w", result.Error)
		}

		item := CartItem{
			CartID:    c.ID,
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
			Price:     currentPrice,
			Remarks:   req.Remarks,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(owner)
}

// UpdateItem updates quantity and/or remarks of a cart line. Quantity zero
// removes the line; a positive quantity also refreshes the price snapshot.
func (s *Service) UpdateItem(owner Owner, itemID uint, req *UpdateCartItemRequest) (*CartResponse, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.findCart(tx, owner)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.New(apperr.NotFound, "cart not found")
		}

		var item CartItem
		if err := tx.Where("id = ? AND cart_id = ?", itemID, c.ID).First(&item).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.New(apperr.NotFound, "cart item not found")
			}
			return fmt.Errorf("failed to retrieve cart item: %w", err)
		}

		if req.Quantity != nil {
			if *req.Quantity < 0 {
				return apperr.New(apperr.Validation, "quantity must be non-negative")
			}
			if *req.Quantity == 0 {
				return tx.Delete(&item).Error
			}
		}

		updates := make(map[string]interface{})
		if req.Quantity != nil {
			updates["quantity"] = *req.Quantity

			var variant product.ProductVariant
			if err := tx.Preload("Product").Where("id = ?", item.VariantID).First(&variant).Error; err == nil {
				updates["price"] = variant.EffectivePrice()
			}
		}
		if req.Remarks != nil {
			updates["remarks"] = *req.Remarks
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&item).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(owner)
}

// RemoveItem removes a single line from the owner's cart.
func (s *Service) RemoveItem(owner Owner, itemID uint) (*CartResponse, error) {
	c, err := s.findCart(s.db, owner)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.NotFound, "cart not found")
	}

	result := s.db.Where("id = ? AND cart_id = ?", itemID, c.ID).Delete(&CartItem{})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.NotFound, "cart item not found")
	}

	return s.GetCart(owner)
}

// Clear deletes the owner's cart and all of its items.
func (s *Service) Clear(owner Owner) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.findCart(tx, owner)
		if err != nil {
			return err
		}
		if c == nil {
			return nil
		}
		if err := tx.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		if err := tx.Delete(c).Error; err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	})
}

// MergeGuestIntoUser folds a guest cart into the user's cart in one
// transaction. Lines for the same variant have quantities summed with the
// guest price and remarks winning; other lines move over. The guest cart is
// deleted afterward. A missing guest cart is a no-op.
func (s *Service) MergeGuestIntoUser(sessionKey string, userID uint) (*CartResponse, error) {
	if sessionKey == "" {
		return nil, apperr.New(apperr.Validation, "session key required")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		guest, err := s.findCart(tx, GuestOwner(sessionKey))
		if err != nil {
			return err
		}
		if guest == nil {
			return nil
		}

		userCart, err := s.findOrCreateCart(tx, UserOwner(userID))
		if err != nil {
			return err
		}

		userItems := make(map[uint]*CartItem, len(userCart.Items))
		for i := range userCart.Items {
			userItems[userCart.Items[i].VariantID] = &userCart.Items[i]
		}

		for _, guestItem := range guest.Items {
			if existing, ok := userItems[guestItem.VariantID]; ok {
				updates := map[string]interface{}{
					"quantity": existing.Quantity + guestItem.Quantity,
					"price":    guestItem.Price,
					"remarks":  guestItem.Remarks,
				}
				if err := tx.Model(existing).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to merge cart item: %w", err)
				}
				if err := tx.Delete(&CartItem{}, guestItem.ID).Error; err != nil {
					return fmt.Errorf("failed to remove merged guest item: %w", err)
				}
			} else {
				if err := tx.Model(&CartItem{}).Where("id = ?", guestItem.ID).Update("cart_id", userCart.ID).Error; err != nil {
					return fmt.Errorf("failed to move guest item: %w", err)
				}
			}
		}

		if err := tx.Delete(guest).Error; err != nil {
			return fmt.Errorf("failed to delete guest cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(UserOwner(userID))
}
