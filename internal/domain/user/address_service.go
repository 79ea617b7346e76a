// internal/domain/user/address_service.go
package user

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// AddressService handles address business logic
type AddressService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB, cfg *config.Config) *AddressService {
	return &AddressService{
		db:     db,
		config: cfg,
	}
}

// CreateAddressRequest represents address creation data
type CreateAddressRequest struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"omitempty,len=2"`
	IsDefault  bool   `json:"is_default"`
}

// UpdateAddressRequest represents address update data
type UpdateAddressRequest struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	Line1      *string `json:"line1"`
	Line2      *string `json:"line2"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country" binding:"omitempty,len=2"`
	IsDefault  *bool   `json:"is_default"`
}

// GetUserAddresses retrieves all addresses for a user, default first
func (s *AddressService) GetUserAddresses(userID uint) ([]Address, error) {
	var addresses []Address
	err := s.db.Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}
	return addresses, nil
}

// GetAddress retrieves a specific address belonging to a user
func (s *AddressService) GetAddress(userID, addressID uint) (*Address, error) {
	var address Address
	result := s.db.Where("id = ? AND user_id = ?", addressID, userID).First(&address)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "address not found")
		}
		return nil, fmt.Errorf("failed to retrieve address: %w", result.Error)
	}
	return &address, nil
}

// GetDefaultAddress returns the user's checkout fallback address: the default
// one, or the oldest when no default is marked.
func (s *AddressService) GetDefaultAddress(userID uint) (*Address, error) {
	var address Address
	result := s.db.Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		First(&address)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "no saved address")
		}
		return nil, fmt.Errorf("failed to retrieve default address: %w", result.Error)
	}
	return &address, nil
}

// CreateAddress creates a new address. The user's first address becomes the
// default automatically.
func (s *AddressService) CreateAddress(userID uint, req *CreateAddressRequest) (*Address, error) {
	address := Address{
		UserID:     userID,
		Name:       req.Name,
		Phone:      req.Phone,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	}
	if address.Country == "" {
		address.Country = s.config.Shipping.DefaultCountry
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		tx.Model(&Address{}).Where("user_id = ?", userID).Count(&count)
		if count == 0 {
			address.IsDefault = true
		} else if address.IsDefault {
			if err := tx.Model(&Address{}).Where("user_id = ?", userID).Update("is_default", false).Error; err != nil {
				return fmt.Errorf("failed to unset previous default: %w", err)
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	return &address, nil
}

// UpdateAddress updates an address belonging to a user
func (s *AddressService) UpdateAddress(userID, addressID uint, req *UpdateAddressRequest) (*Address, error) {
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Line1 != nil {
		updates["line1"] = *req.Line1
	}
	if req.Line2 != nil {
		updates["line2"] = *req.Line2
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.State != nil {
		updates["state"] = *req.State
	}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault != nil && *req.IsDefault && !address.IsDefault {
			if err := tx.Model(&Address{}).Where("user_id = ?", userID).Update("is_default", false).Error; err != nil {
				return fmt.Errorf("failed to unset previous default: %w", err)
			}
			updates["is_default"] = true
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(address).Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	return s.GetAddress(userID, addressID)
}

// DeleteAddress removes an address. Deleting the default promotes the oldest
// remaining address.
func (s *AddressService) DeleteAddress(userID, addressID uint) error {
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(address).Error; err != nil {
			return fmt.Errorf("failed to delete address: %w", err)
		}
		if address.IsDefault {
			var next Address
			if err := tx.Where("user_id = ?", userID).Order("id ASC").First(&next).Error; err == nil {
				return tx.Model(&next).Update("is_default", true).Error
			}
		}
		return nil
	})
}

// SetDefaultAddress marks one address as the user's default
func (s *AddressService) SetDefaultAddress(userID, addressID uint) (*Address, error) {
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Address{}).Where("user_id = ?", userID).Update("is_default", false).Error; err != nil {
			return fmt.Errorf("failed to unset previous default: %w", err)
		}
		return tx.Model(address).Update("is_default", true).Error
	})
	if err != nil {
		return nil, err
	}

	address.IsDefault = true
	return address, nil
}
