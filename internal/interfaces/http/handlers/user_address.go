// internal/interfaces/http/handlers/user_address.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/commerce-api/internal/domain/user"
	"github.com/your-org/commerce-api/internal/interfaces/http/middleware"
)

// AddressHandler handles user address book endpoints
type AddressHandler struct {
	addressService *user.AddressService
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addressService *user.AddressService) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
	}
}

func requireUserID(c *gin.Context) (uint, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return 0, false
	}
	return userID, true
}

// GetAddresses lists the user's addresses, default first
func (h *AddressHandler) GetAddresses(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	addresses, err := h.addressService.GetUserAddresses(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": addresses})
}

// GetAddress returns a single address
func (h *AddressHandler) GetAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	address, err := h.addressService.GetAddress(userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": address})
}

// CreateAddress adds an address to the user's address book
func (h *AddressHandler) CreateAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req user.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	address, err := h.addressService.CreateAddress(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Address created successfully",
		"data":    address,
	})
}

// UpdateAddress updates one of the user's addresses
func (h *AddressHandler) UpdateAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req user.UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	address, err := h.addressService.UpdateAddress(userID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address updated successfully",
		"data":    address,
	})
}

// DeleteAddress removes one of the user's addresses
func (h *AddressHandler) DeleteAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.addressService.DeleteAddress(userID, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address deleted successfully",
	})
}

// SetDefaultAddress marks an address as the user's default
func (h *AddressHandler) SetDefaultAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	address, err := h.addressService.SetDefaultAddress(userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Default address updated",
		"data":    address,
	})
}
