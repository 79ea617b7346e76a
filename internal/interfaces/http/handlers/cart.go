// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/commerce-api/internal/domain/cart"
	"github.com/your-org/commerce-api/internal/interfaces/http/middleware"
)

// sessionKeyHeader carries the guest session identifier for anonymous carts.
const sessionKeyHeader = "X-Session-Key"

// CartHandler handles shopping cart endpoints
type CartHandler struct {
	cartService *cart.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// ownerFromContext resolves the cart owner: the authenticated user when a
// token is present, otherwise the guest session key header.
func ownerFromContext(c *gin.Context) (cart.Owner, bool) {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return cart.UserOwner(userID), true
	}
	if sessionKey := c.GetHeader(sessionKeyHeader); sessionKey != "" {
		return cart.GuestOwner(sessionKey), true
	}
	return cart.Owner{}, false
}

func requireOwner(c *gin.Context) (cart.Owner, bool) {
	owner, ok := ownerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication or X-Session-Key header required",
		})
	}
	return owner, ok
}

// GetCart returns the caller's cart
func (h *CartHandler) GetCart(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	response, err := h.cartService.GetCart(owner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": response})
}

// AddItem adds a product variant to the cart
func (h *CartHandler) AddItem(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.cartService.AddItem(owner, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart",
		"data":    response,
	})
}

// UpdateItem updates quantity or remarks of a cart item. Quantity zero
// removes the item.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req cart.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.cartService.UpdateItem(owner, uint(itemID), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated",
		"data":    response,
	})
}

// RemoveItem removes a cart item
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	response, err := h.cartService.RemoveItem(owner, uint(itemID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
		"data":    response,
	})
}

// ClearCart removes every item from the caller's cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	if err := h.cartService.Clear(owner); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
	})
}

// MergeCart merges the guest cart identified by X-Session-Key into the
// authenticated user's cart.
func (h *CartHandler) MergeCart(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	sessionKey := c.GetHeader(sessionKeyHeader)
	if sessionKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Session-Key header required"})
		return
	}

	response, err := h.cartService.MergeGuestIntoUser(sessionKey, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart merged",
		"data":    response,
	})
}
