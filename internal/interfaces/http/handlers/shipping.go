// internal/interfaces/http/handlers/shipping.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/your-org/commerce-api/internal/domain/cart"
	"github.com/your-org/commerce-api/internal/domain/shipping"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// ShippingHandler handles shipping quote and rule administration endpoints
type ShippingHandler struct {
	shippingService *shipping.Service
	cartService     *cart.Service
}

// NewShippingHandler creates a new shipping handler
func NewShippingHandler(shippingService *shipping.Service, cartService *cart.Service) *ShippingHandler {
	return &ShippingHandler{
		shippingService: shippingService,
		cartService:     cartService,
	}
}

// QuoteShipping computes the shipping charge for a destination. The subtotal
// may be given explicitly; otherwise it comes from the caller's cart.
func (h *ShippingHandler) QuoteShipping(c *gin.Context) {
	var req struct {
		LocationKey string `json:"location_key" binding:"required"`
		Subtotal    string `json:"subtotal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var subtotal decimal.Decimal
	if req.Subtotal != "" {
		parsed, err := decimal.NewFromString(req.Subtotal)
		if err != nil || parsed.IsNegative() {
			respondError(c, apperr.New(apperr.Validation, "subtotal must be a non-negative decimal"))
			return
		}
		subtotal = parsed
	} else {
		owner, ok := requireOwner(c)
		if !ok {
			return
		}
		cartResponse, err := h.cartService.GetCart(owner)
		if err != nil {
			respondError(c, err)
			return
		}
		subtotal = cartResponse.Totals.Subtotal
	}

	quote, err := h.shippingService.ComputeShipping(req.LocationKey, subtotal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// ListRules lists shipping rules for administration
func (h *ShippingHandler) ListRules(c *gin.Context) {
	var req shipping.RuleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.shippingService.ListRules(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": response})
}

// GetRule returns a single shipping rule
func (h *ShippingHandler) GetRule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	rule, err := h.shippingService.GetRule(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

// CreateRule creates a new shipping rule
func (h *ShippingHandler) CreateRule(c *gin.Context) {
	var req shipping.RuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rule, err := h.shippingService.CreateRule(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Shipping rule created successfully",
		"data":    rule,
	})
}

// UpdateRule updates an existing shipping rule
func (h *ShippingHandler) UpdateRule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req shipping.RuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rule, err := h.shippingService.UpdateRule(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping rule updated successfully",
		"data":    rule,
	})
}

// DeleteRule deletes a shipping rule
func (h *ShippingHandler) DeleteRule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.shippingService.DeleteRule(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping rule deleted successfully",
	})
}
