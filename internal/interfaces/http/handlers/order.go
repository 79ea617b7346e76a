// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/commerce-api/internal/domain/order"
	"github.com/your-org/commerce-api/internal/interfaces/http/middleware"
)

// OrderHandler handles order placement and lifecycle endpoints
type OrderHandler struct {
	orderService *order.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// PlaceOrder places a new order for the caller
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req order.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.orderService.PlaceOrder(c.Request.Context(), owner, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    o,
	})
}

// GetMyOrders lists the authenticated user's orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req struct {
		Page  int `form:"page,default=1"`
		Limit int `form:"limit,default=20"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.orderService.GetUserOrders(userID, req.Page, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": response})
}

// GetMyOrder returns one of the authenticated user's orders
func (h *OrderHandler) GetMyOrder(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if o.UserID == nil || *o.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": o})
}

// RepeatOrder rebuilds the user's cart from a previous order
func (h *OrderHandler) RepeatOrder(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	response, err := h.orderService.RepeatOrder(userID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order items added to cart",
		"data":    response,
	})
}

// Admin endpoints

// ListOrders lists orders for administration
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.orderService.GetOrders(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": response})
}

// GetOrder returns a single order for administration
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": o})
}

// UpdateOrderStatus transitions an order's fulfilment status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.orderService.UpdateOrderStatus(id, order.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"data":    o,
	})
}

// UpdatePaymentStatus transitions an order's payment status
func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		PaymentStatus string `json:"payment_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.orderService.UpdatePaymentStatus(id, order.PaymentStatus(req.PaymentStatus))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status updated",
		"data":    o,
	})
}

// ShipOrder marks an order shipped with an optional tracking number
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		TrackingNumber string `json:"tracking_number"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	o, err := h.orderService.ShipOrder(id, req.TrackingNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order shipped",
		"data":    o,
	})
}

// CancelOrder cancels an order, refunding and restocking as needed
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.CancelOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled",
		"data":    o,
	})
}
