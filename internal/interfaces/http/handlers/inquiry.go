// internal/interfaces/http/handlers/inquiry.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/commerce-api/internal/domain/inquiry"
)

// InquiryHandler handles contact inquiry endpoints
type InquiryHandler struct {
	inquiryService *inquiry.Service
}

// NewInquiryHandler creates a new inquiry handler
func NewInquiryHandler(inquiryService *inquiry.Service) *InquiryHandler {
	return &InquiryHandler{
		inquiryService: inquiryService,
	}
}

// CreateInquiry records a contact inquiry from the public site
func (h *InquiryHandler) CreateInquiry(c *gin.Context) {
	var req inquiry.CreateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	inq, err := h.inquiryService.CreateInquiry(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Inquiry submitted successfully",
		"data":    inq,
	})
}

// ListInquiries lists inquiries, newest first
func (h *InquiryHandler) ListInquiries(c *gin.Context) {
	inquiries, err := h.inquiryService.ListInquiries()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": inquiries})
}

// GetInquiry returns a single inquiry
func (h *InquiryHandler) GetInquiry(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	inq, err := h.inquiryService.GetInquiry(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": inq})
}

// DeleteInquiry removes an inquiry
func (h *InquiryHandler) DeleteInquiry(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.inquiryService.DeleteInquiry(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Inquiry deleted successfully",
	})
}
