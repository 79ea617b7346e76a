// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/commerce-api/internal/domain/order"
	"github.com/your-org/commerce-api/internal/interfaces/http/middleware"
	"github.com/your-org/commerce-api/internal/pkg/pdf"
)

// InvoiceHandler serves and regenerates order invoice PDFs
type InvoiceHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, pdfService *pdf.Service) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		pdfService:   pdfService,
	}
}

// DownloadInvoice streams the invoice PDF for an order. Non-admin callers
// can only fetch invoices for their own orders.
func (h *InvoiceHandler) DownloadInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}

	if !middleware.IsAdminFromContext(c) {
		userID, exists := middleware.GetUserIDFromContext(c)
		if !exists || o.UserID == nil || *o.UserID != userID {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
	}

	path := o.InvoicePDFPath
	if path == "" {
		// Invoice was never rendered, generate it on demand.
		rendered, err := h.pdfService.RenderInvoice(o)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate invoice"})
			return
		}
		path = rendered
	}

	filename := fmt.Sprintf("invoice-%s.pdf", o.OrderNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
