// internal/pkg/ordermail/order_mailer.go
package ordermail

import (
	"context"
	"fmt"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/domain/order"
	"github.com/your-org/commerce-api/internal/pkg/email"
)

// OrderMailer adapts EmailService to the order confirmation hook.
type OrderMailer struct {
	service *email.EmailService
	config  *config.Config
}

// NewOrderMailer creates an order confirmation mailer
func NewOrderMailer(service *email.EmailService, cfg *config.Config) *OrderMailer {
	return &OrderMailer{
		service: service,
		config:  cfg,
	}
}

// SendOrderConfirmation sends the confirmation email for a placed order
func (m *OrderMailer) SendOrderConfirmation(recipient string, o *order.Order) error {
	items := make([]email.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, email.OrderItem{
			Name:     item.ProductName,
			SKU:      item.SKU,
			Quantity: item.Quantity,
			Price:    item.Price.StringFixed(2),
			Total:    item.Total.StringFixed(2),
		})
	}

	data := email.OrderConfirmationData{
		EmailTemplateData: email.GetBaseTemplateData(
			m.config.App.Name,
			m.config.External.Email.BaseURL,
			o.CustomerName,
			recipient,
		),
		OrderNumber:   o.OrderNumber,
		OrderDate:     o.CreatedAt.Format("January 2, 2006"),
		OrderTotal:    o.GrandTotal.StringFixed(2),
		OrderURL:      fmt.Sprintf("%s/orders/%s", m.config.External.Email.BaseURL, o.OrderNumber),
		Items:         items,
		PaymentMethod: o.PaymentMethod,
		ShippingAddress: email.Address{
			Name:       o.ShippingAddress.Name,
			Phone:      o.ShippingAddress.Phone,
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.State,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
	}

	return m.service.SendOrderConfirmationEmail(context.Background(), data)
}
