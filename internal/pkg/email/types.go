// internal/pkg/email/types.go
package email

import "time"

// EmailType tags outgoing mail for provider-side filtering.
type EmailType string

const (
	EmailTypeWelcome           EmailType = "welcome"
	EmailTypePasswordReset     EmailType = "password_reset"
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
)

// Email is one outgoing message, provider-agnostic.
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	Type        EmailType `json:"type"`
}

// EmailTemplateData carries the fields every template expects.
type EmailTemplateData struct {
	SiteName  string `json:"site_name"`
	SiteURL   string `json:"site_url"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
}

// WelcomeEmailData fills the welcome template.
type WelcomeEmailData struct {
	EmailTemplateData
	ShopURL string `json:"shop_url"`
}

// PasswordResetData fills the password reset template.
type PasswordResetData struct {
	EmailTemplateData
	ResetURL   string `json:"reset_url"`
	ExpiryTime string `json:"expiry_time"`
}

// OrderConfirmationData fills the order confirmation template. Money fields
// are pre-formatted strings so templates never do arithmetic.
type OrderConfirmationData struct {
	EmailTemplateData
	OrderNumber     string      `json:"order_number"`
	OrderDate       string      `json:"order_date"`
	OrderTotal      string      `json:"order_total"`
	OrderURL        string      `json:"order_url"`
	Items           []OrderItem `json:"items"`
	PaymentMethod   string      `json:"payment_method"`
	ShippingAddress Address     `json:"shipping_address"`
}

// OrderItem is one confirmed line.
type OrderItem struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Total    string `json:"total"`
}

// Address mirrors the order's shipping snapshot.
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// GetBaseTemplateData builds the shared template fields.
func GetBaseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}
