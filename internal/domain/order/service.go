// internal/domain/order/service.go
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/domain/cart"
	"github.com/your-org/commerce-api/internal/domain/product"
	"github.com/your-org/commerce-api/internal/domain/shipping"
	"github.com/your-org/commerce-api/internal/domain/user"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

// PaymentProcessor charges cards before the order transaction. A charge
// failure aborts placement; nothing is persisted in that case.
type PaymentProcessor interface {
	EnsureCustomer(ctx context.Context, email, name string) (string, error)
	Charge(ctx context.Context, customerID string, amountMinor int64, currency, description string) (string, error)
}

// ConfirmationMailer sends the order confirmation. Failures are logged and
// swallowed, never surfaced to the buyer.
type ConfirmationMailer interface {
	SendOrderConfirmation(email string, o *Order) error
}

// InvoiceRenderer renders an order to a PDF file and returns its relative
// path. Failures are non-fatal.
type InvoiceRenderer interface {
	RenderInvoice(o *Order) (string, error)
}

// Service handles order placement and queries
type Service struct {
	db          *gorm.DB
	config      *config.Config
	cartService *cart.Service
	shipping    *shipping.Service
	payments    PaymentProcessor
	mailer      ConfirmationMailer
	invoices    InvoiceRenderer
	log         *logrus.Logger
}

// NewService creates a new order service. payments, mailer and invoices may
// be nil; the corresponding step is then skipped.
func NewService(
	db *gorm.DB,
	cfg *config.Config,
	cartService *cart.Service,
	shippingService *shipping.Service,
	payments PaymentProcessor,
	mailer ConfirmationMailer,
	invoices InvoiceRenderer,
	log *logrus.Logger,
) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		db:          db,
		config:      cfg,
		cartService: cartService,
		shipping:    shippingService,
		payments:    payments,
		mailer:      mailer,
		invoices:    invoices,
		log:         log,
	}
}

// AddressInput is a caller-supplied shipping destination.
type AddressInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// PlaceOrderItemRequest is one requested line.
type PlaceOrderItemRequest struct {
	VariantID uint   `json:"variant_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Remarks   string `json:"remarks"`
}

// PlaceOrderRequest represents order placement data. Items may be given
// explicitly or sourced from the caller's cart via FromCart.
type PlaceOrderRequest struct {
	Items           []PlaceOrderItemRequest `json:"items"`
	FromCart        bool                    `json:"from_cart"`
	ShippingAddress *AddressInput           `json:"shipping_address"`
	CustomerName    string                  `json:"customer_name"`
	CustomerEmail   string                  `json:"customer_email"`
	CustomerPhone   string                  `json:"customer_phone"`
	PaymentMethod   string                  `json:"payment_method"`
	PickupTime      string                  `json:"pickup_time"`
	Notes           string                  `json:"notes"`
}

// resolvedLine carries everything needed to snapshot one order item.
type resolvedLine struct {
	variantID uint
	name      string
	sku       string
	quantity  int
	price     decimal.Decimal
	remarks   string
}

// PlaceOrder runs the placement workflow: resolve lines, resolve shipping,
// compute totals, optionally charge the card, then persist order and items in
// one transaction. Cart clearing, invoice rendering and the confirmation
// email happen after commit and never fail the order.
func (s *Service) PlaceOrder(ctx context.Context, owner cart.Owner, req *PlaceOrderRequest) (*Order, error) {
	lines, cartDriven, err := s.resolveLines(owner, req)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
	}

	addr, err := s.resolveShippingAddress(owner.UserID, req.ShippingAddress)
	if err != nil {
		return nil, err
	}

	quote, err := s.shipping.ComputeShipping(addr.PostalCode, subtotal)
	if err != nil {
		return nil, err
	}

	tax := decimal.Zero
	discount := decimal.Zero
	grandTotal := subtotal.Add(quote.Charge).Add(tax).Sub(discount)

	o := &Order{
		OrderNumber:     generateOrderNumber(),
		UserID:          owner.UserID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        subtotal,
		Shipping:        quote.Charge,
		Tax:             tax,
		Discount:        discount,
		GrandTotal:      grandTotal,
		Currency:        strings.ToUpper(s.config.External.Stripe.Currency),
		ShippingAddress: *addr,
		PickupTime:      req.PickupTime,
		Notes:           req.Notes,
	}
	if quote.AppliedRule != nil {
		ruleID := quote.AppliedRule.ID
		o.ShippingRuleID = &ruleID
	}

	if s.chargeable(req.PaymentMethod) {
		if err := s.chargeCard(ctx, o); err != nil {
			return nil, err
		}
	}

	for _, line := range lines {
		variantID := line.variantID
		o.Items = append(o.Items, OrderItem{
			VariantID:   &variantID,
			ProductName: line.name,
			SKU:         line.sku,
			Quantity:    line.quantity,
			Price:       line.price,
			Total:       line.price.Mul(decimal.NewFromInt(int64(line.quantity))),
			Remarks:     line.remarks,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(o).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.runPostCommit(o, owner, cartDriven)

	return o, nil
}

// resolveLines turns the request into order lines. Explicit items use the
// variant's current price; cart items keep their snapshot price.
func (s *Service) resolveLines(owner cart.Owner, req *PlaceOrderRequest) ([]resolvedLine, bool, error) {
	if len(req.Items) > 0 {
		lines, err := s.linesFromItems(req.Items)
		return lines, false, err
	}
	if !req.FromCart {
		return nil, false, apperr.New(apperr.Validation, "items are required")
	}

	resp, err := s.cartService.GetCart(owner)
	if err != nil {
		return nil, false, err
	}
	if resp.Cart == nil || len(resp.Cart.Items) == 0 {
		return nil, false, apperr.New(apperr.Validation, "items are required")
	}

	ids := make([]uint, 0, len(resp.Cart.Items))
	for _, item := range resp.Cart.Items {
		ids = append(ids, item.VariantID)
	}
	variants, err := s.loadVariants(ids)
	if err != nil {
		return nil, false, err
	}

	var lines []resolvedLine
	for _, item := range resp.Cart.Items {
		variant := variants[item.VariantID]
		lines = append(lines, resolvedLine{
			variantID: variant.ID,
			name:      variantProductName(variant),
			sku:       variant.SKU,
			quantity:  item.Quantity,
			price:     item.Price,
			remarks:   item.Remarks,
		})
	}
	return lines, true, nil
}

func (s *Service) linesFromItems(items []PlaceOrderItemRequest) ([]resolvedLine, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, apperr.New(apperr.Validation, "quantity must be a positive integer")
		}
		ids = append(ids, item.VariantID)
	}
	variants, err := s.loadVariants(ids)
	if err != nil {
		return nil, err
	}

	var lines []resolvedLine
	for _, item := range items {
		variant := variants[item.VariantID]
		lines = append(lines, resolvedLine{
			variantID: variant.ID,
			name:      variantProductName(variant),
			sku:       variant.SKU,
			quantity:  item.Quantity,
			price:     variant.EffectivePrice(),
			remarks:   item.Remarks,
		})
	}
	return lines, nil
}

// loadVariants resolves all referenced variants in one query. Any id that
// does not resolve fails the whole lookup.
func (s *Service) loadVariants(ids []uint) (map[uint]*product.ProductVariant, error) {
	var variants []product.ProductVariant
	if err := s.db.Preload("Product").Where("id IN ?", ids).Find(&variants).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve variants: %w", err)
	}

	byID := make(map[uint]*product.ProductVariant, len(variants))
	for i := range variants {
		byID[variants[i].ID] = &variants[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, apperr.Newf(apperr.NotFound, "variant %d not found", id)
		}
	}
	return byID, nil
}

func variantProductName(v *product.ProductVariant) string {
	if v.Product != nil {
		return v.Product.Name
	}
	return v.Name
}

// resolveShippingAddress uses the explicit address when given, otherwise the
// user's default saved address.
func (s *Service) resolveShippingAddress(userID *uint, input *AddressInput) (*Address, error) {
	if input != nil {
		if input.PostalCode == "" {
			return nil, apperr.New(apperr.Validation, "shipping address requires a postal code")
		}
		return &Address{
			Name:       input.Name,
			Phone:      input.Phone,
			Line1:      input.Line1,
			Line2:      input.Line2,
			City:       input.City,
			State:      input.State,
			PostalCode: input.PostalCode,
			Country:    defaultCountry(input.Country, s.config),
		}, nil
	}

	if userID == nil {
		return nil, apperr.New(apperr.Validation, "shipping address is required")
	}

	var saved user.Address
	err := s.db.Where("user_id = ?", *userID).
		Order("is_default DESC, id ASC").
		First(&saved).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.Validation, "shipping address is required")
		}
		return nil, fmt.Errorf("failed to load default address: %w", err)
	}
	if saved.PostalCode == "" {
		return nil, apperr.New(apperr.Validation, "shipping address requires a postal code")
	}

	return &Address{
		Name:       saved.Name,
		Phone:      saved.Phone,
		Line1:      saved.Line1,
		Line2:      saved.Line2,
		City:       saved.City,
		State:      saved.State,
		PostalCode: saved.PostalCode,
		Country:    defaultCountry(saved.Country, s.config),
	}, nil
}

func defaultCountry(country string, cfg *config.Config) string {
	if country != "" {
		return country
	}
	return cfg.Shipping.DefaultCountry
}

func (s *Service) chargeable(paymentMethod string) bool {
	if s.payments == nil {
		return false
	}
	switch strings.ToLower(paymentMethod) {
	case "card", "stripe":
		return true
	}
	return false
}

// chargeCard ensures a gateway customer and runs a one-off charge for the
// grand total. Runs before the order transaction so a declined card leaves
// nothing behind.
func (s *Service) chargeCard(ctx context.Context, o *Order) error {
	customerID, err := s.payments.EnsureCustomer(ctx, o.CustomerEmail, o.CustomerName)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "payment customer setup failed", err)
	}

	amountMinor := o.GrandTotal.Mul(decimal.NewFromInt(100)).IntPart()
	chargeID, err := s.payments.Charge(ctx, customerID, amountMinor, s.config.External.Stripe.Currency, "Order "+o.OrderNumber)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "payment charge failed", err)
	}

	o.PaymentRef = chargeID
	o.PaymentStatus = PaymentStatusPaid
	return nil
}

// runPostCommit performs the best-effort side effects after the order
// transaction committed. Failures here are logged, never propagated.
func (s *Service) runPostCommit(o *Order, owner cart.Owner, cartDriven bool) {
	logger := s.log.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
	})

	if cartDriven {
		if err := s.cartService.Clear(owner); err != nil {
			logger.WithError(err).Warn("failed to clear cart after order placement")
		}
	}

	if s.invoices != nil {
		path, err := s.invoices.RenderInvoice(o)
		if err != nil {
			logger.WithError(err).Warn("failed to render invoice")
		} else if path != "" {
			if err := s.db.Model(o).Update("invoice_pdf_path", path).Error; err != nil {
				logger.WithError(err).Warn("failed to record invoice path")
			} else {
				o.InvoicePDFPath = path
			}
		}
	}

	if s.mailer != nil && o.CustomerEmail != "" {
		if err := s.mailer.SendOrderConfirmation(o.CustomerEmail, o); err != nil {
			logger.WithError(err).Warn("failed to send order confirmation")
		}
	}
}

// generateOrderNumber builds a human-readable, collision-resistant order
// number. Uniqueness is enforced by the database index, not re-checked here.
func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}

// Queries

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page          int    `form:"page,default=1"`
	Limit         int    `form:"limit,default=20"`
	Status        string `form:"status"`
	PaymentStatus string `form:"payment_status"`
	Search        string `form:"q"`
}

// OrderListResponse represents paginated orders
type OrderListResponse struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

// GetOrders retrieves orders for administration
func (s *Service) GetOrders(req *OrderListRequest) (*OrderListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{}).Preload("Items")

	if req.Status != "" {
		if !ValidOrderStatus(OrderStatus(req.Status)) {
			return nil, apperr.Newf(apperr.Validation, "invalid order status %q", req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}
	if req.PaymentStatus != "" {
		if !ValidPaymentStatus(PaymentStatus(req.PaymentStatus)) {
			return nil, apperr.Newf(apperr.Validation, "invalid payment status %q", req.PaymentStatus)
		}
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(customer_email) LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return &OrderListResponse{Orders: orders, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(id uint) (*Order, error) {
	var o Order
	err := s.db.Preload("Items").Where("id = ?", id).First(&o).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetOrderByNumber retrieves a single order by its order number
func (s *Service) GetOrderByNumber(orderNumber string) (*Order, error) {
	var o Order
	err := s.db.Preload("Items").Where("order_number = ?", orderNumber).First(&o).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetUserOrders retrieves orders belonging to a user, newest first
func (s *Service) GetUserOrders(userID uint, page, limit int) (*OrderListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.Model(&Order{}).Preload("Items").Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return &OrderListResponse{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// RepeatOrder rebuilds the user's cart from an earlier order. Lines whose
// variant no longer exists are skipped; surviving lines use the variant's
// current price.
func (s *Service) RepeatOrder(userID, orderID uint) (*cart.CartResponse, error) {
	var o Order
	err := s.db.Preload("Items").Where("id = ? AND user_id = ?", orderID, userID).First(&o).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}

	owner := cart.UserOwner(userID)
	for _, item := range o.Items {
		if item.VariantID == nil {
			continue
		}
		_, err := s.cartService.AddItem(owner, &cart.AddToCartRequest{
			VariantID: *item.VariantID,
			Quantity:  item.Quantity,
			Remarks:   item.Remarks,
		})
		if err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				continue
			}
			return nil, err
		}
	}

	return s.cartService.GetCart(owner)
}
