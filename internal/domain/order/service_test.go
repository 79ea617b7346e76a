// internal/domain/order/service_test.go
package order

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/domain/cart"
	"github.com/your-org/commerce-api/internal/domain/product"
	"github.com/your-org/commerce-api/internal/domain/shipping"
	"github.com/your-org/commerce-api/internal/domain/user"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

type stubPayments struct {
	failCharge bool
	customers  []string
	charges    []int64
}

func (p *stubPayments) EnsureCustomer(ctx context.Context, email, name string) (string, error) {
	p.customers = append(p.customers, email)
	return "cus_stub", nil
}

func (p *stubPayments) Charge(ctx context.Context, customerID string, amountMinor int64, currency, description string) (string, error) {
	if p.failCharge {
		return "", errors.New("card declined")
	}
	p.charges = append(p.charges, amountMinor)
	return "pi_stub", nil
}

type stubMailer struct {
	err        error
	recipients []string
}

func (m *stubMailer) SendOrderConfirmation(email string, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.recipients = append(m.recipients, email)
	return nil
}

type stubInvoices struct {
	path  string
	err   error
	calls int
}

func (r *stubInvoices) RenderInvoice(o *Order) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.path, nil
}

type testEnv struct {
	db       *gorm.DB
	svc      *Service
	carts    *cart.Service
	payments *stubPayments
	mailer   *stubMailer
	invoices *stubInvoices
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&user.User{},
		&user.Address{},
		&product.Product{},
		&product.ProductVariant{},
		&cart.Cart{},
		&cart.CartItem{},
		&shipping.ShippingRule{},
		&Order{},
		&OrderItem{},
	))

	cfg := &config.Config{}
	cfg.Shipping.LocatorScheme = shipping.SchemePostalPrefix
	cfg.Shipping.DefaultCountry = "CA"
	cfg.External.Stripe.Currency = "cad"

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		db:       db,
		carts:    cart.NewService(db, cfg),
		payments: &stubPayments{},
		mailer:   &stubMailer{},
		invoices: &stubInvoices{path: "invoices/test.pdf"},
	}
	env.svc = NewService(db, cfg, env.carts, shipping.NewService(db, cfg), env.payments, env.mailer, env.invoices, log)
	return env
}

func (e *testEnv) seedVariant(t *testing.T, sku, price string, stock int) *product.ProductVariant {
	t.Helper()

	p := product.Product{
		SKU:   "P-" + sku,
		Name:  "Product " + sku,
		Slug:  "product-" + sku,
		Price: mustDec(t, price),
	}
	require.NoError(t, e.db.Create(&p).Error)

	v := product.ProductVariant{
		ProductID: p.ID,
		SKU:       sku,
		Name:      "Variant " + sku,
		Price:     mustDec(t, price),
		Stock:     stock,
		IsActive:  true,
	}
	require.NoError(t, e.db.Create(&v).Error)
	return &v
}

func (e *testEnv) seedRule(t *testing.T, prefix, charge string) {
	t.Helper()
	p := prefix
	require.NoError(t, e.db.Create(&shipping.ShippingRule{
		Name:         "Shipping: " + prefix,
		PostalPrefix: &p,
		Charge:       mustDec(t, charge),
		IsActive:     true,
	}).Error)
}

func mustDec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func testAddress() *AddressInput {
	return &AddressInput{
		Name:       "Pat Doe",
		Line1:      "100 Main St",
		City:       "Vancouver",
		State:      "BC",
		PostalCode: "V6B1A1",
	}
}

func TestPlaceOrderExplicitItems(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	env.seedRule(t, "V", "10.00")

	o, err := env.svc.PlaceOrder(context.Background(), cart.GuestOwner("sess-1"), &PlaceOrderRequest{
		Items:           []PlaceOrderItemRequest{{VariantID: variant.ID, Quantity: 2, Remarks: "fold flat"}},
		ShippingAddress: testAddress(),
		CustomerName:    "Pat Doe",
		CustomerEmail:   "pat@example.com",
		PaymentMethod:   "cod",
	})
	require.NoError(t, err)

	assert.True(t, o.Subtotal.Equal(mustDec(t, "50.00")), "subtotal %s", o.Subtotal)
	assert.True(t, o.Shipping.Equal(mustDec(t, "10.00")), "shipping %s", o.Shipping)
	assert.True(t, o.GrandTotal.Equal(mustDec(t, "60.00")), "grand total %s", o.GrandTotal)
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, "CAD", o.Currency)
	assert.Equal(t, "CA", o.ShippingAddress.Country)
	assert.Nil(t, o.UserID)
	require.NotNil(t, o.ShippingRuleID)

	stored, err := env.svc.GetOrder(o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Product TEE", stored.Items[0].ProductName)
	assert.Equal(t, "TEE", stored.Items[0].SKU)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.Equal(t, "fold flat", stored.Items[0].Remarks)
	assert.True(t, stored.Items[0].Total.Equal(mustDec(t, "50.00")))

	assert.Equal(t, []string{"pat@example.com"}, env.mailer.recipients)
	assert.Equal(t, "invoices/test.pdf", stored.InvoicePDFPath)
}

func TestPlaceOrderChargesCard(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	env.seedRule(t, "V", "10.00")

	o, err := env.svc.PlaceOrder(context.Background(), cart.UserOwner(1), &PlaceOrderRequest{
		Items:           []PlaceOrderItemRequest{{VariantID: variant.ID, Quantity: 2}},
		ShippingAddress: testAddress(),
		CustomerEmail:   "pat@example.com",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, "pi_stub", o.PaymentRef)
	require.Len(t, env.payments.charges, 1)
	assert.Equal(t, int64(6000), env.payments.charges[0])
}

func TestPlaceOrderChargeFailureLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	env.payments.failCharge = true

	_, err := env.svc.PlaceOrder(context.Background(), cart.UserOwner(1), &PlaceOrderRequest{
		Items:           []PlaceOrderItemRequest{{VariantID: variant.ID, Quantity: 2}},
		ShippingAddress: testAddress(),
		CustomerEmail:   "pat@example.com",
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Upstream))

	var orders, items int64
	require.NoError(t, env.db.Model(&Order{}).Count(&orders).Error)
	require.NoError(t, env.db.Model(&OrderItem{}).Count(&items).Error)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Zero(t, env.invoices.calls)
	assert.Empty(t, env.mailer.recipients)
}

func TestPlaceOrderMissingVariantFailsBatch(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)

	_, err := env.svc.PlaceOrder(context.Background(), cart.UserOwner(1), &PlaceOrderRequest{
		Items: []PlaceOrderItemRequest{
			{VariantID: variant.ID, Quantity: 1},
			{VariantID: variant.ID + 100, Quantity: 1},
		},
		ShippingAddress: testAddress(),
		CustomerEmail:   "pat@example.com",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	var orders int64
	require.NoError(t, env.db.Model(&Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestPlaceOrderItemInsertFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)

	// Fail the item insert inside the placement transaction; the order row
	// created in the same transaction must be rolled back with it.
	err := env.db.Callback().Create().Before("gorm:create").Register("order_items_insert_failure", func(db *gorm.DB) {
		if db.Statement.Table == "order_items" {
			db.AddError(errors.New("order_items insert failed"))
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, env.db.Callback().Create().Remove("order_items_insert_failure"))
	})

	_, err = env.svc.PlaceOrder(context.Background(), cart.UserOwner(1), &PlaceOrderRequest{
		Items:           []PlaceOrderItemRequest{{VariantID: variant.ID, Quantity: 2}},
		ShippingAddress: testAddress(),
		CustomerEmail:   "pat@example.com",
	})
	require.Error(t, err)

	var orders, items int64
	require.NoError(t, env.db.Unscoped().Model(&Order{}).Count(&orders).Error)
	require.NoError(t, env.db.Unscoped().Model(&OrderItem{}).Count(&items).Error)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Zero(t, env.invoices.calls)
	assert.Empty(t, env.mailer.recipients)
}

func TestPlaceOrderFromCartClearsCart(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	owner := cart.UserOwner(9)

	_, err := env.carts.AddItem(owner, &cart.AddToCartRequest{VariantID: variant.ID, Quantity: 2, Remarks: "cart note"})
	require.NoError(t, err)

	// The cart keeps its snapshot price even when the variant moves.
	require.NoError(t, env.db.Model(variant).Update("price", mustDec(t, "30.00")).Error)

	o, err := env.svc.PlaceOrder(context.Background(), owner, &PlaceOrderRequest{
		FromCart:        true,
		ShippingAddress: testAddress(),
		CustomerEmail:   "pat@example.com",
	})
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].Price.Equal(mustDec(t, "25.00")), "price %s", o.Items[0].Price)
	assert.Equal(t, "cart note", o.Items[0].Remarks)
	require.NotNil(t, o.UserID)
	assert.Equal(t, uint(9), *o.UserID)

	resp, err := env.carts.GetCart(owner)
	require.NoError(t, err)
	assert.Empty(t, resp.Cart.Items)
}

func TestPlaceOrderWithoutItems(t *testing.T) {
	env := newTestEnv(t)
	owner := cart.UserOwner(1)

	for _, req := range []*PlaceOrderRequest{
		{ShippingAddress: testAddress()},
		{FromCart: true, ShippingAddress: testAddress()},
	} {
		_, err := env.svc.PlaceOrder(context.Background(), owner, req)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.Validation))
	}
}

func TestPlaceOrderUsesDefaultAddress(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)

	require.NoError(t, env.db.Create(&user.Address{
		UserID: 5, Line1: "1 Old Rd", PostalCode: "M5V2T6", Country: "CA",
	}).Error)
	require.NoError(t, env.db.Create(&user.Address{
		UserID: 5, Line1: "2 New Ave", PostalCode: "V6B1A1", Country: "CA", IsDefault: true,
	}).Error)

	o, err := env.svc.PlaceOrder(context.Background(), cart.UserOwner(5), &PlaceOrderRequest{
		Items:         []PlaceOrderItemRequest{{VariantID: variant.ID, Quantity: 1}},
		CustomerEmail: "pat@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "V6B1A1", o.ShippingAddress.PostalCode)
	assert.Equal(t, "2 New Ave", o.ShippingAddress.Line1)
}

func TestPlaceOrderRequiresAddress(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)

	// A guest has no saved addresses to fall back on.
	_, err := env.svc.PlaceOrder(context.Background(), cart.GuestOwner("sess-1"), &PlaceOrderRequest{
		Items: []PlaceOrderItemRequest{{VariantID: variant.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	// A user without saved addresses fails the same way.
	_, err = env.svc.PlaceOrder(context.Background(), cart.UserOwner(3), &PlaceOrderRequest{
		Items: []PlaceOrderItemRequest{{VariantID: variant.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestPlaceOrderSurvivesCollaboratorFailures(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	env.mailer.err = errors.New("smtp down")
	env.invoices.err = errors.New("wkhtmltopdf missing")

	o, err := env.svc.PlaceOrder(context.Background(), cart.UserOwner(1), &PlaceOrderRequest{
		Items:           []PlaceOrderItemRequest{{VariantID: variant.ID, Quantity: 1}},
		ShippingAddress: testAddress(),
		CustomerEmail:   "pat@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, o.InvoicePDFPath)

	stored, err := env.svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.InvoicePDFPath)
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		n := generateOrderNumber()
		assert.Regexp(t, pattern, n)
		assert.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
}

func placeTestOrder(t *testing.T, env *testEnv, paymentMethod string, lines ...PlaceOrderItemRequest) *Order {
	t.Helper()
	o, err := env.svc.PlaceOrder(context.Background(), cart.UserOwner(1), &PlaceOrderRequest{
		Items:           lines,
		ShippingAddress: testAddress(),
		CustomerEmail:   "pat@example.com",
		PaymentMethod:   paymentMethod,
	})
	require.NoError(t, err)
	return o
}

func TestCancelOrderRestocksAndRefunds(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	o := placeTestOrder(t, env, "card", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 2})
	require.Equal(t, PaymentStatusPaid, o.PaymentStatus)

	cancelled, err := env.svc.CancelOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)

	stored, err := env.svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, stored.Status)
	assert.Equal(t, PaymentStatusRefunded, stored.PaymentStatus)

	var v product.ProductVariant
	require.NoError(t, env.db.First(&v, variant.ID).Error)
	assert.Equal(t, 12, v.Stock)
}

func TestCancelOrderSkipsMissingVariants(t *testing.T) {
	env := newTestEnv(t)
	gone := env.seedVariant(t, "GONE", "10.00", 5)
	kept := env.seedVariant(t, "KEPT", "10.00", 5)
	o := placeTestOrder(t, env, "cod",
		PlaceOrderItemRequest{VariantID: gone.ID, Quantity: 1},
		PlaceOrderItemRequest{VariantID: kept.ID, Quantity: 3},
	)

	require.NoError(t, env.db.Delete(gone).Error)

	_, err := env.svc.CancelOrder(o.ID)
	require.NoError(t, err)

	var v product.ProductVariant
	require.NoError(t, env.db.First(&v, kept.ID).Error)
	assert.Equal(t, 8, v.Stock)

	// An unpaid order has nothing to refund.
	var stored Order
	require.NoError(t, env.db.First(&stored, o.ID).Error)
	assert.Equal(t, OrderStatusCancelled, stored.Status)
	assert.Equal(t, PaymentStatusPending, stored.PaymentStatus)
}

func TestCancelOrderAlreadyCancelled(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	o := placeTestOrder(t, env, "cod", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 1})

	_, err := env.svc.CancelOrder(o.ID)
	require.NoError(t, err)

	_, err = env.svc.CancelOrder(o.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Conflict))

	_, err = env.svc.CancelOrder(9999)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestShipOrder(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	o := placeTestOrder(t, env, "cod", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 1})

	shipped, err := env.svc.ShipOrder(o.ID, "TRK-123")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)

	stored, err := env.svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, stored.Status)
	assert.Equal(t, "TRK-123", stored.TrackingNumber)
	require.NotNil(t, stored.ShippedAt)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	o := placeTestOrder(t, env, "cod", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 2})

	_, err := env.svc.UpdateOrderStatus(o.ID, "shiped")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = env.svc.UpdateOrderStatus(o.ID, OrderStatusProcessing)
	require.NoError(t, err)
	stored, err := env.svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusProcessing, stored.Status)

	// Cancelling through the status endpoint still restocks.
	_, err = env.svc.UpdateOrderStatus(o.ID, OrderStatusCancelled)
	require.NoError(t, err)
	var v product.ProductVariant
	require.NoError(t, env.db.First(&v, variant.ID).Error)
	assert.Equal(t, 12, v.Stock)
}

func TestUpdatePaymentStatus(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	o := placeTestOrder(t, env, "cod", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 1})

	_, err := env.svc.UpdatePaymentStatus(o.ID, "settled")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = env.svc.UpdatePaymentStatus(o.ID, PaymentStatusPaid)
	require.NoError(t, err)

	stored, err := env.svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, stored.PaymentStatus)
}

func TestRepeatOrder(t *testing.T) {
	env := newTestEnv(t)
	gone := env.seedVariant(t, "GONE", "10.00", 5)
	kept := env.seedVariant(t, "KEPT", "20.00", 5)
	o := placeTestOrder(t, env, "cod",
		PlaceOrderItemRequest{VariantID: gone.ID, Quantity: 1},
		PlaceOrderItemRequest{VariantID: kept.ID, Quantity: 2, Remarks: "as before"},
	)

	require.NoError(t, env.db.Delete(gone).Error)
	require.NoError(t, env.db.Model(kept).Update("price", mustDec(t, "22.00")).Error)

	resp, err := env.svc.RepeatOrder(1, o.ID)
	require.NoError(t, err)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, kept.ID, resp.Cart.Items[0].VariantID)
	assert.Equal(t, 2, resp.Cart.Items[0].Quantity)
	assert.Equal(t, "as before", resp.Cart.Items[0].Remarks)
	assert.True(t, resp.Cart.Items[0].Price.Equal(mustDec(t, "22.00")), "price %s", resp.Cart.Items[0].Price)
}

func TestRepeatOrderOwnership(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	o := placeTestOrder(t, env, "cod", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 1})

	_, err := env.svc.RepeatOrder(2, o.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestGetOrdersFilters(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	placeTestOrder(t, env, "card", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 1})
	placeTestOrder(t, env, "cod", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 1})

	resp, err := env.svc.GetOrders(&OrderListRequest{PaymentStatus: string(PaymentStatusPaid)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)

	resp, err = env.svc.GetOrders(&OrderListRequest{Search: "pat@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)

	_, err = env.svc.GetOrders(&OrderListRequest{Status: "bogus"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestGetUserOrders(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, "TEE", "25.00", 10)
	placeTestOrder(t, env, "cod", PlaceOrderItemRequest{VariantID: variant.ID, Quantity: 1})

	resp, err := env.svc.GetUserOrders(1, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Orders, 1)

	resp, err = env.svc.GetUserOrders(99, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
}
