// internal/domain/cart/service_test.go
package cart

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/domain/product"
	"github.com/your-org/commerce-api/internal/pkg/apperr"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&product.Product{},
		&product.ProductVariant{},
		&Cart{},
		&CartItem{},
	))

	return NewService(db, &config.Config{}), db
}

func seedVariant(t *testing.T, db *gorm.DB, sku, price string) *product.ProductVariant {
	t.Helper()

	p := product.Product{
		SKU:   "P-" + sku,
		Name:  "Product " + sku,
		Slug:  "product-" + sku,
		Price: mustDec(t, price),
	}
	require.NoError(t, db.Create(&p).Error)

	v := product.ProductVariant{
		ProductID: p.ID,
		SKU:       sku,
		Name:      "Variant " + sku,
		Price:     mustDec(t, price),
		Stock:     100,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&v).Error)
	return &v
}

func mustDec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func TestAddItemCreatesCartLazily(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "TEE-S", "19.99")
	owner := GuestOwner("sess-1")

	resp, err := s.GetCart(owner)
	require.NoError(t, err)
	assert.Empty(t, resp.Cart.Items)
	assert.True(t, resp.Totals.Subtotal.IsZero())

	resp, err = s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, 3, resp.Cart.Items[0].Quantity)
	assert.Equal(t, 3, resp.Totals.TotalQuantity)
	assert.True(t, resp.Totals.Subtotal.Equal(mustDec(t, "59.97")), "subtotal %s", resp.Totals.Subtotal)
}

func TestAddItemUpsertsExistingLine(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "TEE-M", "19.99")
	owner := UserOwner(1)

	_, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 2})
	require.NoError(t, err)

	// A later add picks up the current variant price.
	require.NoError(t, db.Model(variant).Update("price", mustDec(t, "24.99")).Error)

	resp, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, 3, resp.Cart.Items[0].Quantity)
	assert.True(t, resp.Cart.Items[0].Price.Equal(mustDec(t, "24.99")), "price %s", resp.Cart.Items[0].Price)
	assert.True(t, resp.Totals.Subtotal.Equal(mustDec(t, "74.97")), "subtotal %s", resp.Totals.Subtotal)
}

func TestAddItemKeepsRemarksUnlessReplaced(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "TEE-L", "10.00")
	owner := UserOwner(1)

	_, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 1, Remarks: "gift wrap"})
	require.NoError(t, err)

	resp, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "gift wrap", resp.Cart.Items[0].Remarks)

	resp, err = s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 1, Remarks: "no wrap"})
	require.NoError(t, err)
	assert.Equal(t, "no wrap", resp.Cart.Items[0].Remarks)
}

func TestAddItemRejectsBadInput(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "TEE-XL", "10.00")
	require.NoError(t, db.Model(variant).Update("is_active", false).Error)
	owner := UserOwner(1)

	_, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 0})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 1})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound), "inactive variant")

	_, err = s.AddItem(owner, &AddToCartRequest{VariantID: 9999, Quantity: 1})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "MUG", "12.50")
	owner := UserOwner(1)

	resp, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 2})
	require.NoError(t, err)
	itemID := resp.Cart.Items[0].ID

	zero := 0
	resp, err = s.UpdateItem(owner, itemID, &UpdateCartItemRequest{Quantity: &zero})
	require.NoError(t, err)
	assert.Empty(t, resp.Cart.Items)
}

func TestUpdateItemRefreshesPriceSnapshot(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "CAP", "12.50")
	owner := UserOwner(1)

	resp, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := resp.Cart.Items[0].ID

	require.NoError(t, db.Model(variant).Update("price", mustDec(t, "14.00")).Error)

	qty := 4
	resp, err = s.UpdateItem(owner, itemID, &UpdateCartItemRequest{Quantity: &qty})
	require.NoError(t, err)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, 4, resp.Cart.Items[0].Quantity)
	assert.True(t, resp.Cart.Items[0].Price.Equal(mustDec(t, "14.00")), "price %s", resp.Cart.Items[0].Price)
}

func TestUpdateItemMissing(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "PIN", "5.00")
	owner := UserOwner(1)

	qty := 1
	_, err := s.UpdateItem(owner, 1, &UpdateCartItemRequest{Quantity: &qty})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound), "no cart yet")

	_, err = s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = s.UpdateItem(owner, 9999, &UpdateCartItemRequest{Quantity: &qty})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestRemoveItem(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "BAG", "30.00")
	owner := GuestOwner("sess-2")

	resp, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := resp.Cart.Items[0].ID

	resp, err = s.RemoveItem(owner, itemID)
	require.NoError(t, err)
	assert.Empty(t, resp.Cart.Items)

	_, err = s.RemoveItem(owner, itemID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestClear(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "HAT", "22.00")
	owner := UserOwner(1)

	// Clearing an absent cart is a no-op.
	require.NoError(t, s.Clear(owner))

	_, err := s.AddItem(owner, &AddToCartRequest{VariantID: variant.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, s.Clear(owner))

	resp, err := s.GetCart(owner)
	require.NoError(t, err)
	assert.Empty(t, resp.Cart.Items)

	var itemCount int64
	require.NoError(t, db.Model(&CartItem{}).Count(&itemCount).Error)
	assert.Zero(t, itemCount)
}

func TestMergeGuestIntoUser(t *testing.T) {
	s, db := newTestService(t)
	shared := seedVariant(t, db, "TEE", "19.99")
	guestOnly := seedVariant(t, db, "SOCK", "7.00")
	guest := GuestOwner("sess-3")
	user := UserOwner(42)

	_, err := s.AddItem(user, &AddToCartRequest{VariantID: shared.ID, Quantity: 3, Remarks: "old note"})
	require.NoError(t, err)

	require.NoError(t, db.Model(shared).Update("price", mustDec(t, "17.99")).Error)
	_, err = s.AddItem(guest, &AddToCartRequest{VariantID: shared.ID, Quantity: 2, Remarks: "guest note"})
	require.NoError(t, err)
	_, err = s.AddItem(guest, &AddToCartRequest{VariantID: guestOnly.ID, Quantity: 1})
	require.NoError(t, err)

	resp, err := s.MergeGuestIntoUser("sess-3", 42)
	require.NoError(t, err)
	require.Len(t, resp.Cart.Items, 2)

	byVariant := make(map[uint]CartItem, len(resp.Cart.Items))
	for _, item := range resp.Cart.Items {
		byVariant[item.VariantID] = item
	}

	merged := byVariant[shared.ID]
	assert.Equal(t, 5, merged.Quantity)
	assert.True(t, merged.Price.Equal(mustDec(t, "17.99")), "guest price wins, got %s", merged.Price)
	assert.Equal(t, "guest note", merged.Remarks)

	moved := byVariant[guestOnly.ID]
	assert.Equal(t, 1, moved.Quantity)

	guestResp, err := s.GetCart(guest)
	require.NoError(t, err)
	assert.Empty(t, guestResp.Cart.Items)

	var cartCount int64
	require.NoError(t, db.Model(&Cart{}).Where("session_key = ?", "sess-3").Count(&cartCount).Error)
	assert.Zero(t, cartCount)
}

func TestMergeMissingGuestCartIsNoop(t *testing.T) {
	s, db := newTestService(t)
	variant := seedVariant(t, db, "TEE2", "10.00")
	user := UserOwner(7)

	_, err := s.AddItem(user, &AddToCartRequest{VariantID: variant.ID, Quantity: 1})
	require.NoError(t, err)

	resp, err := s.MergeGuestIntoUser("never-seen", 7)
	require.NoError(t, err)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, 1, resp.Cart.Items[0].Quantity)
}

func TestMergeRequiresSessionKey(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.MergeGuestIntoUser("", 7)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestOwnerValid(t *testing.T) {
	assert.True(t, UserOwner(1).Valid())
	assert.True(t, GuestOwner("sess").Valid())
	assert.False(t, Owner{}.Valid())
}
