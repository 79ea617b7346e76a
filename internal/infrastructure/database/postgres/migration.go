// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/your-org/commerce-api/internal/domain/cart"
	"github.com/your-org/commerce-api/internal/domain/inquiry"
	"github.com/your-org/commerce-api/internal/domain/order"
	"github.com/your-org/commerce-api/internal/domain/product"
	"github.com/your-org/commerce-api/internal/domain/shipping"
	"github.com/your-org/commerce-api/internal/domain/user"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	if log == nil {
		log = logrus.New()
	}
	return &Migration{
		db:  db,
		log: log,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("running database auto-migrations")

	// dependency order: referenced tables first
	models := []interface{}{
		&user.User{},
		&user.Address{},

		&product.Category{},
		&product.Product{},
		&product.ProductImage{},
		&product.ProductVariant{},

		&cart.Cart{},
		&cart.CartItem{},

		&shipping.ShippingRule{},

		&order.Order{},
		&order.OrderItem{},

		&inquiry.Inquiry{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for common query paths
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",

		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",

		"CREATE INDEX IF NOT EXISTS idx_shipping_rules_lookup ON shipping_rules(is_active, priority DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_shipping_rules_prefix ON shipping_rules(postal_prefix)",
		"CREATE INDEX IF NOT EXISTS idx_shipping_rules_pincode ON shipping_rules(pincode_from, pincode_to)",

		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_variant ON order_items(variant_id)",

		"CREATE INDEX IF NOT EXISTS idx_addresses_user_default ON addresses(user_id, is_default)",

		"CREATE INDEX IF NOT EXISTS idx_inquiries_created_at ON inquiries(created_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).Warn("failed to create index")
		}
	}
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if err := m.seedShippingRules(); err != nil {
		return fmt.Errorf("failed to seed shipping rules: %w", err)
	}
	return nil
}

func (m *Migration) seedAdminUser() error {
	var existing user.User
	err := m.db.Where("email = ?", "admin@example.com").First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	adminUser := user.User{
		Email:         "admin@example.com",
		Password:      string(hashedPassword),
		FirstName:     "Admin",
		LastName:      "User",
		IsActive:      true,
		IsAdmin:       true,
		EmailVerified: true,
	}
	if err := m.db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	m.log.WithField("email", adminUser.Email).Info("seeded admin user")
	return nil
}

// seedShippingRules installs a starter zone rule. Admins replace these with
// real zone rules.
func (m *Migration) seedShippingRules() error {
	var count int64
	if err := m.db.Model(&shipping.ShippingRule{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	prefix := "V"
	freeOver := decimal.NewFromInt(100)
	rule := shipping.ShippingRule{
		Name:          "Shipping: V",
		PostalPrefix:  &prefix,
		Charge:        decimal.NewFromInt(10),
		MinOrderValue: &freeOver,
		Priority:      0,
		IsActive:      true,
	}
	if err := m.db.Create(&rule).Error; err != nil {
		return err
	}

	m.log.Info("seeded default shipping rule")
	return nil
}
