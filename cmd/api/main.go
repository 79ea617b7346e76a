// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/domain/cart"
	"github.com/your-org/commerce-api/internal/domain/inquiry"
	"github.com/your-org/commerce-api/internal/domain/order"
	"github.com/your-org/commerce-api/internal/domain/product"
	"github.com/your-org/commerce-api/internal/domain/shipping"
	"github.com/your-org/commerce-api/internal/domain/user"
	"github.com/your-org/commerce-api/internal/infrastructure/database/postgres"
	"github.com/your-org/commerce-api/internal/infrastructure/database/redis"
	"github.com/your-org/commerce-api/internal/interfaces/http"
	"github.com/your-org/commerce-api/internal/interfaces/http/routes"
	"github.com/your-org/commerce-api/internal/pkg/email"
	"github.com/your-org/commerce-api/internal/pkg/ordermail"
	"github.com/your-org/commerce-api/internal/pkg/payment"
	"github.com/your-org/commerce-api/internal/pkg/pdf"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	log := newLogger(cfg)
	log.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("starting")

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer postgres.Close(db)

	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db, log)
	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("index creation failed")
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.WithError(err).Warn("data seeding failed")
		}
	}

	// Domain services
	userService := user.NewService(db, redisClient.GetClient(), cfg, log)
	addressService := user.NewAddressService(db, cfg)
	userAdmin := user.NewAdminService(db, cfg)
	productService := product.NewService(db, cfg)
	categoryService := product.NewCategoryService(db, cfg)
	cartService := cart.NewService(db, cfg)
	shippingService := shipping.NewService(db, cfg)
	inquiryService := inquiry.NewService(db)

	// Order placement collaborators
	emailService := email.NewEmailService(cfg, log)
	mailer := ordermail.NewOrderMailer(emailService, cfg)
	pdfService := pdf.NewService(cfg)

	var payments order.PaymentProcessor
	if cfg.External.Stripe.SecretKey != "" {
		payments = payment.NewStripeClient(cfg)
	}

	orderService := order.NewService(db, cfg, cartService, shippingService, payments, mailer, pdfService, log)

	deps := &routes.Dependencies{
		Config:          cfg,
		Log:             log,
		UserService:     userService,
		AddressService:  addressService,
		UserAdmin:       userAdmin,
		ProductService:  productService,
		CategoryService: categoryService,
		CartService:     cartService,
		ShippingService: shippingService,
		OrderService:    orderService,
		InquiryService:  inquiryService,
		PDFService:      pdfService,
	}

	server := http.NewServer(cfg, db, redisClient.GetClient(), deps, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("failed to shutdown HTTP server gracefully")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}
