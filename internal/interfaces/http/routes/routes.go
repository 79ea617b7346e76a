// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/domain/cart"
	"github.com/your-org/commerce-api/internal/domain/inquiry"
	"github.com/your-org/commerce-api/internal/domain/order"
	"github.com/your-org/commerce-api/internal/domain/product"
	"github.com/your-org/commerce-api/internal/domain/shipping"
	"github.com/your-org/commerce-api/internal/domain/user"
	"github.com/your-org/commerce-api/internal/interfaces/http/handlers"
	"github.com/your-org/commerce-api/internal/interfaces/http/middleware"
	"github.com/your-org/commerce-api/internal/pkg/pdf"
)

// Dependencies carries the constructed services the routes dispatch to.
type Dependencies struct {
	Config *config.Config
	Log    *logrus.Logger

	UserService     *user.Service
	AddressService  *user.AddressService
	UserAdmin       *user.AdminService
	ProductService  *product.Service
	CategoryService *product.CategoryService
	CartService     *cart.Service
	ShippingService *shipping.Service
	OrderService    *order.Service
	InquiryService  *inquiry.Service
	PDFService      *pdf.Service
}

// SetupRoutes registers every API route on the given group
func SetupRoutes(rg *gin.RouterGroup, deps *Dependencies) {
	cfg := deps.Config

	authHandler := handlers.NewAuthHandler(deps.UserService, deps.CartService, deps.Log)
	addressHandler := handlers.NewAddressHandler(deps.AddressService)
	userAdminHandler := handlers.NewUserAdminHandler(deps.UserAdmin)
	productHandler := handlers.NewProductHandler(deps.ProductService)
	categoryHandler := handlers.NewCategoryHandler(deps.CategoryService)
	cartHandler := handlers.NewCartHandler(deps.CartService)
	shippingHandler := handlers.NewShippingHandler(deps.ShippingService, deps.CartService)
	orderHandler := handlers.NewOrderHandler(deps.OrderService)
	invoiceHandler := handlers.NewInvoiceHandler(deps.OrderService, deps.PDFService)
	inquiryHandler := handlers.NewInquiryHandler(deps.InquiryService)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/profile", authHandler.GetProfile)
			protected.PUT("/profile", authHandler.UpdateProfile)
			protected.PUT("/password", authHandler.ChangePassword)
		}
	}

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/slug/:slug", productHandler.GetProductBySlug)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", categoryHandler.GetCategories)
		categories.GET("/tree", categoryHandler.GetCategoryTree)
		categories.GET("/:id", categoryHandler.GetCategory)
	}

	// Carts work for guests via X-Session-Key and for authenticated users.
	cartGroup := rg.Group("/cart")
	cartGroup.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.POST("/items", cartHandler.AddItem)
		cartGroup.PUT("/items/:id", cartHandler.UpdateItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveItem)
		cartGroup.DELETE("", cartHandler.ClearCart)
		cartGroup.POST("/merge", cartHandler.MergeCart)
	}

	addresses := rg.Group("/addresses")
	addresses.Use(middleware.AuthMiddleware(cfg))
	{
		addresses.GET("", addressHandler.GetAddresses)
		addresses.GET("/:id", addressHandler.GetAddress)
		addresses.POST("", addressHandler.CreateAddress)
		addresses.PUT("/:id", addressHandler.UpdateAddress)
		addresses.DELETE("/:id", addressHandler.DeleteAddress)
		addresses.PUT("/:id/default", addressHandler.SetDefaultAddress)
	}

	shippingGroup := rg.Group("/shipping")
	shippingGroup.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		shippingGroup.POST("/quote", shippingHandler.QuoteShipping)
	}

	orders := rg.Group("/orders")
	orders.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.PlaceOrder)

		authed := orders.Group("")
		authed.Use(middleware.AuthMiddleware(cfg))
		{
			authed.GET("", orderHandler.GetMyOrders)
			authed.GET("/:id", orderHandler.GetMyOrder)
			authed.POST("/:id/repeat", orderHandler.RepeatOrder)
			authed.GET("/:id/invoice", invoiceHandler.DownloadInvoice)
		}
	}

	inquiries := rg.Group("/inquiries")
	{
		inquiries.POST("", inquiryHandler.CreateInquiry)
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		adminProducts := admin.Group("/products")
		{
			adminProducts.GET("", productHandler.GetProducts)
			adminProducts.GET("/:id", productHandler.GetProduct)
			adminProducts.POST("", productHandler.CreateProduct)
			adminProducts.PUT("/:id", productHandler.UpdateProduct)
			adminProducts.DELETE("/:id", productHandler.DeleteProduct)
		}
		admin.PUT("/variants/:variantId", productHandler.UpdateVariant)

		adminCategories := admin.Group("/categories")
		{
			adminCategories.POST("", categoryHandler.CreateCategory)
			adminCategories.PUT("/:id", categoryHandler.UpdateCategory)
			adminCategories.DELETE("/:id", categoryHandler.DeleteCategory)
		}

		adminRules := admin.Group("/shipping-rules")
		{
			adminRules.GET("", shippingHandler.ListRules)
			adminRules.GET("/:id", shippingHandler.GetRule)
			adminRules.POST("", shippingHandler.CreateRule)
			adminRules.PUT("/:id", shippingHandler.UpdateRule)
			adminRules.DELETE("/:id", shippingHandler.DeleteRule)
		}

		adminOrders := admin.Group("/orders")
		{
			adminOrders.GET("", orderHandler.ListOrders)
			adminOrders.GET("/:id", orderHandler.GetOrder)
			adminOrders.PUT("/:id/status", orderHandler.UpdateOrderStatus)
			adminOrders.PUT("/:id/payment-status", orderHandler.UpdatePaymentStatus)
			adminOrders.POST("/:id/ship", orderHandler.ShipOrder)
			adminOrders.POST("/:id/cancel", orderHandler.CancelOrder)
			adminOrders.GET("/:id/invoice", invoiceHandler.DownloadInvoice)
		}

		adminUsers := admin.Group("/users")
		{
			adminUsers.GET("", userAdminHandler.GetUsers)
			adminUsers.GET("/export", userAdminHandler.ExportUsers)
			adminUsers.GET("/:id", userAdminHandler.GetUser)
			adminUsers.PUT("/:id/status", userAdminHandler.UpdateUserStatus)
			adminUsers.PUT("/:id/admin", userAdminHandler.ToggleUserAdmin)
		}

		adminInquiries := admin.Group("/inquiries")
		{
			adminInquiries.GET("", inquiryHandler.ListInquiries)
			adminInquiries.GET("/:id", inquiryHandler.GetInquiry)
			adminInquiries.DELETE("/:id", inquiryHandler.DeleteInquiry)
		}
	}
}
