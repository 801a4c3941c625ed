// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kitshop/backend/internal/config"
	"github.com/kitshop/backend/internal/gateway"
	"github.com/kitshop/backend/internal/handlers"
	"github.com/kitshop/backend/internal/middleware"
	"github.com/kitshop/backend/internal/services"
	"github.com/kitshop/backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	bepaidClient := gateway.NewBePaid(cfg)

	catalogService := services.NewCatalogService(db)
	userService := services.NewUserService(db)
	orderService := services.NewOrderService(db, catalogService, bepaidClient, cfg)
	deliveryService := services.NewDeliveryService(db, catalogService)
	adminService := services.NewAdminService(db)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Error("Storage initialization failed, content resolution degraded to pass-through")
		storageService = services.PassthroughStorage(cfg)
	}

	// Initialize handlers
	productHandler := handlers.NewProductHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderService, userService)
	deliveryHandler := handlers.NewDeliveryHandler(deliveryService, userService, storageService)
	webhookHandler := handlers.NewWebhookHandler(db, orderService, cfg.Payment.WebhookSecret)
	adminHandler := handlers.NewAdminHandler(adminService, catalogService, cfg)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Payment provider notifications
	r.POST("/webhook/bepaid", webhookHandler.HandleBepaid)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Catalog routes
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/:slug", productHandler.GetProduct)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.OrderRateLimit())
		{
			orders.POST("", orderHandler.CreateOrder)
		}

		// Payment reconciliation (explicit poll path)
		payments := v1.Group("/payments")
		{
			payments.POST("/reconcile", orderHandler.Reconcile)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("/:telegram_id/orders", orderHandler.GetUserOrders)
			users.GET("/:telegram_id/products", deliveryHandler.GetUserProducts)
		}

		// Content delivery
		v1.POST("/delivery", deliveryHandler.Deliver)

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.POST("/login", middleware.AdminLoginRateLimit(), adminHandler.Login)

			protected := admin.Group("")
			protected.Use(middleware.AdminRequired())
			{
				protected.GET("/orders", adminHandler.GetOrders)
				protected.GET("/stats", adminHandler.GetStats)
				protected.PUT("/products/:slug/active", adminHandler.SetProductActive)
			}
		}
	}

	return r
}
