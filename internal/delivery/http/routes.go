package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/superpoupe/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.GET("/stores", handler.ListStores)
		v1.GET("/categories", handler.ListCategories)

		products := v1.Group("/products")
		{
			products.GET("", handler.SearchProducts)
			products.GET("/count", handler.CountProducts)
			products.GET("/:id", handler.GetProduct)
			products.GET("/:id/compare", handler.CompareProduct)
		}

		cart := v1.Group("/cart/:session")
		{
			cart.GET("", handler.GetCart)
			cart.DELETE("", handler.ClearCart)
			cart.POST("/items", handler.AddCartItem)
			cart.DELETE("/items/:productId", handler.RemoveCartItem)
			cart.PATCH("/items/:productId", handler.ToggleCartItem)
		}

		admin := v1.Group("/admin")
		admin.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
		{
			admin.POST("/imports", handler.StartImport)
			admin.POST("/imports/preview", handler.PreviewImport)
			admin.GET("/imports/:id", handler.GetImport)
			admin.DELETE("/imports/:id", handler.CancelImport)
			admin.POST("/cleanup", handler.Cleanup)
			admin.POST("/discover", handler.Discover)
		}
	}

	return router
}
