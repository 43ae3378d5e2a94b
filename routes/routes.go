package routes

import (
	"time"

	"boomerang-backend/firebase"
	"boomerang-backend/handlers"
	"boomerang-backend/middleware"
	"boomerang-backend/roles"
	"boomerang-backend/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, storage firebase.StorageClient, sessions *session.Manager, roleStore *roles.Store, hub *roles.Hub) {
	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: db, Roles: roleStore, Hub: hub}
	productHandler := &handlers.ProductHandler{DB: db, Storage: storage}
	categoryHandler := &handlers.CategoryHandler{DB: db}
	cartHandler := &handlers.CartHandler{DB: db, Sessions: sessions}
	checkoutHandler := &handlers.CheckoutHandler{Sessions: sessions}
	addressHandler := &handlers.AddressHandler{DB: db, Sessions: sessions}
	orderHandler := &handlers.OrderHandler{DB: db, Sessions: sessions}
	wishlistHandler := &handlers.WishlistHandler{DB: db}

	// Credential endpoints get a tighter rate limit than the rest of
	// the API.
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Public routes
	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		auth.Use(authLimiter.Middleware())
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshTokenHandler)

		// Public catalog routes
		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:id", productHandler.GetProduct)
		api.GET("/search", productHandler.SearchProducts)

		// Public category routes
		api.GET("/categories", categoryHandler.GetCategories)
		api.GET("/categories/:id", categoryHandler.GetCategory)

		// Payment provider callback, authenticated by shared secret
		api.POST("/webhooks/payment", orderHandler.PaymentWebhook)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		// User profile
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/profile", authHandler.UpdateProfile)
		protected.GET("/auth/role", authHandler.GetRole)
		protected.POST("/auth/logout", authHandler.Logout)

		// Cart routes
		protected.GET("/cart", cartHandler.GetCart)
		protected.POST("/cart", cartHandler.AddItem)
		protected.PUT("/cart/:productId", cartHandler.SetQuantity)
		protected.DELETE("/cart/:productId", cartHandler.RemoveItem)
		protected.DELETE("/cart", cartHandler.ResetCart)

		// Checkout routes
		protected.POST("/checkout", checkoutHandler.CreateCheckoutSession)
		protected.GET("/checkout", checkoutHandler.GetCheckoutState)

		// Address routes
		protected.GET("/addresses", addressHandler.GetAddresses)
		protected.POST("/addresses", addressHandler.CreateAddress)
		protected.PUT("/addresses/:id", addressHandler.UpdateAddress)
		protected.POST("/addresses/:id/select", addressHandler.SelectAddress)

		// Order routes
		protected.GET("/orders", orderHandler.GetOrders)
		protected.GET("/orders/count", orderHandler.GetOrderCount)
		protected.GET("/orders/:id", orderHandler.GetOrder)

		// Wishlist routes
		protected.GET("/wishlist", wishlistHandler.GetWishlist)
		protected.POST("/wishlist", wishlistHandler.AddToWishlist)
		protected.DELETE("/wishlist/:productId", wishlistHandler.RemoveFromWishlist)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		// Product management
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)

		// Category management
		admin.POST("/categories", categoryHandler.CreateCategory)
		admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
		admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		// Order management
		admin.GET("/orders", orderHandler.ListAllOrders)
		admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
