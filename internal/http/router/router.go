package router

import (
	"github.com/gin-gonic/gin"

	"github.com/rustaceolibre/marketplace-backend/internal/config"
	"github.com/rustaceolibre/marketplace-backend/internal/http/handlers"
	"github.com/rustaceolibre/marketplace-backend/internal/http/middleware"
	"github.com/rustaceolibre/marketplace-backend/internal/service"
)

// SetupRouter собирает все маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	catalogHandler *handlers.CatalogHandler,
	orderHandler *handlers.OrderHandler,
	ratingHandler *handlers.RatingHandler,
	disputeHandler *handlers.DisputeHandler,
	notificationHandler *handlers.NotificationHandler,
	treasuryHandler *handlers.TreasuryHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.POST("/logout", authHandler.Logout)
		protectedAuth.GET("/me", authHandler.Me)
	}

	// Публичные маршруты: витрина каталога и WebSocket.
	api.GET("/publications", catalogHandler.Browse)
	api.GET("/publications/:id", middleware.IDValidator("id"), catalogHandler.GetPublication)
	api.GET("/products/:id", middleware.IDValidator("id"), catalogHandler.GetProduct)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		// Каталог продавца.
		protected.POST("/products", catalogHandler.RegisterProduct)
		protected.POST("/products/:id/stock", middleware.IDValidator("id"), catalogHandler.AddStock)
		protected.POST("/publications", catalogHandler.Publish)
		protected.PUT("/publications/:id/quantity", middleware.IDValidator("id"), catalogHandler.SetOfferedQuantity)
		protected.GET("/publications/my", catalogHandler.ListMyPublications)

		// Жизненный цикл заказа.
		protected.POST("/orders", orderHandler.Purchase)
		protected.GET("/orders/purchases", orderHandler.ListPurchases)
		protected.GET("/orders/sales", orderHandler.ListSales)
		protected.GET("/orders/:id", middleware.IDValidator("id"), orderHandler.GetOrder)
		protected.POST("/orders/:id/dispatch", middleware.IDValidator("id"), orderHandler.Dispatch)
		protected.POST("/orders/:id/receive", middleware.IDValidator("id"), orderHandler.Receive)
		protected.POST("/orders/:id/claim", middleware.IDValidator("id"), orderHandler.ClaimFunds)
		protected.POST("/orders/:id/cancel", middleware.IDValidator("id"), orderHandler.Cancel)
		protected.POST("/orders/:id/rating", middleware.IDValidator("id"), ratingHandler.RateOrder)
		protected.POST("/orders/:id/dispute", middleware.IDValidator("id"), disputeHandler.DisputeOrder)

		// Диспуты.
		protected.GET("/disputes/my", disputeHandler.ListMyDisputes)
		protected.GET("/disputes/:id", middleware.IDValidator("id"), disputeHandler.GetDispute)

		// Уведомления и переводы.
		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.POST("/notifications/read", notificationHandler.MarkRead)
		protected.GET("/transfers", treasuryHandler.ListMyTransfers)
	}

	// Маршруты персонала площадки.
	staff := api.Group("/")
	staff.Use(middleware.AuthMiddleware(tokenManager), middleware.StaffOnly())
	{
		staff.GET("/disputes/open", disputeHandler.ListOpenDisputes)
		staff.POST("/disputes/:id/resolve", middleware.IDValidator("id"), disputeHandler.Resolve)
	}

	return r
}
