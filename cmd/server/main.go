package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rustaceolibre/marketplace-backend/internal/clock"
	"github.com/rustaceolibre/marketplace-backend/internal/config"
	"github.com/rustaceolibre/marketplace-backend/internal/db"
	"github.com/rustaceolibre/marketplace-backend/internal/fee"
	httpHandlers "github.com/rustaceolibre/marketplace-backend/internal/http/handlers"
	httpRouter "github.com/rustaceolibre/marketplace-backend/internal/http/router"
	"github.com/rustaceolibre/marketplace-backend/internal/logger"
	"github.com/rustaceolibre/marketplace-backend/internal/repository"
	"github.com/rustaceolibre/marketplace-backend/internal/service"
	"github.com/rustaceolibre/marketplace-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.OwnerID)
	feeCalculator := fee.NewCalculator(cfg.ServiceFeeRate)
	systemClock := clock.New()

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	catalogRepo := repository.NewCatalogRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	treasuryRepo := repository.NewTreasuryRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Фоновая чистка протухших refresh-сессий.
	go sessionJanitor(ctx, userRepo, systemClock)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager, systemClock)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	treasuryService := service.NewTreasuryService(treasuryRepo)
	catalogService := service.NewCatalogService(catalogRepo, userRepo)
	orderService := service.NewOrderService(
		orderRepo,
		catalogRepo,
		userRepo,
		disputeRepo,
		treasuryService,
		notificationService,
		feeCalculator,
		systemClock,
		service.OrderPolicy{
			SellerClaimWindow: cfg.SellerClaimWindow,
			BuyerCancelWindow: cfg.BuyerCancelWindow,
			PlatformOwnerID:   cfg.OwnerID,
		},
	)
	disputeService := service.NewDisputeService(
		disputeRepo,
		orderRepo,
		treasuryService,
		notificationService,
		feeCalculator,
		systemClock,
		cfg.OwnerID,
	)
	ratingService := service.NewRatingService(orderRepo, userRepo)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	catalogHandler := httpHandlers.NewCatalogHandler(catalogService)
	orderHandler := httpHandlers.NewOrderHandler(orderService)
	ratingHandler := httpHandlers.NewRatingHandler(ratingService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService, userRepo)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	treasuryHandler := httpHandlers.NewTreasuryHandler(treasuryService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		catalogHandler,
		orderHandler,
		ratingHandler,
		disputeHandler,
		notificationHandler,
		treasuryHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// sessionJanitor периодически удаляет протухшие refresh-сессии.
func sessionJanitor(ctx context.Context, users *repository.UserRepository, clk clock.Clock) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := users.DeleteExpiredSessions(ctx, clk.Now())
			if err != nil {
				logger.Log.WithError(err).Warn("main: чистка сессий не удалась")
				continue
			}
			if removed > 0 {
				logger.Log.WithField("removed", removed).Debug("main: удалены протухшие сессии")
			}
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
