package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-labs/storefront/internal/auth"
	"github.com/storefront-labs/storefront/internal/config"
	delivery "github.com/storefront-labs/storefront/internal/delivery/http"
	"github.com/storefront-labs/storefront/internal/metrics"
	"github.com/storefront-labs/storefront/internal/notification"
	"github.com/storefront-labs/storefront/internal/notification/smtp"
	"github.com/storefront-labs/storefront/internal/repository/postgres"
	"github.com/storefront-labs/storefront/internal/repository/redisstore"
	"github.com/storefront-labs/storefront/internal/service"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
	cfg := config.Load()

	// --- Database ---
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.SeedCatalog {
		if err := postgres.SeedProducts(ctx, db); err != nil {
			slog.Error("Failed to seed products", "err", err)
			os.Exit(1)
		}
	}

	// --- Redis (guest session carts) ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to ping redis", "err", err)
		os.Exit(1)
	}

	// --- Notifier ---
	var notifier notification.Notifier = notification.Noop{}
	if cfg.SMTPHost != "" {
		notifier = smtp.NewMailer(smtp.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		})
		slog.Info("SMTP notifier enabled", "host", cfg.SMTPHost)
	} else {
		slog.Info("SMTP not configured, notifications disabled")
	}

	// --- Repositories ---
	userRepo := postgres.NewUserRepository(db)
	productRepo := postgres.NewProductRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	userCarts := postgres.NewCartRepository(db)
	guestCarts := redisstore.NewCartStore(redisClient, cfg.GuestCartTTL)
	analyticsRepo := postgres.NewAnalyticsRepository(db)

	// --- Services ---
	m := metrics.New()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	userSvc := service.NewUserService(userRepo, tokens)
	catalogSvc := service.NewCatalogService(productRepo)
	cartSvc := service.NewCartService(userCarts, guestCarts, productRepo)
	orderSvc := service.NewOrderService(orderRepo, productRepo, userRepo, notifier, m)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cfg.LowStockThreshold)

	handler := delivery.NewHandler(userSvc, catalogSvc, cartSvc, orderSvc, analyticsSvc, tokens, m)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")
	httpServer.Shutdown(context.Background())
}
