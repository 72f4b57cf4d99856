package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cars2u/pos/internal/handlers"
	"github.com/cars2u/pos/internal/platform/config"
	"github.com/cars2u/pos/internal/platform/observability"
	psqlite "github.com/cars2u/pos/internal/platform/sqlite"
	sqliteRepo "github.com/cars2u/pos/internal/repositories/sqlite"
	"github.com/cars2u/pos/internal/services"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("pos")

	provider := psqlite.NewProvider(cfg.Database)
	if _, err := provider.DB(ctx); err != nil {
		logger.Fatal("failed to open database", zap.Error(err), zap.String("path", cfg.Database.Path))
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("database close error", zap.Error(err))
		}
	}()

	catalogRepo, err := sqliteRepo.NewCatalogRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise catalog repository", zap.Error(err))
	}
	discountRepo, err := sqliteRepo.NewDiscountRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise discount repository", zap.Error(err))
	}
	orderRepo, err := sqliteRepo.NewOrderRepository(provider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}

	discountService, err := services.NewDiscountService(services.DiscountServiceDeps{
		Discounts: discountRepo,
		Clock:     time.Now,
		Logger:    observability.EventLogger(logger, "discounts"),
	})
	if err != nil {
		logger.Fatal("failed to initialise discount service", zap.Error(err))
	}

	pricingEngine, err := services.NewCartPricingEngine(services.CartPricingEngineDeps{
		Logger: observability.EventLogger(logger, "pricing"),
	})
	if err != nil {
		logger.Fatal("failed to initialise pricing engine", zap.Error(err))
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Catalog:   catalogRepo,
		Discounts: discountService,
		Pricing:   pricingEngine,
		Clock:     time.Now,
		Logger:    observability.EventLogger(logger, "cart"),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	reportService, err := services.NewReportService(services.ReportServiceDeps{
		Orders:    orderRepo,
		Catalog:   catalogRepo,
		OutputDir: cfg.Reports.OutputDir,
		Clock:     time.Now,
		Logger:    observability.EventLogger(logger, "reports"),
	})
	if err != nil {
		logger.Fatal("failed to initialise report service", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Cart:     cartService,
		Orders:   orderRepo,
		Catalog:  catalogRepo,
		Tx:       provider,
		Clock:    time.Now,
		Logger:   observability.EventLogger(logger, "checkout"),
		Receipts: reportService,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	inventoryService, err := services.NewInventoryService(services.InventoryServiceDeps{
		Catalog: catalogRepo,
		Clock:   time.Now,
		Logger:  observability.EventLogger(logger, "inventory"),
	})
	if err != nil {
		logger.Fatal("failed to initialise inventory service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog:  catalogRepo,
		PageSize: cfg.Catalog.PageSize,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	health := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("sqlite", func(ctx context.Context) error {
			db, err := provider.DB(ctx)
			if err != nil {
				return err
			}
			return db.PingContext(ctx)
		}),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(health),
		handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(catalogService).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(cartService).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(checkoutService).Routes),
		handlers.WithDiscountRoutes(handlers.NewDiscountHandlers(discountService, cartService).Routes),
		handlers.WithInventoryRoutes(handlers.NewInventoryHandlers(inventoryService).Routes),
		handlers.WithReportRoutes(handlers.NewReportHandlers(reportService).Routes),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("cars2u pos listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
