package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/dcastellanos/marketbay-backend/api/routes"
	"github.com/dcastellanos/marketbay-backend/internal/accounts"
	"github.com/dcastellanos/marketbay-backend/internal/checkout"
	"github.com/dcastellanos/marketbay-backend/internal/feedback"
	"github.com/dcastellanos/marketbay-backend/internal/inventory"
	"github.com/dcastellanos/marketbay-backend/internal/items"
	"github.com/dcastellanos/marketbay-backend/internal/payments"
	"github.com/dcastellanos/marketbay-backend/internal/purchases"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/config"
	"github.com/dcastellanos/marketbay-backend/pkg/db"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
	"github.com/dcastellanos/marketbay-backend/pkg/metrics"
	"github.com/dcastellanos/marketbay-backend/pkg/migrate"
	"github.com/dcastellanos/marketbay-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Append(dbClient.Close(), redisClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	sessionRepo := session.NewRepository(dbClient)
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	itemsRepo := items.NewRepository(dbClient.DB())
	purchasesRepo := purchases.NewRepository(dbClient.DB())
	accountsRepo := accounts.NewRepository(dbClient)

	sessionsSvc, err := session.NewService(sessionRepo, redisClient, cfg.Session, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	accountsSvc, err := accounts.NewService(accountsRepo, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	itemsSvc, err := items.NewService(itemsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create items service", err)
		os.Exit(1)
	}

	purchasesSvc, err := purchases.NewService(purchasesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchases service", err)
		os.Exit(1)
	}

	feedbackSvc, err := feedback.NewService(inventoryRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create feedback service", err)
		os.Exit(1)
	}

	gateway, err := payments.NewClient(cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	coordinator, err := checkout.NewCoordinator(
		cfg.Checkout,
		redisClient,
		sessionRepo,
		inventoryRepo,
		purchasesSvc,
		gateway,
		metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout coordinator", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Sessions:  sessionsSvc,
			Accounts:  accountsSvc,
			Items:     itemsSvc,
			Feedback:  feedbackSvc,
			Purchases: purchasesSvc,
			Checkout:  coordinator,
		}),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
