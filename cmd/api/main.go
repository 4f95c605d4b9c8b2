package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tombamento-backend/api/routes"
	"github.com/angelmondragon/tombamento-backend/internal/inventory"
	"github.com/angelmondragon/tombamento-backend/internal/ledger"
	"github.com/angelmondragon/tombamento-backend/internal/patterns"
	"github.com/angelmondragon/tombamento-backend/internal/reconciliation"
	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/db"
	"github.com/angelmondragon/tombamento-backend/pkg/instance"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
	"github.com/angelmondragon/tombamento-backend/pkg/metrics"
	"github.com/angelmondragon/tombamento-backend/pkg/migrate"
	"github.com/angelmondragon/tombamento-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	matchingMetrics := metrics.NewMatchingMetrics(prometheus.DefaultRegisterer)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	refresher, storeCloser, err := ledger.BuildRefresher(context.Background(), cfg, ledgerRepo, matchingMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger refresher", err)
		os.Exit(1)
	}
	defer func() {
		if err := storeCloser.Close(); err != nil {
			logg.Error(context.Background(), "error closing ledger object store", err)
		}
	}()

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	ledgerService, err := ledger.NewService(ledgerRepo, refresher)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	patternsService, err := patterns.NewService(patterns.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create patterns service", err)
		os.Exit(1)
	}
	pendingStore, err := reconciliation.NewRedisPendingStore(redisClient, cfg.Matching.PendingTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create pending store", err)
		os.Exit(1)
	}
	// Sessions live in this process; run one replica or pin session ids.
	reconciliationService, err := reconciliation.NewService(
		cfg.Matching,
		inventoryService,
		ledgerService,
		patternsService,
		pendingStore,
		matchingMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		inventoryService,
		ledgerService,
		patternsService,
		reconciliationService,
	))

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
