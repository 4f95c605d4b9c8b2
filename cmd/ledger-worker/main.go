package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tombamento-backend/internal/ledger"
	"github.com/angelmondragon/tombamento-backend/internal/ledger/consumer"
	"github.com/angelmondragon/tombamento-backend/pkg/config"
	"github.com/angelmondragon/tombamento-backend/pkg/db"
	"github.com/angelmondragon/tombamento-backend/pkg/idempotency"
	"github.com/angelmondragon/tombamento-backend/pkg/instance"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
	"github.com/angelmondragon/tombamento-backend/pkg/metrics"
	"github.com/angelmondragon/tombamento-backend/pkg/migrate"
	"github.com/angelmondragon/tombamento-backend/pkg/pubsub"
	"github.com/angelmondragon/tombamento-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "ledger-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "ledger-worker"

	logg = logger.New(logger.Options{
		ServiceName: "ledger-worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !strings.EqualFold(strings.TrimSpace(cfg.Ledger.Source), config.LedgerSourceGCS) {
		logg.Error(context.Background(), "ledger worker requires the gcs snapshot source", errors.New("unsupported ledger source "+cfg.Ledger.Source))
		os.Exit(1)
	}

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

	tracker, err := idempotency.NewManager(redisClient, cfg.Idempotency.EventTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	refresher, storeCloser, err := ledger.BuildRefresher(
		context.Background(),
		cfg,
		ledger.NewRepository(dbClient.DB()),
		metrics.NewMatchingMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger refresher", err)
		os.Exit(1)
	}
	defer func() {
		if err := storeCloser.Close(); err != nil {
			logg.Error(context.Background(), "error closing ledger object store", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	snapshotConsumer, err := consumer.NewConsumer(
		refresher,
		pubsubClient.LedgerSubscription(),
		consumer.Target{Bucket: cfg.Ledger.Bucket, Object: cfg.Ledger.Object},
		tracker,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"instance":     instance.GetID(),
		"subscription": cfg.PubSub.LedgerSubscription,
		"bucket":       cfg.Ledger.Bucket,
		"object":       cfg.Ledger.Object,
	})
	logg.Info(ctx, "starting ledger worker")

	if err := snapshotConsumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "ledger worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "ledger worker shutting down gracefully")
}
