package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/studio-bookings/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/studio-bookings/internal/adapters/mongo"
	"github.com/robertarktes/studio-bookings/internal/config"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/subscription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "studio-subscription-expiry")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongoadapter.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.MongoDatabase)

	var events subscription.EventRecorder
	if cfg.CRDBDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pool.Close()
		events = crdb.NewRepository(pool, logger)
	}

	svc := subscription.NewService(
		mongoadapter.NewCatalogRepository(db, logger),
		mongoadapter.NewSubscriptionRepository(db),
		mongoadapter.NewNotificationRepository(db),
		events,
		logger,
	)

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.ExpirySweepInterval),
		gocron.NewTask(func() { sweep(ctx, svc, logger) }),
		gocron.WithName("subscription-expiry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Fatalf("failed to schedule expiry sweep: %v", err)
	}

	scheduler.Start()
	logger.WithField("interval", cfg.ExpirySweepInterval.String()).Info("subscription expiry sweeper started")
	<-ctx.Done()

	if err := scheduler.Shutdown(); err != nil {
		logger.WithError(err).Error("scheduler shutdown failed")
	}
	logger.Info("Shutdown subscription expiry sweeper")
}

func sweep(ctx context.Context, svc *subscription.Service, logger observability.Logger) {
	n, err := svc.ExpireDue(ctx)
	if err != nil {
		logger.WithError(err).Error("subscription expiry sweep failed")
		return
	}
	if n > 0 {
		logger.WithField("expired", n).Info("subscriptions expired")
	}
}
