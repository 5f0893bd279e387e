package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/studio-bookings/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/studio-bookings/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/studio-bookings/internal/adapters/redis"
	"github.com/robertarktes/studio-bookings/internal/auth"
	"github.com/robertarktes/studio-bookings/internal/booking"
	"github.com/robertarktes/studio-bookings/internal/catalog"
	"github.com/robertarktes/studio-bookings/internal/config"
	httphandler "github.com/robertarktes/studio-bookings/internal/http"
	"github.com/robertarktes/studio-bookings/internal/idempotency"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/rateLimit"
	"github.com/robertarktes/studio-bookings/internal/subscription"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "studio-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongoadapter.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDatabase)
	if err := mongoadapter.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("failed to create mongo indexes: %v", err)
	}

	bookingsRepo := mongoadapter.NewBookingRepository(mongoDB, logger)
	catalogRepo := mongoadapter.NewCatalogRepository(mongoDB, logger)
	usersRepo := mongoadapter.NewUserRepository(mongoDB, logger)
	subsRepo := mongoadapter.NewSubscriptionRepository(mongoDB)
	notifications := mongoadapter.NewNotificationRepository(mongoDB)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache, logger)

	checks := []httphandler.ReadinessCheck{
		{Name: "mongo", Check: func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) }},
		{Name: "redis", Check: redisCache.Ping},
	}

	deps := booking.Deps{
		Bookings: bookingsRepo,
		Catalog:  catalogRepo,
		Users:    usersRepo,
		Notifier: notifications,
		Audit:    audit,
		Locker:   redisCache,
	}
	var events subscription.EventRecorder
	if cfg.CRDBDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pool.Close()
		crdbRepo := crdb.NewRepository(pool, logger)
		if err := crdbRepo.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate crdb: %v", err)
		}
		deps.Events = crdbRepo
		events = crdbRepo
		if cfg.ReservationMode == config.ReservationModeLedger {
			deps.Ledger = crdbRepo
		}
		checks = append(checks, httphandler.ReadinessCheck{Name: "crdb", Check: crdbRepo.Ping})
	} else if cfg.ReservationMode == config.ReservationModeLedger {
		log.Fatalf("RESERVATION_MODE=ledger requires CRDB_DSN")
	} else {
		logger.Warn("CRDB_DSN not set: domain events are not recorded")
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	handlers := httphandler.NewHandlers(httphandler.Services{
		Auth:          auth.NewService(usersRepo, issuer, cfg.BcryptCost),
		Bookings:      booking.NewService(cfg.Pricing, deps, logger),
		Catalog:       catalog.NewService(catalogRepo),
		Subscriptions: subscription.NewService(catalogRepo, subsRepo, notifications, events, logger),
		Notifications: notifications,
		Audit:         audit,
		Checks:        checks,
	}, logger)

	r := httphandler.SetupRouter(handlers, httphandler.Options{
		Logger:      logger,
		RateLimiter: rl,
		UserRate:    cfg.UserRateLimit,
		IPRate:      cfg.IPRateLimit,
		RateWindow:  cfg.RateLimitWindow,
		Idempotency: idemp,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(map[string]interface{}{
			"addr":             cfg.HTTPAddr,
			"reservation_mode": cfg.ReservationMode,
		}).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
		os.Exit(1)
	}
	logger.Info("Server exiting")
}
