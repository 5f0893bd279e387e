package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/studio-bookings/internal/adapters/crdb"
	"github.com/robertarktes/studio-bookings/internal/adapters/rabbit"
	"github.com/robertarktes/studio-bookings/internal/config"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.CRDBDSN == "" || cfg.RabbitURL == "" {
		log.Fatalf("CRDB_DSN and RABBIT_URL are required")
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "studio-outbox-publisher")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool, logger)
	if err := repo.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to migrate crdb: %v", err)
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer rabbitPub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outbox.NewPublisher(repo, rabbitPub, logger).Run(ctx, cfg.OutboxPollInterval)
	logger.Info("Shutdown outbox publisher")
}
