package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorhub/payouts/config"
	"github.com/mentorhub/payouts/internal/bootstrap"
	"github.com/mentorhub/payouts/internal/cache"
	"github.com/mentorhub/payouts/internal/kafka"
	"github.com/mentorhub/payouts/internal/repository"
	"github.com/mentorhub/payouts/internal/service/payout"
	"github.com/mentorhub/payouts/internal/stripe"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	stripeClient := stripe.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.Currency)

	bookingRepo := repository.NewBookingRepository(pool)
	mentorRepo := repository.NewMentorRepository(pool)
	payoutService := payout.NewPayoutService(
		bookingRepo,
		mentorRepo,
		stripeClient,
		redisCache,
		producer,
		cfg.Kafka.PayoutEventsTopic,
		time.Duration(cfg.Payout.HoldDays)*24*time.Hour,
		cfg.Payout.TrustThreshold,
		payout.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		payout.WithLockTTL(time.Duration(cfg.Payout.LockTTLSeconds)*time.Second),
	)

	if err := bootstrap.Run(ctx, cfg, payoutService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
