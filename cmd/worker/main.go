package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mentorhub/payouts/config"
	"github.com/mentorhub/payouts/internal/cache"
	"github.com/mentorhub/payouts/internal/email"
	"github.com/mentorhub/payouts/internal/kafka"
	"github.com/mentorhub/payouts/internal/repository"
	"github.com/mentorhub/payouts/internal/service/payout"
	"github.com/mentorhub/payouts/internal/stripe"
	kafkaGo "github.com/segmentio/kafka-go"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	redisCache := cache.NewRedisCache(cfg.Redis)
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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.PayoutEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.SweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			results, err := payoutService.ProcessHeldPayouts(ctx)
			if err != nil {
				log.Printf("held payout sweep error: %v", err)
				continue
			}
			released, failed := 0, 0
			for _, r := range results {
				if r.Success {
					released++
				} else {
					failed++
				}
			}
			if len(results) > 0 {
				log.Printf("sweep processed %d held payouts (%d released, %d failed)", len(results), released, failed)
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
