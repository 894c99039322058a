package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tapntake/api/internal/cart"
	"github.com/tapntake/api/internal/catalog"
	"github.com/tapntake/api/internal/config"
	"github.com/tapntake/api/internal/database"
	"github.com/tapntake/api/internal/feed"
	"github.com/tapntake/api/internal/metrics"
	"github.com/tapntake/api/internal/payment"
	"github.com/tapntake/api/internal/router"
	"github.com/tapntake/api/internal/service"
	"github.com/tapntake/api/internal/ws"
)

// Stripe retries a webhook for up to three days.
const webhookDedupeTTL = 72 * time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	log.Println("Database migrations applied")

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	queries := database.New(pool)

	m := metrics.New()
	cat := catalog.Default()

	var (
		cartStore cart.Store
		dedupe    payment.Deduper
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		cartStore = cart.NewRedisStore(rdb, cfg.CartTTL)
		dedupe = payment.NewRedisDeduper(rdb, webhookDedupeTTL)
		log.Println("Carts and webhook dedupe stored in Redis")
	} else {
		cartStore = cart.NewMemoryStore()
		dedupe = payment.NewMemoryDeduper(webhookDedupeTTL)
		log.Println("WARNING: REDIS_URL not set, carts are kept in memory")
	}
	carts := cart.NewService(cartStore, cat)

	hub := ws.NewHub(m)
	go hub.Run(ctx)

	var events feed.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher := feed.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, m)
		defer publisher.Close()
		go feed.NewRelay(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, hub).Run(ctx)
		events = publisher
		log.Printf("Order changes fan out through Kafka topic %s", cfg.KafkaTopic)
	} else {
		events = feed.NewLocalPublisher(hub, m)
	}

	stripeGateway := payment.NewStripeGateway(payment.Config{
		SecretKey:     cfg.StripeKey,
		WebhookSecret: cfg.StripeWebhook,
		PublicBaseURL: cfg.PublicBaseURL,
		Currency:      cfg.Currency,
	}, nil)
	if cfg.StripeKey == "" {
		log.Println("WARNING: STRIPE_SECRET_KEY not set, online checkout is disabled")
	}

	orders := service.NewOrderService(queries, carts, stripeGateway, events, m)

	r := router.New(cfg, router.Deps{
		Admins:   queries,
		Orders:   orders,
		Carts:    carts,
		Catalog:  cat,
		Webhooks: stripeGateway,
		Dedupe:   dedupe,
		Hub:      hub,
		Metrics:  m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
