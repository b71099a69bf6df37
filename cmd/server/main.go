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

	"shop-console/internal/config"
	api "shop-console/internal/controllers/http"
	"shop-console/internal/infra/alert"
	"shop-console/internal/infra/kafka"
	"shop-console/internal/infra/line"
	mmysql "shop-console/internal/infra/mysql"
	"shop-console/internal/infra/postgres"
	"shop-console/internal/infra/rabbitmq"
	"shop-console/internal/infra/redisstore"
	"shop-console/internal/repository/gormrepo"
	"shop-console/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Printf("shop console: %v", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("db: connect: %w", err)
	}
	orders := gormrepo.NewOrderRepository(db)
	shopStatus := gormrepo.NewShopStatusRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// dedup, summary cache and the alert channel all degrade gracefully
		log.Printf("Redis unavailable at %s: %v", cfg.RedisAddr, err)
	}

	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	notifier := line.NewNotifier(cfg.LineAPIURL, cfg.NotifyTimeout, line.WithMaxRetries(cfg.NotifyMaxRetries))
	if !notifier.Configured() {
		log.Printf("LINE_API_URL not set; customer notifications are disabled")
	}

	rule := services.AlertOnNewPending
	if cfg.AlertRule == config.AlertRulePendingIncrease {
		rule = services.AlertOnPendingIncrease
	}
	reconciler := services.NewReconciler(orders, newSignal(cfg, redisClient), publisher, cfg.PollInterval, rule)

	lifecycleOpts := []services.LifecycleOption{
		services.WithNotifyGuard(redisstore.NewNotifyGuard(redisClient, cfg.NotifyDedupTTL)),
	}
	if !cfg.StrictTransitions {
		lifecycleOpts = append(lifecycleOpts, services.WithOverwrite())
	}
	lifecycle := services.NewLifecycleService(orders, reconciler, notifier, publisher, lifecycleOpts...)
	shop := services.NewShopService(shopStatus, orders, publisher, reconciler)
	session := services.NewSession(ctx, reconciler)
	defer session.Stop()

	handler := api.NewHandler(session, reconciler, lifecycle, shop, redisstore.NewCache(redisClient, 2*time.Second))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterRoutes(r)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting shop console on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server run: %w", err)
	}
	log.Printf("Shop console stopped")
	return nil
}

func openStore(cfg config.Config) (*gorm.DB, error) {
	if cfg.StoreDriver == config.DriverPostgres {
		return postgres.NewPostgres(cfg.PostgresDSN)
	}
	return mmysql.NewMySQL(cfg.MySQL)
}

func newPublisher(cfg config.Config) (rabbitmq.PublisherInterface, func()) {
	switch cfg.EventBroker {
	case config.BrokerRabbitMQ:
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, "shop.exchange")
		if err != nil {
			log.Printf("RabbitMQ unavailable, events will be dropped: %v", err)
			return rabbitmq.Discard, func() {}
		}
		return p, p.Close
	case config.BrokerKafka:
		p := kafka.NewPublisher(kafka.NewWriter(cfg.KafkaBroker, cfg.KafkaTopic))
		return p, func() {
			if err := p.Close(); err != nil {
				log.Printf("Failed to close kafka writer: %v", err)
			}
		}
	default:
		return rabbitmq.Discard, func() {}
	}
}

func newSignal(cfg config.Config, rdb *redis.Client) alert.Signal {
	signals := alert.Multi{alert.NewRedis(rdb, alert.DefaultChannel)}
	switch cfg.AlertSound {
	case config.AlertSoundBell:
		signals = append(signals, alert.NewBell(os.Stdout))
	case config.AlertSoundTone:
		signals = append(signals, alert.NewTone(cfg.AlertPlayer))
	}
	return signals
}
