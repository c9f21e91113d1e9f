package cmd

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-subscriptions/app/events"
	"github.com/vibast-solutions/ms-go-subscriptions/app/factory"
	"github.com/vibast-solutions/ms-go-subscriptions/app/lock"
	"github.com/vibast-solutions/ms-go-subscriptions/app/metrics"
	"github.com/vibast-solutions/ms-go-subscriptions/app/promotion"
	"github.com/vibast-solutions/ms-go-subscriptions/app/provider"
	"github.com/vibast-solutions/ms-go-subscriptions/app/repository"
	"github.com/vibast-solutions/ms-go-subscriptions/app/service"
	"github.com/vibast-solutions/ms-go-subscriptions/app/strategy"
	"github.com/vibast-solutions/ms-go-subscriptions/config"

	_ "github.com/go-sql-driver/mysql"
)

type services struct {
	subscriptions *service.SubscriptionService
	schedules     *service.ScheduleService
	webhooks      *service.WebhookService
	registry      *prometheus.Registry
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	registry := prometheus.NewRegistry()
	observer, err := metrics.NewPrometheusObserver("subscriptions", registry)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to register metrics")
	}

	locker, closeLocker := mustCreateLocker(cfg)
	publisher := mustCreatePublisher(cfg)

	scheduleRepo := repository.NewScheduleRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	strategies := strategy.NewRegistry(
		cfg.Pricing.DefaultStrategy,
		strategy.NewDefaultStrategy(),
		strategy.NewScheduleStrategy(scheduleRepo, cfg.Pricing.ForbidMixedDownpayment),
	)

	stripeProvider := provider.NewStripeProvider(provider.StripeConfig{
		WebhookSecret:             cfg.Stripe.WebhookSecret,
		SignatureToleranceSeconds: cfg.Stripe.SignatureToleranceSeconds,
	})

	svc := &services{
		subscriptions: service.NewSubscriptionService(
			strategies,
			promotion.NewDefaultRegistry(),
			repository.NewOrderLineSubscriptionRepository(db),
			subscriptionRepo,
			locker,
			cfg.Pricing,
			observer,
			factory.NewModuleLogger("subscriptions-service"),
		),
		schedules: service.NewScheduleService(scheduleRepo),
		webhooks: service.NewWebhookService(
			provider.NewRegistry(stripeProvider),
			subscriptionRepo,
			repository.NewProcessedEventRepository(db),
			repository.NewWebhookCallbackRepository(db),
			repository.NewTransitionStore(db),
			locker,
			publisher,
			observer,
			cfg.Webhooks,
			factory.NewModuleLogger("webhooks-service"),
		),
		registry: registry,
	}

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close lifecycle publisher")
		}
		closeLocker()
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, svc, cleanup
}

// mustCreateLocker shares order locks through Redis when configured; otherwise locks are
// only held within this process.
func mustCreateLocker(cfg *config.Config) (lock.Locker, func()) {
	if cfg.Redis.URL == "" {
		logrus.Warn("REDIS_URL is not set, order locks are process-local")
		return lock.NewKeyedLocker(cfg.Webhooks.LockTimeout), func() {}
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to parse REDIS_URL")
	}
	opts.DialTimeout = cfg.Redis.ConnectTimeout

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logrus.WithError(err).Fatal("Failed to ping Redis")
	}

	locker := lock.NewRedisLocker(client, cfg.Webhooks.LockTimeout, cfg.Webhooks.LockTTL, factory.NewModuleLogger("order-lock"))
	return locker, func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis client")
		}
	}
}

func mustCreatePublisher(cfg *config.Config) events.Publisher {
	logger := factory.NewModuleLogger("lifecycle-publisher")
	if cfg.AMQP.URL == "" {
		return events.NewNoopPublisher(logger)
	}

	publisher, err := events.NewRabbitMQPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect lifecycle publisher")
	}
	return publisher
}
