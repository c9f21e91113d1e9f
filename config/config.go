package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	AMQP              AMQPConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Stripe            StripeConfig
	Pricing           PricingConfig
	Webhooks          WebhooksConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; with an empty URL the per-order lock is kept in process.
type RedisConfig struct {
	URL            string
	ConnectTimeout time.Duration
}

// AMQPConfig is optional; with an empty URL lifecycle messages are only logged.
type AMQPConfig struct {
	URL      string
	Exchange string
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type StripeConfig struct {
	WebhookSecret             string
	SignatureToleranceSeconds int64
}

type PricingConfig struct {
	DefaultStrategy         string
	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration
	BreakerInterval         time.Duration
	ForbidMixedDownpayment  bool
}

type WebhooksConfig struct {
	LockTimeout     time.Duration
	LockTTL         time.Duration
	LedgerRetention time.Duration
	RetryInterval   time.Duration
	MaxAttempts     int32
	JobBatchSize    int32
}

type JobsConfig struct {
	RetryInterval time.Duration
	PruneInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "subscriptions-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			ConnectTimeout: getSecondsEnv("REDIS_CONNECT_TIMEOUT_SECONDS", 5*time.Second),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "subscriptions.lifecycle"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Stripe: StripeConfig{
			WebhookSecret:             getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SignatureToleranceSeconds: int64(getIntEnv("STRIPE_SIGNATURE_TOLERANCE_SECONDS", 300)),
		},
		Pricing: PricingConfig{
			DefaultStrategy:         getEnv("PRICING_DEFAULT_STRATEGY", "default"),
			BreakerFailureThreshold: uint32(getIntEnv("PRICING_BREAKER_FAILURE_THRESHOLD", 5)),
			BreakerOpenTimeout:      getSecondsEnv("PRICING_BREAKER_OPEN_TIMEOUT_SECONDS", 30*time.Second),
			BreakerInterval:         getSecondsEnv("PRICING_BREAKER_INTERVAL_SECONDS", 60*time.Second),
			ForbidMixedDownpayment:  getBoolEnv("PRICING_FORBID_MIXED_DOWNPAYMENT", false),
		},
		Webhooks: WebhooksConfig{
			LockTimeout:     getMillisecondsEnv("WEBHOOK_LOCK_TIMEOUT_MS", 5*time.Second),
			LockTTL:         getSecondsEnv("WEBHOOK_LOCK_TTL_SECONDS", 30*time.Second),
			LedgerRetention: getHoursEnv("WEBHOOK_LEDGER_RETENTION_HOURS", 30*24*time.Hour),
			RetryInterval:   getSecondsEnv("WEBHOOK_RETRY_INTERVAL_SECONDS", 30*time.Second),
			MaxAttempts:     int32(getIntEnv("WEBHOOK_MAX_ATTEMPTS", 10)),
			JobBatchSize:    int32(getIntEnv("WEBHOOK_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			RetryInterval: getMinutesEnv("WEBHOOK_RETRY_JOB_INTERVAL_MINUTES", time.Minute),
			PruneInterval: getMinutesEnv("LEDGER_PRUNE_JOB_INTERVAL_MINUTES", 60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getHoursEnv(key string, defaultValue time.Duration) time.Duration {
	return getDurationEnv(key, time.Hour, defaultValue)
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	return getDurationEnv(key, time.Minute, defaultValue)
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	return getDurationEnv(key, time.Second, defaultValue)
}

func getMillisecondsEnv(key string, defaultValue time.Duration) time.Duration {
	return getDurationEnv(key, time.Millisecond, defaultValue)
}

func getDurationEnv(key string, unit time.Duration, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * unit
		}
	}
	return defaultValue
}
