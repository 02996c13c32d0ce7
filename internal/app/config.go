package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// StorageDriver выбирает реализацию хранилища каталога и заказов.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver        StorageDriver
	PostgresDSN          string
	PostgresAutoMigrate  bool
	PostgresMaxOpenConns int
	PostgresMaxIdleConns int

	// RedisAddr пуст — корзина живёт в памяти процесса.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// KafkaBrokers пуст — outbox-воркер не запускается, события копятся
	// в таблице до появления брокера.
	KafkaBrokers   string
	OutboxTopic    string
	OutboxDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	CheckoutTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию: in-memory хранилище
// и стандартные адреса.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		PostgresMaxOpenConns:        25,
		PostgresMaxIdleConns:        5,
		OutboxTopic:                 kafka.TopicOrderEvents,
		OutboxDLQTopic:              kafka.TopicDeadLetterQueue,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            200 * time.Millisecond,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		CheckoutTimeout:             10 * time.Second,
	}
}

// FromEnv строит конфигурацию из переменных окружения STOREFRONT_*,
// подхватывая .env файл, если он есть рядом с бинарником.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	cfg.HTTPAddr = envString("STOREFRONT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("STOREFRONT_METRICS_ADDR", cfg.MetricsAddr)

	cfg.StorageDriver = StorageDriver(envString("STOREFRONT_STORAGE_DRIVER", string(cfg.StorageDriver)))
	cfg.PostgresDSN = envString("STOREFRONT_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = envBool("STOREFRONT_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)
	cfg.PostgresMaxOpenConns = envInt("STOREFRONT_POSTGRES_MAX_OPEN_CONNS", cfg.PostgresMaxOpenConns)
	cfg.PostgresMaxIdleConns = envInt("STOREFRONT_POSTGRES_MAX_IDLE_CONNS", cfg.PostgresMaxIdleConns)

	cfg.RedisAddr = envString("STOREFRONT_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envString("STOREFRONT_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("STOREFRONT_REDIS_DB", cfg.RedisDB)

	cfg.KafkaBrokers = envString("STOREFRONT_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.OutboxTopic = envString("STOREFRONT_OUTBOX_TOPIC", cfg.OutboxTopic)
	cfg.OutboxDLQTopic = envString("STOREFRONT_OUTBOX_DLQ_TOPIC", cfg.OutboxDLQTopic)

	cfg.OutboxPollInterval = envDuration("STOREFRONT_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("STOREFRONT_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("STOREFRONT_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = envDuration("STOREFRONT_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)

	cfg.IdempotencyCleanupInterval = envDuration("STOREFRONT_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)
	cfg.IdempotencyCleanupBatchSize = envInt("STOREFRONT_IDEMPOTENCY_CLEANUP_BATCH_SIZE", cfg.IdempotencyCleanupBatchSize)

	cfg.CheckoutTimeout = envDuration("STOREFRONT_CHECKOUT_TIMEOUT", cfg.CheckoutTimeout)

	return cfg
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
