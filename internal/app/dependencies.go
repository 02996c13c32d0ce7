package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/storefront/internal/storage/redis"
)

// runtimeDependencies содержит хранилища, собранные под выбранный драйвер.
type runtimeDependencies struct {
	products        domain.ProductRepository
	orders          domain.OrderLedger
	carts           domain.CartStore
	journal         domain.StockJournal
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository

	storageChecker healthcheck.Checker
	cartChecker    healthcheck.Checker

	closeFns []func() error
}

func (d *runtimeDependencies) close() error {
	var firstErr error
	for i := len(d.closeFns) - 1; i >= 0; i-- {
		if err := d.closeFns[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// initRuntimeDependencies собирает хранилища по конфигурации. Корзина
// отдельно: при заданном RedisAddr она живёт в redis независимо от
// основного драйвера.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		deps.products = memory.NewProductRepository()
		deps.orders = memory.NewOrderLedger()
		deps.journal = memory.NewStockJournal()
		deps.outboxRepo = memory.NewOutboxRepository()
		deps.idempotencyRepo = memory.NewIdempotencyRepository()
		logger.Info("using in-memory storage")

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage driver requires a DSN")
		}

		store, err := postgres.OpenWithPool(ctx, cfg.PostgresDSN, postgres.PoolConfig{
			MaxOpenConns: cfg.PostgresMaxOpenConns,
			MaxIdleConns: cfg.PostgresMaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		deps.closeFns = append(deps.closeFns, store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = deps.close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}

		deps.products = postgres.NewProductRepository(store)
		deps.orders = postgres.NewOrderLedger(store)
		deps.journal = postgres.NewStockJournal(store)
		deps.outboxRepo = postgres.NewOutboxRepository(store)
		deps.idempotencyRepo = postgres.NewIdempotencyRepository(store)
		deps.storageChecker = healthcheck.NewSimpleChecker("postgres", store.Ping)
		logger.Info("using postgres storage")

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}

	if cfg.RedisAddr != "" {
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = deps.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.closeFns = append(deps.closeFns, client.Close)

		cartStore := redisstore.NewCartStore(client)
		deps.carts = cartStore
		deps.cartChecker = healthcheck.NewSimpleChecker("redis", cartStore.Ping)
		logger.WithField("addr", cfg.RedisAddr).Info("using redis cart store")
	} else {
		deps.carts = memory.NewCartStore()
	}

	return deps, nil
}
