package integration

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

// flakyInventory оборачивает реальное хранилище и позволяет ронять
// компенсацию для проверки журнального фолбэка.
type flakyInventory struct {
	domain.InventoryStore
	ReleaseErr   error
	ReleaseCalls int
}

func (f *flakyInventory) Release(ctx context.Context, productID string, qty int32) error {
	f.ReleaseCalls++
	if f.ReleaseErr != nil {
		return f.ReleaseErr
	}
	return f.InventoryStore.Release(ctx, productID, qty)
}

// CheckoutLifecycleTestSuite тестирует полный жизненный цикл чекаута.
type CheckoutLifecycleTestSuite struct {
	suite.Suite
	products     domain.ProductRepository
	ledger       domain.OrderLedger
	carts        domain.CartStore
	journal      domain.StockJournal
	outbox       domain.OutboxRepository
	inventory    *flakyInventory
	orchestrator checkout.Orchestrator
}

func (suite *CheckoutLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	suite.products = memory.NewProductRepository()
	suite.ledger = memory.NewOrderLedger()
	suite.carts = memory.NewCartStore()
	suite.journal = memory.NewStockJournal()
	suite.outbox = memory.NewOutboxRepository()
	suite.inventory = &flakyInventory{InventoryStore: suite.products}

	suite.orchestrator = checkout.NewOrchestratorWithoutMetrics(
		suite.inventory,
		suite.ledger,
		suite.carts,
		suite.journal,
		suite.outbox,
		checkout.Config{
			Timeout: 2 * time.Second,
			Retry: checkout.RetryConfig{
				MaxAttempts:   2,
				InitialDelay:  time.Millisecond,
				MaxDelay:      5 * time.Millisecond,
				BackoffFactor: 2,
			},
		},
		logger,
	)
}

func (suite *CheckoutLifecycleTestSuite) seedProduct(id, name string, priceMinor int64, stock int64) {
	suite.T().Helper()

	err := suite.products.Create(context.Background(), domain.Product{
		ID:                id,
		Name:              name,
		PriceMinor:        priceMinor,
		QuantityAvailable: stock,
	})
	require.NoError(suite.T(), err)
}

func (suite *CheckoutLifecycleTestSuite) TestSuccessfulCheckoutLifecycle() {
	ctx := context.Background()

	// 1. Каталог и корзина покупателя
	suite.seedProduct("laptop-pro", "Laptop Pro", 199900, 5)
	suite.seedProduct("mouse-wireless", "Wireless Mouse", 4999, 10)

	require.NoError(suite.T(), suite.carts.Upsert(ctx, "customer-123", domain.CartLine{ProductID: "laptop-pro", Qty: 1}))
	require.NoError(suite.T(), suite.carts.Upsert(ctx, "customer-123", domain.CartLine{ProductID: "mouse-wireless", Qty: 2}))

	// 2. Чекаут
	order, err := suite.orchestrator.Checkout(ctx, "customer-123", []domain.LineRequest{
		{ProductID: "laptop-pro", Qty: 1},
		{ProductID: "mouse-wireless", Qty: 2},
	})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusPlaced, order.Status)
	require.Equal(suite.T(), int64(209898), order.TotalMinor) // $1999 + 2*$49.99
	require.Len(suite.T(), order.Lines, 2)
	require.Equal(suite.T(), int64(199900), order.Lines[0].PriceMinor)

	// 3. Сток списан атомарно
	laptop, err := suite.products.Get(ctx, "laptop-pro")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(4), laptop.QuantityAvailable)
	require.Equal(suite.T(), int64(1), laptop.QuantitySold)

	mouse, err := suite.products.Get(ctx, "mouse-wireless")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(8), mouse.QuantityAvailable)

	// 4. Снимок заказа в леджере, корзина очищена
	stored, err := suite.ledger.Get(ctx, order.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), "customer-123", stored.UserID)

	lines, err := suite.carts.Lines(ctx, "customer-123")
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), lines)

	// 5. Событие заказа встало в outbox
	pending, err := suite.outbox.PullPending(ctx, 10)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), pending, 1)
	require.Equal(suite.T(), order.ID, pending[0].AggregateID)

	// 6. Оператор подтверждает оплату
	require.NoError(suite.T(), suite.ledger.UpdateStatus(ctx, order.ID, domain.OrderStatusPaid))
	paid, err := suite.ledger.Get(ctx, order.ID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusPaid, paid.Status)
	require.Equal(suite.T(), order.TotalMinor, paid.TotalMinor) // Сумма неизменяема
}

func (suite *CheckoutLifecycleTestSuite) TestGuestCheckout() {
	ctx := context.Background()
	suite.seedProduct("laptop-pro", "Laptop Pro", 199900, 5)

	order, err := suite.orchestrator.Checkout(ctx, "", []domain.LineRequest{
		{ProductID: "laptop-pro", Qty: 2},
	})
	require.NoError(suite.T(), err)
	require.True(suite.T(), order.Guest())
	require.Equal(suite.T(), int64(399800), order.TotalMinor)

	stored, err := suite.ledger.Get(ctx, order.ID)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), stored.UserID)
}

func (suite *CheckoutLifecycleTestSuite) TestInsufficientStockCompensation() {
	ctx := context.Background()

	suite.seedProduct("laptop-pro", "Laptop Pro", 199900, 5)
	suite.seedProduct("mouse-wireless", "Wireless Mouse", 4999, 1)

	// Вторая позиция не пройдёт: остатка не хватает
	_, err := suite.orchestrator.Checkout(ctx, "customer-456", []domain.LineRequest{
		{ProductID: "laptop-pro", Qty: 1},
		{ProductID: "mouse-wireless", Qty: 2},
	})

	var stockErr *domain.StockUnavailableError
	require.ErrorAs(suite.T(), err, &stockErr)
	require.Equal(suite.T(), "mouse-wireless", stockErr.ProductID)

	// Первый резерв компенсирован, остатки исходные
	laptop, getErr := suite.products.Get(ctx, "laptop-pro")
	require.NoError(suite.T(), getErr)
	require.Equal(suite.T(), int64(5), laptop.QuantityAvailable)
	require.Equal(suite.T(), int64(0), laptop.QuantitySold)

	require.Equal(suite.T(), 1, suite.inventory.ReleaseCalls)

	// Заказ не записан, в outbox только событие отказа
	orders, listErr := suite.ledger.ListByUser(ctx, "customer-456", 10)
	require.NoError(suite.T(), listErr)
	require.Empty(suite.T(), orders)

	pending, outboxErr := suite.outbox.PullPending(ctx, 10)
	require.NoError(suite.T(), outboxErr)
	require.Len(suite.T(), pending, 1)
	require.Equal(suite.T(), "checkout.rejected", pending[0].EventType)

	adjustments, journalErr := suite.journal.List(ctx, 10)
	require.NoError(suite.T(), journalErr)
	require.Empty(suite.T(), adjustments)
}

func (suite *CheckoutLifecycleTestSuite) TestFailedCompensationGoesToJournal() {
	ctx := context.Background()

	suite.seedProduct("laptop-pro", "Laptop Pro", 199900, 5)
	suite.seedProduct("mouse-wireless", "Wireless Mouse", 4999, 0)
	suite.inventory.ReleaseErr = context.DeadlineExceeded

	_, err := suite.orchestrator.Checkout(ctx, "customer-789", []domain.LineRequest{
		{ProductID: "laptop-pro", Qty: 1},
		{ProductID: "mouse-wireless", Qty: 1},
	})

	var stockErr *domain.StockUnavailableError
	require.ErrorAs(suite.T(), err, &stockErr)

	// Компенсация не прошла после всех попыток
	require.Equal(suite.T(), 2, suite.inventory.ReleaseCalls)

	// Несведённая корректировка попала в журнал для ручной сверки
	adjustments, journalErr := suite.journal.List(ctx, 10)
	require.NoError(suite.T(), journalErr)
	require.Len(suite.T(), adjustments, 1)
	require.Equal(suite.T(), "laptop-pro", adjustments[0].ProductID)
	require.Equal(suite.T(), int32(1), adjustments[0].Qty)
}

func (suite *CheckoutLifecycleTestSuite) TestEmptyRequestRejected() {
	_, err := suite.orchestrator.Checkout(context.Background(), "customer-123", nil)
	require.ErrorIs(suite.T(), err, domain.ErrEmptyRequest)
}

func TestCheckoutLifecycleSuite(t *testing.T) {
	suite.Run(t, new(CheckoutLifecycleTestSuite))
}
