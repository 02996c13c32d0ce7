package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	stepReserve    = "reserve"
	stepCompensate = "compensate"
	stepOrderWrite = "order_write"
	stepCartClear  = "cart_clear"
)

// Orchestrator описывает единственную операцию ядра: провести чекаут от
// резервирования стока до записи заказа и очистки корзины.
type Orchestrator interface {
	// Checkout резервирует сток по позициям в порядке вызова, пишет
	// неизменяемый снимок заказа и best-effort очищает корзину.
	// actorID пуст для гостевого чекаута.
	Checkout(ctx context.Context, actorID string, lines []domain.LineRequest) (domain.Order, error)
}

// Config задаёт таймаут запроса и политику повторов компенсаций.
type Config struct {
	// Timeout ограничивает весь чекаут; компенсации в него не входят.
	Timeout time.Duration
	Retry   RetryConfig
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
		Retry:   DefaultRetryConfig(),
	}
}

// orchestrator реализует сагу чекаута: последовательные атомарные
// резервы, компенсация при частичном отказе, запись заказа, очистка корзины.
type orchestrator struct {
	inventory domain.InventoryStore
	orders    domain.OrderLedger
	carts     domain.CartStore
	journal   domain.StockJournal
	outbox    domain.OutboxRepository
	logger    *log.Entry
	metrics   *metrics.CheckoutMetrics
	cfg       Config
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	inventory domain.InventoryStore,
	orders domain.OrderLedger,
	carts domain.CartStore,
	journal domain.StockJournal,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Orchestrator {
	return NewOrchestratorWithConfig(inventory, orders, carts, journal, outbox, DefaultConfig(), logger)
}

// NewOrchestratorWithConfig создаёт оркестратор с явной конфигурацией.
func NewOrchestratorWithConfig(
	inventory domain.InventoryStore,
	orders domain.OrderLedger,
	carts domain.CartStore,
	journal domain.StockJournal,
	outbox domain.OutboxRepository,
	cfg Config,
	logger *log.Entry,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &orchestrator{
		inventory: inventory,
		orders:    orders,
		carts:     carts,
		journal:   journal,
		outbox:    outbox,
		logger:    logger,
		metrics:   metrics.NewCheckoutMetrics(),
		cfg:       cfg,
	}
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	inventory domain.InventoryStore,
	orders domain.OrderLedger,
	carts domain.CartStore,
	journal domain.StockJournal,
	outbox domain.OutboxRepository,
	cfg Config,
	logger *log.Entry,
) Orchestrator {
	orch := NewOrchestratorWithConfig(inventory, orders, carts, journal, outbox, cfg, logger).(*orchestrator)
	orch.metrics = nil
	return orch
}

// reservedLine — успешно списанная позиция с ценой и именем, снятыми тем же
// атомарным обновлением. Либо становится строкой заказа, либо компенсируется.
type reservedLine struct {
	productID  string
	name       string
	priceMinor int64
	qty        int32
}

// Checkout выполняет сагу чекаута. После первого успешного резерва запрос
// дойдёт либо до записи заказа, либо до полной компенсации: безопасного окна
// для отмены на середине нет.
func (o *orchestrator) Checkout(ctx context.Context, actorID string, lines []domain.LineRequest) (domain.Order, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordCheckoutFinished()
			o.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	// Предусловия проверяются до любых обращений к хранилищу:
	// здесь ещё невозможны частичные side effects.
	if len(lines) == 0 {
		if o.metrics != nil {
			o.metrics.RecordCheckoutRejected()
		}
		return domain.Order{}, domain.ErrEmptyRequest
	}
	for _, line := range lines {
		if line.Qty <= 0 {
			if o.metrics != nil {
				o.metrics.RecordCheckoutRejected()
			}
			return domain.Order{}, &domain.InvalidQuantityError{ProductID: line.ProductID, Qty: line.Qty}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	reserved := make([]reservedLine, 0, len(lines))
	var total int64

	// Позиции резервируются строго в порядке вызова; повторный productID
	// списывается отдельным атомарным шагом против живого остатка.
	for _, line := range lines {
		stepStart := time.Now()
		stock, err := o.inventory.Reserve(ctx, line.ProductID, line.Qty)
		if o.metrics != nil {
			o.metrics.RecordStepDuration(stepReserve, time.Since(stepStart))
		}
		if err != nil {
			o.compensate(ctx, reserved)
			if o.metrics != nil {
				o.metrics.RecordCheckoutFailed()
			}
			if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrProductNotFound) {
				if o.metrics != nil {
					o.metrics.RecordStockConflict()
				}
				o.logger.WithFields(log.Fields{
					"product_id": line.ProductID,
					"qty":        line.Qty,
				}).Warn("stock reservation refused")
				o.emitEvent("checkout", line.ProductID, string(eventCheckoutRejected), map[string]interface{}{
					"product_id": line.ProductID,
					"user_id":    actorID,
				})
				return domain.Order{}, &domain.StockUnavailableError{ProductID: line.ProductID}
			}
			o.logger.WithError(err).WithField("product_id", line.ProductID).Error("stock reservation failed")
			return domain.Order{}, fmt.Errorf("reserve stock for %s: %w", line.ProductID, err)
		}

		reserved = append(reserved, reservedLine{
			productID:  stock.ProductID,
			name:       stock.Name,
			priceMinor: stock.PriceMinor,
			qty:        line.Qty,
		})
		total += stock.PriceMinor * int64(line.Qty)
	}

	order := o.buildOrder(actorID, reserved, total)

	stepStart := time.Now()
	err := o.orders.Create(ctx, order)
	if o.metrics != nil {
		o.metrics.RecordStepDuration(stepOrderWrite, time.Since(stepStart))
	}
	if err != nil {
		// Сток уже списан целиком, заказа нет: полный откат,
		// иначе остатки потеряны без следа в леджере.
		o.compensate(ctx, reserved)
		if o.metrics != nil {
			o.metrics.RecordCheckoutFailed()
		}
		o.logger.WithError(err).WithField("order_id", order.ID).Error("order persistence failed")
		return domain.Order{}, &domain.OrderPersistenceError{Err: err}
	}

	if o.metrics != nil {
		o.metrics.RecordCheckoutCompleted()
	}
	o.emitEvent("order", order.ID, string(eventOrderPlaced), map[string]interface{}{
		"user_id":     order.UserID,
		"total_minor": order.TotalMinor,
		"lines":       len(order.Lines),
	})

	// Заказ уже закоммичен и является источником истины: отказ очистки
	// корзины не откатывает ни заказ, ни сток.
	if actorID != "" {
		stepStart = time.Now()
		if err := o.carts.Clear(ctx, actorID); err != nil {
			if o.metrics != nil {
				o.metrics.RecordCartClearFailure()
			}
			o.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"user_id":  actorID,
			}).Warn("cart clear failed after committed order")
		}
		if o.metrics != nil {
			o.metrics.RecordStepDuration(stepCartClear, time.Since(stepStart))
		}
	}

	return order, nil
}

func (o *orchestrator) buildOrder(actorID string, reserved []reservedLine, total int64) domain.Order {
	now := time.Now().UTC()
	order := domain.Order{
		ID:         uuid.NewString(),
		UserID:     actorID,
		Status:     domain.OrderStatusPlaced,
		TotalMinor: total,
		Lines:      make([]domain.OrderLine, 0, len(reserved)),
		CreatedAt:  now,
	}
	for _, line := range reserved {
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:            uuid.NewString(),
			ProductID:     line.productID,
			Name:          line.name,
			Qty:           line.qty,
			PriceMinor:    line.priceMinor,
			SubtotalMinor: line.priceMinor * int64(line.qty),
		})
	}
	return order
}

// compensate возвращает все ранее списанные позиции. Откаты независимы друг
// от друга и обязаны завершиться даже после отмены вызывающего контекста.
func (o *orchestrator) compensate(ctx context.Context, reserved []reservedLine) {
	if len(reserved) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	stepStart := time.Now()

	for _, line := range reserved {
		if err := o.releaseWithRetry(ctx, line); err != nil {
			if o.metrics != nil {
				o.metrics.RecordCompensationFailure()
			}
			o.logger.WithError(err).WithFields(log.Fields{
				"product_id": line.productID,
				"qty":        line.qty,
			}).Error("compensation failed, stock requires manual reconciliation")
			o.journalAdjustment(ctx, line, err)
			continue
		}
		if o.metrics != nil {
			o.metrics.RecordCompensation()
		}
	}

	if o.metrics != nil {
		o.metrics.RecordStepDuration(stepCompensate, time.Since(stepStart))
	}
}

func (o *orchestrator) releaseWithRetry(ctx context.Context, line reservedLine) error {
	var lastErr error
	delay := o.cfg.Retry.InitialDelay

	for attempt := 1; attempt <= o.cfg.Retry.MaxAttempts; attempt++ {
		err := o.inventory.Release(ctx, line.productID, line.qty)
		if err == nil {
			if attempt > 1 {
				o.logger.WithFields(log.Fields{
					"product_id": line.productID,
					"attempt":    attempt,
				}).Info("compensation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if attempt < o.cfg.Retry.MaxAttempts {
			o.logger.WithError(err).WithFields(log.Fields{
				"product_id": line.productID,
				"attempt":    attempt,
				"delay":      delay,
			}).Warn("compensation failed, retrying")
			time.Sleep(delay)
			delay = o.cfg.Retry.NextDelay(delay)
		}
	}

	return lastErr
}

// journalAdjustment фиксирует несведённую компенсацию для ручной сверки
// вместо молчаливого проглатывания.
func (o *orchestrator) journalAdjustment(ctx context.Context, line reservedLine, cause error) {
	if o.journal == nil {
		return
	}

	adj := domain.StockAdjustment{
		ID:        uuid.NewString(),
		ProductID: line.productID,
		Qty:       line.qty,
		Reason:    fmt.Sprintf("release failed: %v", cause),
		Occurred:  time.Now().UTC(),
	}
	if err := o.journal.Append(ctx, adj); err != nil {
		o.logger.WithError(err).WithField("product_id", line.productID).Error("append stock journal failed")
		return
	}

	o.emitEvent("stock", line.productID, string(eventStockReconcile), map[string]interface{}{
		"product_id": line.productID,
		"qty":        line.qty,
		"reason":     adj.Reason,
	})
}

const (
	eventOrderPlaced      = "order.placed"
	eventCheckoutRejected = "checkout.rejected"
	eventStockReconcile   = "stock.reconcile_required"
)

func (o *orchestrator) emitEvent(aggregateType, aggregateID, eventType string, payload map[string]interface{}) {
	if o.outbox == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := o.outbox.Enqueue(context.Background(), msg); err != nil {
		o.logger.WithError(err).WithField("event", eventType).Error("enqueue event failed")
		return
	}
	if o.metrics != nil {
		o.metrics.RecordOutboxEvent()
	}
}

var _ Orchestrator = (*orchestrator)(nil)
