package domain

import (
	"context"
	"time"
)

// InventoryStore — единственный примитив конкурентности, на который
// опирается чекаут: условный декремент обязан выполняться атомарно на
// уровне записи товара, а не как отдельные чтение и запись.
type InventoryStore interface {
	// Reserve декрементирует quantity_available на qty и инкрементирует
	// quantity_sold, только если остатка хватает. Возвращает
	// ErrInsufficientStock или ErrProductNotFound, если условие не прошло.
	Reserve(ctx context.Context, productID string, qty int32) (ReservedStock, error)
	// Release возвращает зарезервированное количество обратно (компенсация).
	Release(ctx context.Context, productID string, qty int32) error
}

// ProductRepository — полный доступ к каталогу товаров для CRUD-операций
// плюс складские примитивы чекаута.
type ProductRepository interface {
	InventoryStore

	Create(ctx context.Context, product Product) error
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, limit int) ([]Product, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id string) error
}

// OrderLedger — append-only хранилище снимков заказов.
type OrderLedger interface {
	// Create записывает новый заказ. Возвращает ErrOrderExists при повторе ID.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы покупателя, новые первыми.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// UpdateStatus меняет статус заказа; позиции и сумма неизменяемы.
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
}

// CartStore хранит строки корзины по покупателям. Clear вызывается
// чекаутом best-effort: его отказ не откатывает заказ.
type CartStore interface {
	Lines(ctx context.Context, userID string) ([]CartLine, error)
	Upsert(ctx context.Context, userID string, line CartLine) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

// StockAdjustment — запись о компенсации, которую не удалось применить.
// Журнал читают операторы для ручной сверки остатков.
type StockAdjustment struct {
	ID        string
	ProductID string
	Qty       int32
	Reason    string
	Occurred  time.Time
}

// StockJournal — append-only журнал несведённых складских корректировок.
type StockJournal interface {
	Append(ctx context.Context, adj StockAdjustment) error
	List(ctx context.Context, limit int) ([]StockAdjustment, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
