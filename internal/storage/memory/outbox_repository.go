package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	outboxPending = "pending"
	outboxSent    = "sent"
	outboxFailed  = "failed"
)

// outboxEntry хранит сообщение и служебные поля доставки.
type outboxEntry struct {
	msg       domain.OutboxMessage
	status    string
	attempts  int
	createdAt time.Time
	updatedAt time.Time
}

// outboxQueue — in-memory вариант transactional outbox для тестов и
// запуска без PostgreSQL.
type outboxQueue struct {
	mu      sync.RWMutex
	entries map[string]*outboxEntry
}

var _ domain.OutboxRepository = (*outboxQueue)(nil)

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() *outboxQueue {
	return &outboxQueue{entries: make(map[string]*outboxEntry)}
}

// Enqueue сохраняет событие со статусом pending и возвращает его с присвоенным id.
func (r *outboxQueue) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[msg.ID] = &outboxEntry{
		msg:       msg,
		status:    outboxPending,
		createdAt: now,
		updatedAt: now,
	}
	return msg, nil
}

// PullPending возвращает до limit сообщений со статусом pending.
func (r *outboxQueue) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.OutboxMessage, 0, limit)
	for _, entry := range r.entries {
		if entry.status != outboxPending {
			continue
		}
		result = append(result, entry.msg)
		if len(result) >= limit {
			break
		}
	}

	return result, nil
}

// Stats возвращает количество pending-сообщений и время самого старого из них.
func (r *outboxQueue) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, entry := range r.entries {
		if entry.status != outboxPending {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || entry.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = entry.createdAt
		}
	}
	return stats, nil
}

func (r *outboxQueue) MarkSent(_ context.Context, id string) error {
	return r.transition(id, outboxSent)
}

func (r *outboxQueue) MarkFailed(_ context.Context, id string) error {
	return r.transition(id, outboxFailed)
}

func (r *outboxQueue) transition(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	entry.status = status
	entry.attempts++
	entry.updatedAt = time.Now().UTC()
	return nil
}
