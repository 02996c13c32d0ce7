package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// stockJournalInMemory хранит несведённые складские корректировки в памяти.
type stockJournalInMemory struct {
	mu      sync.RWMutex
	entries []domain.StockAdjustment
}

// NewStockJournal создаёт in-memory реализацию StockJournal.
func NewStockJournal() domain.StockJournal {
	return &stockJournalInMemory{}
}

// Append добавляет запись в журнал.
func (r *stockJournalInMemory) Append(_ context.Context, adj domain.StockAdjustment) error {
	if adj.ProductID == "" {
		return domain.ErrProductNotFound
	}
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, adj)
	return nil
}

// List возвращает записи журнала, старые первыми.
func (r *stockJournalInMemory) List(_ context.Context, limit int) ([]domain.StockAdjustment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.StockAdjustment, len(r.entries))
	copy(result, r.entries)

	sort.Slice(result, func(i, j int) bool {
		return result[i].Occurred.Before(result[j].Occurred)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ domain.StockJournal = (*stockJournalInMemory)(nil)
