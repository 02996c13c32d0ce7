package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartStoreInMemory хранит строки корзин по покупателям.
type cartStoreInMemory struct {
	mu    sync.RWMutex
	carts map[string]map[string]int32 // userID -> productID -> qty
}

// NewCartStore создаёт in-memory реализацию CartStore.
func NewCartStore() domain.CartStore {
	return &cartStoreInMemory{carts: make(map[string]map[string]int32)}
}

// Lines возвращает строки корзины покупателя в стабильном порядке.
func (r *cartStoreInMemory) Lines(_ context.Context, userID string) ([]domain.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart := r.carts[userID]
	result := make([]domain.CartLine, 0, len(cart))
	for productID, qty := range cart {
		result = append(result, domain.CartLine{ProductID: productID, Qty: qty})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ProductID < result[j].ProductID
	})
	return result, nil
}

// Upsert записывает количество для товара; qty <= 0 отвергается.
func (r *cartStoreInMemory) Upsert(_ context.Context, userID string, line domain.CartLine) error {
	if line.Qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		cart = make(map[string]int32)
		r.carts[userID] = cart
	}
	cart[line.ProductID] = line.Qty
	return nil
}

// Remove удаляет товар из корзины; отсутствие строки не считается ошибкой.
func (r *cartStoreInMemory) Remove(_ context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart, ok := r.carts[userID]; ok {
		delete(cart, productID)
	}
	return nil
}

// Clear удаляет все строки корзины покупателя (финальный шаг чекаута).
func (r *cartStoreInMemory) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}

var _ domain.CartStore = (*cartStoreInMemory)(nil)
