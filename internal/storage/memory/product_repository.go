package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// productRepositoryInMemory — in-memory реализация ProductRepository.
// Условный декремент выполняется под мьютексом целиком, что даёт ту же
// атомарность на уровне записи, что и conditional update настоящего хранилища.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory каталог для локальной разработки и тестов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Create сохраняет новый товар, если ID ещё не занят.
func (r *productRepositoryInMemory) Create(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.ErrProductExists
	}
	r.items[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает товары каталога, новые первыми, ограничивая выборку limit (если >0).
func (r *productRepositoryInMemory) List(_ context.Context, limit int) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Update перезаписывает карточку товара, не трогая складские счётчики.
func (r *productRepositoryInMemory) Update(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	// Складские счётчики меняются только через Reserve/Release.
	product.QuantityAvailable = current.QuantityAvailable
	product.QuantitySold = current.QuantitySold
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	r.items[product.ID] = product
	return nil
}

// Delete удаляет товар из каталога.
func (r *productRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	return nil
}

// Reserve выполняет условный декремент: проверка остатка и списание
// неделимы относительно других операций над тем же товаром.
func (r *productRepositoryInMemory) Reserve(_ context.Context, productID string, qty int32) (domain.ReservedStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return domain.ReservedStock{}, domain.ErrProductNotFound
	}
	if product.QuantityAvailable < int64(qty) {
		return domain.ReservedStock{}, domain.ErrInsufficientStock
	}

	product.QuantityAvailable -= int64(qty)
	product.QuantitySold += int64(qty)
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product

	return domain.ReservedStock{
		ProductID:         product.ID,
		Name:              product.Name,
		PriceMinor:        product.PriceMinor,
		QuantityAvailable: product.QuantityAvailable,
	}, nil
}

// Release возвращает списанное количество обратно (компенсация резерва).
func (r *productRepositoryInMemory) Release(_ context.Context, productID string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return domain.ErrProductNotFound
	}

	product.QuantityAvailable += int64(qty)
	product.QuantitySold -= int64(qty)
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
