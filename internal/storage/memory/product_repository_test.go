package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func seedProduct(t *testing.T, repo domain.ProductRepository, id string, available, sold int64) domain.Product {
	t.Helper()

	now := time.Now().UTC()
	product := domain.Product{
		ID:                id,
		Name:              "product-" + id,
		PriceMinor:        250,
		QuantityAvailable: available,
		QuantitySold:      sold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := repo.Create(context.Background(), product); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestProductRepository_ReserveDecrementsBothCounters(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 5, 10)

	stock, err := repo.Reserve(ctx, "p-1", 3)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if stock.QuantityAvailable != 2 {
		t.Fatalf("quantity available = %d, want 2", stock.QuantityAvailable)
	}
	if stock.PriceMinor != 250 || stock.Name != "product-p-1" {
		t.Fatal("reserve must return price and name from the same update")
	}

	product, err := repo.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if product.QuantityAvailable != 2 || product.QuantitySold != 13 {
		t.Fatalf("counters = (%d, %d), want (2, 13)", product.QuantityAvailable, product.QuantitySold)
	}
}

func TestProductRepository_ReserveInsufficient(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 0, 0)

	_, err := repo.Reserve(ctx, "p-1", 1)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	product, _ := repo.Get(ctx, "p-1")
	if product.QuantityAvailable != 0 || product.QuantitySold != 0 {
		t.Fatal("failed reserve must not change counters")
	}
}

func TestProductRepository_ReserveUnknownProduct(t *testing.T) {
	repo := NewProductRepository()

	_, err := repo.Reserve(context.Background(), "missing", 1)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepository_ReleaseReversesReserve(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 5, 10)

	if _, err := repo.Reserve(ctx, "p-1", 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := repo.Release(ctx, "p-1", 2); err != nil {
		t.Fatalf("release: %v", err)
	}

	product, _ := repo.Get(ctx, "p-1")
	if product.QuantityAvailable != 5 || product.QuantitySold != 10 {
		t.Fatalf("counters = (%d, %d), want (5, 10)", product.QuantityAvailable, product.QuantitySold)
	}
}

func TestProductRepository_NoDoubleSellUnderContention(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 1, 0)

	const workers = 16
	var wg sync.WaitGroup
	successes := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reserve(ctx, "p-1", 1); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	won := 0
	for range successes {
		won++
	}
	if won != 1 {
		t.Fatalf("exactly one reservation must win, got %d", won)
	}

	product, _ := repo.Get(ctx, "p-1")
	if product.QuantityAvailable != 0 {
		t.Fatalf("quantity available = %d, want 0", product.QuantityAvailable)
	}
	if product.QuantityAvailable < 0 {
		t.Fatal("stock must never go negative")
	}
}

func TestProductRepository_UpdateKeepsStockCounters(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	product := seedProduct(t, repo, "p-1", 5, 10)

	product.Name = "renamed"
	product.PriceMinor = 999
	product.QuantityAvailable = 100 // должно игнорироваться
	if err := repo.Update(ctx, product); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := repo.Get(ctx, "p-1")
	if got.Name != "renamed" || got.PriceMinor != 999 {
		t.Fatal("card fields must be updated")
	}
	if got.QuantityAvailable != 5 || got.QuantitySold != 10 {
		t.Fatal("stock counters must only change through Reserve/Release")
	}
}

func TestProductRepository_DeleteAndList(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 1, 0)
	seedProduct(t, repo, "p-2", 2, 0)

	if err := repo.Delete(ctx, "p-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "p-1"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	products, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 1 || products[0].ID != "p-2" {
		t.Fatalf("unexpected catalog contents: %+v", products)
	}
}
