package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newService(t *testing.T) (*Service, domain.ProductRepository) {
	t.Helper()
	products := memory.NewProductRepository()
	return NewService(memory.NewCartStore(), products, nil), products
}

func seedProduct(t *testing.T, products domain.ProductRepository, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := products.Create(context.Background(), domain.Product{
		ID:                id,
		Name:              "product-" + id,
		PriceMinor:        100,
		QuantityAvailable: 10,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func TestService_PutAndLines(t *testing.T) {
	svc, products := newService(t)
	ctx := context.Background()
	seedProduct(t, products, "p-1")
	seedProduct(t, products, "p-2")

	if err := svc.Put(ctx, "user-1", domain.CartLine{ProductID: "p-1", Qty: 2}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := svc.Put(ctx, "user-1", domain.CartLine{ProductID: "p-2", Qty: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Повторный put заменяет количество, а не суммирует.
	if err := svc.Put(ctx, "user-1", domain.CartLine{ProductID: "p-1", Qty: 5}); err != nil {
		t.Fatalf("put: %v", err)
	}

	lines, err := svc.Lines(ctx, "user-1")
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("len = %d, want 2", len(lines))
	}
	if lines[0].ProductID != "p-1" || lines[0].Qty != 5 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
}

func TestService_PutValidation(t *testing.T) {
	svc, products := newService(t)
	ctx := context.Background()
	seedProduct(t, products, "p-1")

	if err := svc.Put(ctx, "", domain.CartLine{ProductID: "p-1", Qty: 1}); !errors.Is(err, ErrUserRequired) {
		t.Fatalf("err = %v, want ErrUserRequired", err)
	}

	var invalid *domain.InvalidQuantityError
	if err := svc.Put(ctx, "user-1", domain.CartLine{ProductID: "p-1", Qty: 0}); !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidQuantityError", err)
	}

	if err := svc.Put(ctx, "user-1", domain.CartLine{ProductID: "ghost", Qty: 1}); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
}

func TestService_RemoveAndClear(t *testing.T) {
	svc, products := newService(t)
	ctx := context.Background()
	seedProduct(t, products, "p-1")
	seedProduct(t, products, "p-2")

	_ = svc.Put(ctx, "user-1", domain.CartLine{ProductID: "p-1", Qty: 1})
	_ = svc.Put(ctx, "user-1", domain.CartLine{ProductID: "p-2", Qty: 2})

	if err := svc.Remove(ctx, "user-1", "p-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Удаление отсутствующей позиции — no-op.
	if err := svc.Remove(ctx, "user-1", "ghost"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}

	lines, _ := svc.Lines(ctx, "user-1")
	if len(lines) != 1 || lines[0].ProductID != "p-2" {
		t.Fatalf("unexpected lines: %+v", lines)
	}

	if err := svc.Clear(ctx, "user-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	lines, _ = svc.Lines(ctx, "user-1")
	if len(lines) != 0 {
		t.Fatalf("cart must be empty, got %+v", lines)
	}
}

func TestService_CheckoutLines(t *testing.T) {
	svc, products := newService(t)
	ctx := context.Background()
	seedProduct(t, products, "p-1")

	_ = svc.Put(ctx, "user-1", domain.CartLine{ProductID: "p-1", Qty: 3})

	requests, err := svc.CheckoutLines(ctx, "user-1")
	if err != nil {
		t.Fatalf("checkout lines: %v", err)
	}
	if len(requests) != 1 || requests[0].ProductID != "p-1" || requests[0].Qty != 3 {
		t.Fatalf("unexpected requests: %+v", requests)
	}
}
