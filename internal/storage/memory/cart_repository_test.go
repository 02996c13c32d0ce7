package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestCartStore_UpsertAndLines(t *testing.T) {
	store := NewCartStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, "user-1", domain.CartLine{ProductID: "p-2", Qty: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(ctx, "user-1", domain.CartLine{ProductID: "p-1", Qty: 3}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Повторный upsert перезаписывает количество.
	if err := store.Upsert(ctx, "user-1", domain.CartLine{ProductID: "p-2", Qty: 5}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	lines, err := store.Lines(ctx, "user-1")
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ProductID != "p-1" || lines[0].Qty != 3 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].ProductID != "p-2" || lines[1].Qty != 5 {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestCartStore_UpsertRejectsNonPositiveQty(t *testing.T) {
	store := NewCartStore()

	err := store.Upsert(context.Background(), "user-1", domain.CartLine{ProductID: "p-1", Qty: 0})
	if !errors.Is(err, domain.ErrItemQtyInvalid) {
		t.Fatalf("expected ErrItemQtyInvalid, got %v", err)
	}
}

func TestCartStore_RemoveAndClear(t *testing.T) {
	store := NewCartStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, "user-1", domain.CartLine{ProductID: "p-1", Qty: 1})
	_ = store.Upsert(ctx, "user-1", domain.CartLine{ProductID: "p-2", Qty: 2})

	if err := store.Remove(ctx, "user-1", "p-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, "user-1", "missing"); err != nil {
		t.Fatalf("remove of absent line must be a no-op, got %v", err)
	}

	lines, _ := store.Lines(ctx, "user-1")
	if len(lines) != 1 || lines[0].ProductID != "p-2" {
		t.Fatalf("unexpected cart contents: %+v", lines)
	}

	if err := store.Clear(ctx, "user-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	lines, _ = store.Lines(ctx, "user-1")
	if len(lines) != 0 {
		t.Fatalf("cart must be empty after clear, got %+v", lines)
	}
}
