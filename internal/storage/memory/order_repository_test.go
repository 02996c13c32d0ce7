package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func sampleOrder(id, userID string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:         id,
		UserID:     userID,
		Status:     domain.OrderStatusPlaced,
		TotalMinor: 200,
		Lines: []domain.OrderLine{
			{ID: id + "-l1", ProductID: "p-1", Name: "mug", Qty: 2, PriceMinor: 100, SubtotalMinor: 200},
		},
		CreatedAt: createdAt,
	}
}

func TestOrderLedger_CreateAndGet(t *testing.T) {
	ledger := NewOrderLedger()
	ctx := context.Background()
	order := sampleOrder("order-1", "user-1", time.Now().UTC())

	if err := ledger.Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ledger.Create(ctx, order); !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}

	got, err := ledger.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalMinor != 200 || len(got.Lines) != 1 {
		t.Fatalf("unexpected order: %+v", got)
	}

	// Мутация возвращённой копии не должна трогать хранилище.
	got.Lines[0].Qty = 99
	fresh, _ := ledger.Get(ctx, "order-1")
	if fresh.Lines[0].Qty != 2 {
		t.Fatal("ledger must return defensive copies")
	}
}

func TestOrderLedger_GetMissing(t *testing.T) {
	ledger := NewOrderLedger()

	_, err := ledger.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderLedger_ListByUserNewestFirst(t *testing.T) {
	ledger := NewOrderLedger()
	ctx := context.Background()
	base := time.Now().UTC()

	if err := ledger.Create(ctx, sampleOrder("order-1", "user-1", base.Add(-2*time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ledger.Create(ctx, sampleOrder("order-2", "user-1", base)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ledger.Create(ctx, sampleOrder("order-3", "user-2", base)); err != nil {
		t.Fatalf("create: %v", err)
	}

	orders, err := ledger.ListByUser(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != "order-2" || orders[1].ID != "order-1" {
		t.Fatalf("expected newest first, got %s, %s", orders[0].ID, orders[1].ID)
	}

	limited, _ := ledger.ListByUser(ctx, "user-1", 1)
	if len(limited) != 1 {
		t.Fatalf("limit must cap the result, got %d", len(limited))
	}
}

func TestOrderLedger_UpdateStatus(t *testing.T) {
	ledger := NewOrderLedger()
	ctx := context.Background()
	if err := ledger.Create(ctx, sampleOrder("order-1", "user-1", time.Now().UTC())); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := ledger.UpdateStatus(ctx, "order-1", domain.OrderStatusPaid); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := ledger.Get(ctx, "order-1")
	if got.Status != domain.OrderStatusPaid {
		t.Fatalf("status = %s, want paid", got.Status)
	}
	if got.TotalMinor != 200 || len(got.Lines) != 1 {
		t.Fatal("status change must not touch the snapshot")
	}

	if err := ledger.UpdateStatus(ctx, "order-1", "shipped"); !errors.Is(err, domain.ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid, got %v", err)
	}
	if err := ledger.UpdateStatus(ctx, "missing", domain.OrderStatusPaid); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
