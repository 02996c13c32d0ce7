package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOrderLedger_PostgresCreateGetList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewOrderLedger(store)
	ctx := context.Background()

	now := time.Now().UTC().Round(time.Microsecond)
	order1 := sampleOrder("user-1", now.Add(-2*time.Minute))
	order2 := sampleOrder("user-1", now.Add(-time.Minute))

	if err := ledger.Create(ctx, order1); err != nil {
		t.Fatalf("create order1: %v", err)
	}
	if err := ledger.Create(ctx, order2); err != nil {
		t.Fatalf("create order2: %v", err)
	}

	got, err := ledger.Get(ctx, order1.ID)
	if err != nil {
		t.Fatalf("get order1: %v", err)
	}
	if got.ID != order1.ID || got.UserID != order1.UserID || got.Status != order1.Status {
		t.Fatalf("unexpected order payload: %+v", got)
	}
	if got.TotalMinor != order1.TotalMinor {
		t.Fatalf("total = %d, want %d", got.TotalMinor, order1.TotalMinor)
	}
	if len(got.Lines) != len(order1.Lines) {
		t.Fatalf("unexpected lines count: got=%d want=%d", len(got.Lines), len(order1.Lines))
	}
	if got.Lines[0].ProductID != order1.Lines[0].ProductID || got.Lines[0].Qty != order1.Lines[0].Qty {
		t.Fatalf("unexpected first line: %+v", got.Lines[0])
	}

	listed, err := ledger.ListByUser(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("list by user with limit: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != order2.ID {
		t.Fatalf("unexpected list result with limit: %+v", listed)
	}

	all, err := ledger.ListByUser(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("list by user without limit: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}
}

func TestOrderLedger_PostgresGuestOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewOrderLedger(store)
	ctx := context.Background()

	order := sampleOrder("", time.Now().UTC().Round(time.Microsecond))
	if err := ledger.Create(ctx, order); err != nil {
		t.Fatalf("create guest order: %v", err)
	}

	got, err := ledger.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get guest order: %v", err)
	}
	if !got.Guest() {
		t.Fatalf("expected guest order, got user %q", got.UserID)
	}
}

func TestOrderLedger_PostgresUpdateStatus(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewOrderLedger(store)
	ctx := context.Background()

	order := sampleOrder("user-2", time.Now().UTC().Round(time.Microsecond))
	if err := ledger.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := ledger.UpdateStatus(ctx, order.ID, domain.OrderStatusPaid); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := ledger.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusPaid {
		t.Fatalf("status = %s, want paid", got.Status)
	}
	// Снимок позиций и сумма неизменяемы.
	if got.TotalMinor != order.TotalMinor || len(got.Lines) != len(order.Lines) {
		t.Fatalf("snapshot must stay intact: %+v", got)
	}

	if err := ledger.UpdateStatus(ctx, order.ID, domain.OrderStatus("shipped")); !errors.Is(err, domain.ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid, got %v", err)
	}
}

func TestOrderLedger_PostgresErrors(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewOrderLedger(store)
	ctx := context.Background()

	if _, err := ledger.Get(ctx, uuid.NewString()); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	if err := ledger.UpdateStatus(ctx, uuid.NewString(), domain.OrderStatusPaid); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on status update, got %v", err)
	}

	base := sampleOrder("user-3", time.Now().UTC().Round(time.Microsecond))
	if err := ledger.Create(ctx, base); err != nil {
		t.Fatalf("create base order: %v", err)
	}
	if err := ledger.Create(ctx, base); !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists on duplicate create, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for non-unique code")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain error must not be unique violation")
	}
}

func sampleOrder(userID string, createdAt time.Time) domain.Order {
	lines := []domain.OrderLine{
		{
			ID:            uuid.NewString(),
			ProductID:     uuid.NewString(),
			Name:          "sample product",
			Qty:           2,
			PriceMinor:    150,
			SubtotalMinor: 300,
		},
	}

	return domain.Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Status:     domain.OrderStatusPlaced,
		TotalMinor: 300,
		Lines:      lines,
		CreatedAt:  createdAt,
	}
}
