package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type stockJournal struct {
	db *sql.DB
}

// NewStockJournal создаёт PostgreSQL-реализацию StockJournal.
func NewStockJournal(store *Store) domain.StockJournal {
	return &stockJournal{db: store.DB()}
}

func (r *stockJournal) Append(ctx context.Context, adj domain.StockAdjustment) error {
	if adj.ProductID == "" {
		return domain.ErrProductNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	if adj.Occurred.IsZero() {
		adj.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_journal (id, product_id, qty, reason, occurred_at)
		VALUES ($1,$2,$3,$4,$5)
	`, adj.ID, adj.ProductID, adj.Qty, adj.Reason, adj.Occurred); err != nil {
		return fmt.Errorf("append stock adjustment: %w", err)
	}

	return nil
}

func (r *stockJournal) List(ctx context.Context, limit int) ([]domain.StockAdjustment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, product_id, qty, reason, occurred_at
		FROM stock_journal
		ORDER BY occurred_at ASC, id ASC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list stock adjustments: %w", err)
	}
	defer rows.Close()

	adjustments := make([]domain.StockAdjustment, 0)
	for rows.Next() {
		var adj domain.StockAdjustment
		if err := rows.Scan(&adj.ID, &adj.ProductID, &adj.Qty, &adj.Reason, &adj.Occurred); err != nil {
			return nil, fmt.Errorf("scan stock adjustment: %w", err)
		}
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock adjustments: %w", err)
	}

	return adjustments, nil
}

var _ domain.StockJournal = (*stockJournal)(nil)
